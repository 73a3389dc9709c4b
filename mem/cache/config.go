package cache

import (
	"fmt"
	"strings"

	"github.com/sarchlab/csim/mem/addressing"
	"github.com/sarchlab/csim/mem/cache/internal/tagging"
)

// Kind tells what a cache stores. It is carried in reports only and does not
// change how the cache behaves.
type Kind int

// The kinds of caches.
const (
	Data Kind = iota
	Instruction
	Both
)

func (k Kind) String() string {
	switch k {
	case Data:
		return "Data"
	case Instruction:
		return "Instruction"
	case Both:
		return "Both"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind converts a command line token into a Kind.
func ParseKind(token string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "d", "data":
		return Data, nil
	case "i", "instruction":
		return Instruction, nil
	case "b", "both":
		return Both, nil
	default:
		return 0, fmt.Errorf("unknown cache kind %q", token)
	}
}

// ReplacementPolicy selects the block a full set evicts.
type ReplacementPolicy = tagging.Policy

// The supported replacement policies.
const (
	LRU    = tagging.LRU
	FIFO   = tagging.FIFO
	Random = tagging.Random
)

// ParseReplacementPolicy accepts l, lru, f, fifo, r and random in any case.
func ParseReplacementPolicy(token string) (ReplacementPolicy, error) {
	return tagging.ParsePolicy(token)
}

// Config is the geometry and policy of a cache.
type Config struct {
	NumSets           int
	BlockSize         int
	WayAssociativity  int
	ReplacementPolicy ReplacementPolicy
	Kind              Kind
}

// TotalSlots returns the number of blocks the cache holds.
func (c Config) TotalSlots() int {
	return c.NumSets * c.WayAssociativity
}

// TotalSize returns the maximum number of bytes that can be stored in the
// cache.
func (c Config) TotalSize() uint64 {
	return uint64(c.NumSets) * uint64(c.WayAssociativity) * uint64(c.BlockSize)
}

// Validate checks that the geometry can be simulated.
func (c Config) Validate() error {
	if c.NumSets <= 0 || !addressing.IsPowerOfTwo(uint64(c.NumSets)) {
		return fmt.Errorf("number of sets %d is not a power of 2", c.NumSets)
	}

	if c.BlockSize <= 0 || !addressing.IsPowerOfTwo(uint64(c.BlockSize)) {
		return fmt.Errorf("block size %d is not a power of 2", c.BlockSize)
	}

	if c.WayAssociativity < 1 {
		return fmt.Errorf("associativity %d is less than 1", c.WayAssociativity)
	}

	indexAndOffset := addressing.Log2(uint64(c.NumSets)) +
		addressing.Log2(uint64(c.BlockSize))
	if indexAndOffset > addressing.AddressBits {
		return fmt.Errorf("%d sets of %d bytes exceed the %d-bit address space",
			c.NumSets, c.BlockSize, addressing.AddressBits)
	}

	switch c.ReplacementPolicy {
	case LRU, FIFO, Random:
	default:
		return fmt.Errorf("unknown replacement policy %s", c.ReplacementPolicy)
	}

	return nil
}
