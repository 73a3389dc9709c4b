package tagging

import (
	"fmt"
	"strings"
)

// Policy selects how a full set picks the block to evict.
type Policy int

// The replacement policies supported by a set.
const (
	LRU Policy = iota
	FIFO
	Random
)

func (p Policy) String() string {
	switch p {
	case LRU:
		return "LRU"
	case FIFO:
		return "FIFO"
	case Random:
		return "Random"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy converts a command line token into a policy. It accepts the
// full names and their first letters, in any case.
func ParsePolicy(token string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "l", "lru":
		return LRU, nil
	case "f", "fifo":
		return FIFO, nil
	case "r", "random":
		return Random, nil
	default:
		return 0, fmt.Errorf("unknown replacement policy %q", token)
	}
}

// RandSource provides the random numbers used by the Random policy.
// *rand.Rand from math/rand/v2 satisfies it.
type RandSource interface {
	IntN(n int) int
}
