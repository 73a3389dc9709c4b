// Package cache simulates a set-associative cache and classifies every
// access as a hit or as a compulsory, capacity or conflict miss.
package cache

import (
	"fmt"
	"math/rand/v2"

	"github.com/sarchlab/csim/mem/addressing"
	"github.com/sarchlab/csim/mem/cache/internal/tagging"
	"github.com/sarchlab/csim/sim"
)

// BlockState is a copy of one block, exposed for inspection.
type BlockState struct {
	Tag            uint32 `json:"tag"`
	IsValid        bool   `json:"is_valid"`
	Replaceability uint64 `json:"replaceability"`
}

// Comp is a set-associative cache. It is not safe for concurrent use.
type Comp struct {
	*sim.HookableBase

	name    string
	config  Config
	decoder addressing.Decoder
	tags    *tagging.TagArray
	perf    Performance

	seed uint64
	rng  *rand.Rand
}

// Name returns the name of the cache.
func (c *Comp) Name() string {
	return c.name
}

// Config returns the geometry and policy of the cache.
func (c *Comp) Config() Config {
	return c.config
}

// Decoder returns the decoder that splits addresses for this cache.
func (c *Comp) Decoder() addressing.Decoder {
	return c.decoder
}

// Seed returns the seed of the generator used by the Random policy.
func (c *Comp) Seed() uint64 {
	return c.seed
}

// Performance returns a copy of the counters.
func (c *Comp) Performance() Performance {
	return c.perf
}

// Access looks up tag in the set with the given index, records the result
// and brings the block in on a miss.
func (c *Comp) Access(setIndex int, tag uint32) AccessOutcome {
	fields := addressing.Decoded{Tag: tag, Index: uint32(setIndex)}
	return c.accessAndTrace(c.decoder.Encode(fields), fields)
}

// AccessAddress decodes addr and accesses the set it maps to.
func (c *Comp) AccessAddress(addr uint32) AccessOutcome {
	return c.accessAndTrace(addr, c.decoder.Decode(addr))
}

// Run accesses every address in order and returns the final counters.
func (c *Comp) Run(addrs []uint32) Performance {
	for _, addr := range addrs {
		c.AccessAddress(addr)
	}

	return c.perf
}

// SetState returns a copy of the blocks of a set.
func (c *Comp) SetState(setIndex int) []BlockState {
	set := c.tags.GetSet(setIndex)

	blocks := make([]BlockState, len(set.Blocks))
	for i, b := range set.Blocks {
		blocks[i] = BlockState{
			Tag:            b.Tag,
			IsValid:        b.IsValid,
			Replaceability: b.Replaceability,
		}
	}

	return blocks
}

func (c *Comp) accessAndTrace(
	addr uint32,
	fields addressing.Decoded,
) AccessOutcome {
	outcome := c.access(int(fields.Index), fields.Tag)

	if c.NumHooks() > 0 {
		c.traceAccess(AccessInfo{
			Seq:     c.perf.Accesses,
			Address: addr,
			Fields:  fields,
			Outcome: outcome,
		})
	}

	return outcome
}

func (c *Comp) access(setIndex int, tag uint32) AccessOutcome {
	if setIndex < 0 || setIndex >= c.config.NumSets {
		panic(fmt.Sprintf("set index %d out of range [0, %d)",
			setIndex, c.config.NumSets))
	}

	set := c.tags.GetSet(setIndex)
	policy := c.config.ReplacementPolicy

	if set.Contains(tag) {
		c.perf.count(Hit)
		set.RegisterHit(tag, policy)

		return Hit
	}

	outcome := c.classifyMiss(set)
	c.perf.count(outcome)
	set.InsertOrUpdate(tag, policy, c.rng)

	return outcome
}

// classifyMiss must run before the counters are updated. A set with a free
// way gives a compulsory miss. A full set gives a capacity miss once every
// block of the cache has been filled, and a conflict miss before that.
func (c *Comp) classifyMiss(set *tagging.Set) AccessOutcome {
	if set.UninitializedCount() > 0 {
		return CompulsoryMiss
	}

	if c.perf.SlotsOccupied == uint64(c.tags.TotalSlots()) {
		return CapacityMiss
	}

	return ConflictMiss
}
