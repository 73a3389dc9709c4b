// Package analysis derives extra metrics from a cache run.
package analysis

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sarchlab/csim/mem/addressing"
	"github.com/sarchlab/csim/mem/cache"
	"github.com/sarchlab/csim/sim"
)

// A ReferenceModel replays the accesses of a cache on a fully associative
// LRU cache with the same number of blocks. It is a hook on the simulated
// cache.
type ReferenceModel struct {
	offsetBits int
	blocks     *lru.Cache[uint32, struct{}]
	seen       map[uint32]struct{}

	accesses uint64
	misses   uint64
}

// NewReferenceModel creates a model sized after a cache configuration.
func NewReferenceModel(config cache.Config) *ReferenceModel {
	blocks, err := lru.New[uint32, struct{}](config.TotalSlots())
	if err != nil {
		panic(err)
	}

	return &ReferenceModel{
		offsetBits: addressing.Log2(uint64(config.BlockSize)),
		blocks:     blocks,
		seen:       make(map[uint32]struct{}),
	}
}

// Access looks up the block of addr and tells if it was resident.
func (m *ReferenceModel) Access(addr uint32) bool {
	block := addr >> m.offsetBits
	m.accesses++
	m.seen[block] = struct{}{}

	if _, ok := m.blocks.Get(block); ok {
		return true
	}

	m.misses++
	m.blocks.Add(block, struct{}{})

	return false
}

// Func feeds the model with the accesses of a cache.
func (m *ReferenceModel) Func(ctx sim.HookCtx) {
	if ctx.Pos != cache.HookPosAccess {
		return
	}

	info, ok := ctx.Item.(cache.AccessInfo)
	if !ok {
		return
	}

	m.Access(info.Address)
}

// Accesses returns the number of accesses replayed.
func (m *ReferenceModel) Accesses() uint64 {
	return m.accesses
}

// Misses returns the misses of the fully associative cache.
func (m *ReferenceModel) Misses() uint64 {
	return m.misses
}

// DistinctBlocks returns the number of different blocks touched.
func (m *ReferenceModel) DistinctBlocks() uint64 {
	return uint64(len(m.seen))
}

// ThreeCs is the textbook miss breakdown, computed against a fully
// associative LRU cache. Conflict can be negative when the simulated cache
// beats LRU.
type ThreeCs struct {
	Compulsory int64 `json:"compulsory"`
	Capacity   int64 `json:"capacity"`
	Conflict   int64 `json:"conflict"`
}

// Breakdown splits the misses of the simulated cache. Compulsory misses
// are first references to a block, capacity misses are the remaining misses
// of the fully associative cache, and conflict misses are what the
// simulated cache misses on top of that.
func (m *ReferenceModel) Breakdown(perf cache.Performance) ThreeCs {
	compulsory := int64(m.DistinctBlocks())

	return ThreeCs{
		Compulsory: compulsory,
		Capacity:   int64(m.misses) - compulsory,
		Conflict:   int64(perf.Misses) - int64(m.misses),
	}
}
