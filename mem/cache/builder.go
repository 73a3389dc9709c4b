package cache

import (
	"math/rand/v2"

	"github.com/sarchlab/csim/mem/addressing"
	"github.com/sarchlab/csim/mem/cache/internal/tagging"
	"github.com/sarchlab/csim/sim"
)

// Builder can build caches.
type Builder struct {
	numSets           int
	blockSize         int
	wayAssociativity  int
	replacementPolicy ReplacementPolicy
	kind              Kind

	seed    uint64
	hasSeed bool
}

// MakeBuilder creates a new builder with a direct-mapped cache of 256
// four-byte blocks.
func MakeBuilder() Builder {
	return Builder{
		numSets:           256,
		blockSize:         4,
		wayAssociativity:  1,
		replacementPolicy: LRU,
		kind:              Data,
	}
}

// WithNumSets sets the number of sets of the cache.
func (b Builder) WithNumSets(numSets int) Builder {
	b.numSets = numSets
	return b
}

// WithBlockSize sets the block size in bytes.
func (b Builder) WithBlockSize(blockSize int) Builder {
	b.blockSize = blockSize
	return b
}

// WithWayAssociativity sets the number of ways per set.
func (b Builder) WithWayAssociativity(wayAssociativity int) Builder {
	b.wayAssociativity = wayAssociativity
	return b
}

// WithReplacementPolicy sets the replacement policy.
func (b Builder) WithReplacementPolicy(policy ReplacementPolicy) Builder {
	b.replacementPolicy = policy
	return b
}

// WithKind sets what the cache stores.
func (b Builder) WithKind(kind Kind) Builder {
	b.kind = kind
	return b
}

// WithConfig copies every field of a Config into the builder.
func (b Builder) WithConfig(config Config) Builder {
	b.numSets = config.NumSets
	b.blockSize = config.BlockSize
	b.wayAssociativity = config.WayAssociativity
	b.replacementPolicy = config.ReplacementPolicy
	b.kind = config.Kind

	return b
}

// WithSeed sets the seed of the generator used by the Random policy. Without
// a seed, one is drawn from the process entropy when the cache is built.
func (b Builder) WithSeed(seed uint64) Builder {
	b.seed = seed
	b.hasSeed = true

	return b
}

// Build builds a cache. The configuration must have been validated; an
// invalid one panics.
func (b Builder) Build(name string) *Comp {
	config := Config{
		NumSets:           b.numSets,
		BlockSize:         b.blockSize,
		WayAssociativity:  b.wayAssociativity,
		ReplacementPolicy: b.replacementPolicy,
		Kind:              b.kind,
	}

	err := config.Validate()
	if err != nil {
		panic(err)
	}

	seed := b.seed
	if !b.hasSeed {
		seed = rand.Uint64()
	}

	return &Comp{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		config:       config,
		decoder: addressing.NewDecoder(
			uint64(config.NumSets), uint64(config.BlockSize)),
		tags: tagging.NewTagArray(config.NumSets, config.WayAssociativity),
		seed: seed,
		rng:  rand.New(rand.NewPCG(seed, ^seed)),
	}
}
