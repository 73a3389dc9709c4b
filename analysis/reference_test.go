package analysis

import (
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/csim/mem/cache"
)

var _ = Describe("ReferenceModel", func() {
	It("should behave as a fully associative LRU cache", func() {
		m := NewReferenceModel(cache.Config{
			NumSets:          1,
			BlockSize:        4,
			WayAssociativity: 2,
		})

		Expect(m.Access(0x0)).To(BeFalse())
		Expect(m.Access(0x4)).To(BeFalse())
		Expect(m.Access(0x3)).To(BeTrue())
		Expect(m.Access(0x8)).To(BeFalse())
		Expect(m.Access(0x4)).To(BeFalse())

		Expect(m.Accesses()).To(Equal(uint64(5)))
		Expect(m.Misses()).To(Equal(uint64(4)))
		Expect(m.DistinctBlocks()).To(Equal(uint64(3)))
	})

	It("should match a single-set LRU cache", func() {
		comp := cache.MakeBuilder().
			WithNumSets(1).
			WithBlockSize(16).
			WithWayAssociativity(8).
			WithReplacementPolicy(cache.LRU).
			Build("FullyAssociative")
		m := NewReferenceModel(comp.Config())
		comp.AcceptHook(m)

		rng := rand.New(rand.NewPCG(3, 4))
		for i := 0; i < 5000; i++ {
			comp.AccessAddress(rng.Uint32N(16 * 20))
		}

		perf := comp.Performance()
		Expect(m.Misses()).To(Equal(perf.Misses))

		breakdown := m.Breakdown(perf)
		Expect(breakdown.Conflict).To(BeZero())
		Expect(breakdown.Compulsory).To(Equal(int64(20)))
		Expect(breakdown.Compulsory + breakdown.Capacity + breakdown.Conflict).
			To(Equal(int64(perf.Misses)))
	})

	It("should attribute extra misses of a direct mapped cache to conflict", func() {
		comp := cache.MakeBuilder().
			WithNumSets(4).
			WithBlockSize(4).
			WithWayAssociativity(1).
			Build("DirectMapped")
		m := NewReferenceModel(comp.Config())
		comp.AcceptHook(m)

		for i := 0; i < 10; i++ {
			comp.AccessAddress(0x00)
			comp.AccessAddress(0x10)
		}

		breakdown := m.Breakdown(comp.Performance())
		Expect(breakdown).To(Equal(ThreeCs{
			Compulsory: 2,
			Capacity:   0,
			Conflict:   18,
		}))
	})
})
