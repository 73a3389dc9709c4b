package cache

import (
	"bytes"
	"encoding/binary"
	"log"
	"math/rand/v2"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/csim/sim"
)

const (
	tagA uint32 = 0xa
	tagB uint32 = 0xb
	tagC uint32 = 0xc
)

func loadRegressionTrace() []uint32 {
	data, err := os.ReadFile("testdata/regression.trace")
	Expect(err).NotTo(HaveOccurred())
	Expect(len(data) % 4).To(Equal(0))

	addrs := make([]uint32, 0, len(data)/4)
	for i := 0; i < len(data); i += 4 {
		addrs = append(addrs, binary.BigEndian.Uint32(data[i:]))
	}

	return addrs
}

func randomTrace(n int, seed uint64) []uint32 {
	rng := rand.New(rand.NewPCG(seed, 0))

	addrs := make([]uint32, n)
	for i := range addrs {
		addrs[i] = rng.Uint32N(1 << 12)
	}

	return addrs
}

var _ = Describe("Config", func() {
	It("should compute the total size", func() {
		c := Config{NumSets: 64, BlockSize: 32, WayAssociativity: 4}

		Expect(c.TotalSize()).To(Equal(uint64(64 * 32 * 4)))
		Expect(c.TotalSlots()).To(Equal(256))
	})

	DescribeTable("should reject invalid geometry",
		func(c Config) {
			Expect(c.Validate()).To(HaveOccurred())
		},
		Entry("zero sets", Config{NumSets: 0, BlockSize: 4, WayAssociativity: 1}),
		Entry("3 sets", Config{NumSets: 3, BlockSize: 4, WayAssociativity: 1}),
		Entry("6-byte blocks", Config{NumSets: 4, BlockSize: 6, WayAssociativity: 1}),
		Entry("no ways", Config{NumSets: 4, BlockSize: 4, WayAssociativity: 0}),
		Entry("too large", Config{NumSets: 1 << 30, BlockSize: 1 << 4, WayAssociativity: 1}),
		Entry("unknown policy", Config{NumSets: 4, BlockSize: 4, WayAssociativity: 1, ReplacementPolicy: 9}),
	)

	It("should accept a geometry using the whole address space", func() {
		c := Config{NumSets: 1 << 20, BlockSize: 1 << 12, WayAssociativity: 1}

		Expect(c.Validate()).To(Succeed())
	})

	It("should parse kinds", func() {
		k, err := ParseKind("I")
		Expect(err).NotTo(HaveOccurred())
		Expect(k).To(Equal(Instruction))

		_, err = ParseKind("x")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Builder", func() {
	It("should build a cache", func() {
		c := MakeBuilder().
			WithNumSets(32).
			WithBlockSize(64).
			WithWayAssociativity(4).
			WithReplacementPolicy(FIFO).
			WithKind(Both).
			WithSeed(3).
			Build("L1")

		Expect(c.Name()).To(Equal("L1"))
		Expect(c.Config()).To(Equal(Config{
			NumSets:           32,
			BlockSize:         64,
			WayAssociativity:  4,
			ReplacementPolicy: FIFO,
			Kind:              Both,
		}))
		Expect(c.Config().TotalSize()).To(Equal(uint64(32 * 64 * 4)))
		Expect(c.Seed()).To(Equal(uint64(3)))
		Expect(c.Decoder().IndexBits).To(Equal(5))
		Expect(c.Performance()).To(BeZero())
	})

	It("should panic on an invalid configuration", func() {
		Expect(func() {
			MakeBuilder().WithNumSets(3).Build("Bad")
		}).To(Panic())
	})
})

var _ = Describe("Comp", func() {
	var (
		mockCtrl *gomock.Controller
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	build := func(numSets, ways int, policy ReplacementPolicy) *Comp {
		return MakeBuilder().
			WithNumSets(numSets).
			WithBlockSize(4).
			WithWayAssociativity(ways).
			WithReplacementPolicy(policy).
			WithSeed(42).
			Build("Cache")
	}

	It("should classify a first touch as compulsory", func() {
		c := build(4, 2, LRU)

		Expect(c.Access(1, tagA)).To(Equal(CompulsoryMiss))
		Expect(c.Access(1, tagB)).To(Equal(CompulsoryMiss))
		Expect(c.Access(2, tagA)).To(Equal(CompulsoryMiss))
	})

	It("should hit on an immediate re-access", func() {
		for _, policy := range []ReplacementPolicy{LRU, FIFO, Random} {
			c := build(4, 2, policy)

			c.Access(3, tagA)

			Expect(c.Access(3, tagA)).To(Equal(Hit))
		}
	})

	It("should classify conflict and capacity misses", func() {
		c := build(2, 1, LRU)

		Expect(c.Access(0, tagA)).To(Equal(CompulsoryMiss))
		Expect(c.Access(0, tagB)).To(Equal(ConflictMiss))
		Expect(c.Access(1, tagA)).To(Equal(CompulsoryMiss))
		Expect(c.Access(0, tagC)).To(Equal(CapacityMiss))
		Expect(c.Access(1, tagB)).To(Equal(CapacityMiss))

		Expect(c.Performance()).To(Equal(Performance{
			Accesses:         5,
			Misses:           5,
			CompulsoryMisses: 2,
			CapacityMisses:   2,
			ConflictMisses:   1,
			SlotsOccupied:    2,
		}))
	})

	Context("LRU with two ways", func() {
		var c *Comp

		BeforeEach(func() {
			c = build(1, 2, LRU)
			c.Access(0, tagA)
			c.Access(0, tagB)
			Expect(c.Access(0, tagC)).To(Equal(CapacityMiss))
		})

		It("should have evicted the least recently used tag", func() {
			Expect(c.Access(0, tagA)).To(Equal(CapacityMiss))
		})

		It("should keep the more recent tag", func() {
			Expect(c.Access(0, tagB)).To(Equal(Hit))
		})
	})

	It("should let a hit protect a block under LRU", func() {
		c := build(1, 2, LRU)

		c.Access(0, tagA)
		c.Access(0, tagB)
		c.Access(0, tagA)
		c.Access(0, tagC)

		Expect(c.Access(0, tagA)).To(Equal(Hit))
		Expect(c.Access(0, tagB)).To(Equal(CapacityMiss))
	})

	It("should evict in insertion order under FIFO", func() {
		c := build(1, 2, FIFO)

		c.Access(0, tagA)
		c.Access(0, tagB)
		c.Access(0, tagA)
		c.Access(0, tagC)

		Expect(c.Access(0, tagB)).To(Equal(Hit))
		Expect(c.Access(0, tagA)).To(Equal(CapacityMiss))
	})

	It("should replay Random runs with the same seed", func() {
		addrs := randomTrace(5000, 11)

		c1 := MakeBuilder().
			WithNumSets(16).
			WithWayAssociativity(4).
			WithReplacementPolicy(Random).
			WithSeed(99).
			Build("C1")
		c2 := MakeBuilder().
			WithNumSets(16).
			WithWayAssociativity(4).
			WithReplacementPolicy(Random).
			WithSeed(99).
			Build("C2")

		for _, addr := range addrs {
			Expect(c1.AccessAddress(addr)).To(Equal(c2.AccessAddress(addr)))
		}

		Expect(c1.Performance()).To(Equal(c2.Performance()))
		for i := 0; i < 16; i++ {
			Expect(c1.SetState(i)).To(Equal(c2.SetState(i)))
		}
	})

	DescribeTable("should keep the counters consistent after every access",
		func(policy ReplacementPolicy) {
			c := build(8, 2, policy)

			for _, addr := range randomTrace(2000, 5) {
				c.AccessAddress(addr)
				Expect(c.Performance().Check()).To(Succeed())
			}

			perf := c.Performance()
			Expect(perf.Accesses).To(Equal(uint64(2000)))
			Expect(perf.SlotsOccupied).To(Equal(uint64(16)))
			Expect(perf.CompulsoryMisses).To(Equal(uint64(16)))
		},
		Entry("LRU", LRU),
		Entry("FIFO", FIFO),
		Entry("Random", Random),
	)

	It("should reproduce the recorded Random regression run", func() {
		c := MakeBuilder().
			WithNumSets(256).
			WithBlockSize(4).
			WithWayAssociativity(1).
			WithReplacementPolicy(Random).
			WithSeed(42).
			Build("Regression")

		perf := c.Run(loadRegressionTrace())

		Expect(perf).To(Equal(Performance{
			Accesses:         100,
			Hits:             15,
			Misses:           85,
			CompulsoryMisses: 43,
			CapacityMisses:   0,
			ConflictMisses:   42,
			SlotsOccupied:    43,
		}))
	})

	It("should reproduce the recorded LRU regression run", func() {
		c := MakeBuilder().
			WithNumSets(16).
			WithBlockSize(4).
			WithWayAssociativity(2).
			WithReplacementPolicy(LRU).
			Build("Regression")

		perf := c.Run(loadRegressionTrace())

		Expect(perf).To(Equal(Performance{
			Accesses:         100,
			Hits:             13,
			Misses:           87,
			CompulsoryMisses: 32,
			CapacityMisses:   29,
			ConflictMisses:   26,
			SlotsOccupied:    32,
		}))
	})

	It("should panic on a set index out of range", func() {
		c := build(4, 1, LRU)

		Expect(func() { c.Access(4, tagA) }).To(Panic())
	})

	It("should invoke hooks after each access", func() {
		c := build(4, 1, LRU)
		hook := NewMockHook(mockCtrl)
		c.AcceptHook(hook)

		hook.EXPECT().Func(gomock.Any()).Do(func(ctx sim.HookCtx) {
			Expect(ctx.Domain).To(BeIdenticalTo(c))
			Expect(ctx.Pos).To(BeIdenticalTo(HookPosAccess))

			info := ctx.Item.(AccessInfo)
			Expect(info.Seq).To(Equal(uint64(1)))
			Expect(info.Address).To(Equal(uint32(0x4a7)))
			Expect(info.Fields.Tag).To(Equal(uint32(0x4a)))
			Expect(info.Fields.Index).To(Equal(uint32(1)))
			Expect(info.Fields.Offset).To(Equal(uint32(3)))
			Expect(info.Outcome).To(Equal(CompulsoryMiss))
		})

		c.AccessAddress(0x4a7)
	})

	It("should expose the set state", func() {
		c := build(2, 2, FIFO)

		c.Access(1, tagA)

		Expect(c.SetState(1)).To(Equal([]BlockState{
			{Tag: tagA, IsValid: true, Replaceability: 0},
			{Replaceability: 1},
		}))
	})
})

var _ = Describe("AccessLogger", func() {
	It("should print the decoded fields in binary", func() {
		buf := new(bytes.Buffer)
		c := MakeBuilder().
			WithNumSets(4).
			WithBlockSize(4).
			WithSeed(1).
			Build("Cache")
		c.AcceptHook(NewAccessLogger(log.New(buf, "", 0), c.Decoder()))

		c.AccessAddress(0x4a7)
		c.AccessAddress(0x4a4)

		Expect(buf.String()).To(Equal(
			"1, 0x000004a7, tag=0000000000000000000001001010, " +
				"index=01, offset=11, compulsory miss\n" +
				"2, 0x000004a4, tag=0000000000000000000001001010, " +
				"index=01, offset=00, hit\n"))
	})

	It("should ignore other hook positions", func() {
		buf := new(bytes.Buffer)
		h := NewAccessLogger(log.New(buf, "", 0), MakeBuilder().Build("C").Decoder())

		h.Func(sim.HookCtx{Pos: &sim.HookPos{Name: "Other"}})

		Expect(buf.Len()).To(BeZero())
	})
})

var _ = Describe("Performance", func() {
	It("should compute rates as fractions of accesses and misses", func() {
		p := Performance{
			Accesses:         10,
			Hits:             6,
			Misses:           4,
			CompulsoryMisses: 2,
			CapacityMisses:   1,
			ConflictMisses:   1,
		}

		Expect(p.HitRate()).To(BeNumerically("~", 0.6))
		Expect(p.MissRate()).To(BeNumerically("~", 0.4))
		Expect(p.CompulsoryFraction()).To(BeNumerically("~", 0.5))
		Expect(p.CapacityFraction()).To(BeNumerically("~", 0.25))
		Expect(p.ConflictFraction()).To(BeNumerically("~", 0.25))
		Expect(p.Check()).To(Succeed())
	})

	It("should report zero rates without accesses", func() {
		p := Performance{}

		Expect(p.HitRate()).To(BeZero())
		Expect(p.ConflictFraction()).To(BeZero())
	})

	It("should detect inconsistent counters", func() {
		Expect(Performance{Accesses: 2, Hits: 1}.Check()).To(HaveOccurred())
		Expect(Performance{Accesses: 1, Misses: 1}.Check()).To(HaveOccurred())
	})
})
