package tagging

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type scriptedRand struct {
	picks []int
	asked []int
}

func (r *scriptedRand) IntN(n int) int {
	r.asked = append(r.asked, n)
	pick := r.picks[0]
	r.picks = r.picks[1:]

	return pick
}

func tagsOf(s *Set) []uint32 {
	tags := []uint32{}
	for _, b := range s.Blocks {
		tags = append(tags, b.Tag)
	}

	return tags
}

var _ = Describe("TagArray", func() {
	var tags *TagArray

	BeforeEach(func() {
		tags = NewTagArray(1024, 4)
	})

	It("should create invalid blocks", func() {
		Expect(tags.Sets).To(HaveLen(1024))
		Expect(tags.TotalSlots()).To(Equal(4096))

		set := tags.GetSet(17)
		Expect(set.Blocks).To(HaveLen(4))
		Expect(set.UninitializedCount()).To(Equal(4))
		for i, b := range set.Blocks {
			Expect(b.IsValid).To(BeFalse())
			Expect(b.SetID).To(Equal(17))
			Expect(b.WayID).To(Equal(i))
		}
	})

	It("should reset", func() {
		tags.GetSet(3).InsertOrUpdate(0x100, LRU, nil)

		tags.Reset()

		Expect(tags.GetSet(3).Contains(0x100)).To(BeFalse())
	})
})

var _ = Describe("Set", func() {
	var set *Set

	BeforeEach(func() {
		set = NewTagArray(1, 4).GetSet(0)
	})

	It("should not find a tag in an empty set", func() {
		_, found := set.Locate(0x100)
		Expect(found).To(BeFalse())
		Expect(set.Contains(0)).To(BeFalse())
	})

	It("should not match an invalid block with the same tag", func() {
		set.Blocks[2].Tag = 0x100

		Expect(set.Contains(0x100)).To(BeFalse())
	})

	It("should fill vacancies in way order", func() {
		set.InsertOrUpdate(0xa, FIFO, nil)
		set.InsertOrUpdate(0xb, FIFO, nil)

		wayID, found := set.Locate(0xb)
		Expect(found).To(BeTrue())
		Expect(wayID).To(Equal(1))
		Expect(set.UninitializedCount()).To(Equal(2))
	})

	It("should not insert a present tag twice", func() {
		set.InsertOrUpdate(0xa, LRU, nil)
		set.InsertOrUpdate(0xa, LRU, nil)

		Expect(set.UninitializedCount()).To(Equal(3))
	})

	Context("LRU", func() {
		It("should age the other blocks on insert and hit", func() {
			set.InsertOrUpdate(0xa, LRU, nil)
			set.InsertOrUpdate(0xb, LRU, nil)
			set.RegisterHit(0xa, LRU)

			Expect(set.Blocks[0].Replaceability).To(Equal(uint64(0)))
			Expect(set.Blocks[1].Replaceability).To(Equal(uint64(1)))
		})

		It("should evict the least recently used block", func() {
			for _, tag := range []uint32{0xa, 0xb, 0xc, 0xd} {
				set.InsertOrUpdate(tag, LRU, nil)
			}
			set.RegisterHit(0xa, LRU)

			set.InsertOrUpdate(0xe, LRU, nil)

			Expect(tagsOf(set)).To(Equal([]uint32{0xa, 0xe, 0xc, 0xd}))
		})

		It("should treat a re-insert as a hit", func() {
			set.InsertOrUpdate(0xa, LRU, nil)
			set.InsertOrUpdate(0xb, LRU, nil)
			set.InsertOrUpdate(0xa, LRU, nil)

			Expect(set.Blocks[0].Replaceability).To(Equal(uint64(0)))
			Expect(set.Blocks[1].Replaceability).To(Equal(uint64(1)))
		})
	})

	Context("FIFO", func() {
		It("should ignore hits", func() {
			set.InsertOrUpdate(0xa, FIFO, nil)
			set.InsertOrUpdate(0xb, FIFO, nil)
			set.RegisterHit(0xa, FIFO)

			Expect(set.Blocks[0].Replaceability).To(Equal(uint64(1)))
			Expect(set.Blocks[1].Replaceability).To(Equal(uint64(0)))
		})

		It("should evict the oldest inserted block", func() {
			for _, tag := range []uint32{0xa, 0xb, 0xc, 0xd} {
				set.InsertOrUpdate(tag, FIFO, nil)
			}
			set.RegisterHit(0xa, FIFO)

			set.InsertOrUpdate(0xe, FIFO, nil)
			set.InsertOrUpdate(0xf, FIFO, nil)

			Expect(tagsOf(set)).To(Equal([]uint32{0xe, 0xf, 0xc, 0xd}))
		})
	})

	Context("Random", func() {
		It("should fill vacancies without asking the random source", func() {
			rng := &scriptedRand{}

			for _, tag := range []uint32{0xa, 0xb, 0xc, 0xd} {
				set.InsertOrUpdate(tag, Random, rng)
			}

			Expect(rng.asked).To(BeEmpty())
			Expect(tagsOf(set)).To(Equal([]uint32{0xa, 0xb, 0xc, 0xd}))
		})

		It("should evict the way picked by the random source", func() {
			rng := &scriptedRand{picks: []int{2, 0}}
			for _, tag := range []uint32{0xa, 0xb, 0xc, 0xd} {
				set.InsertOrUpdate(tag, Random, rng)
			}

			set.InsertOrUpdate(0xe, Random, rng)
			set.InsertOrUpdate(0xf, Random, rng)

			Expect(rng.asked).To(Equal([]int{4, 4}))
			Expect(tagsOf(set)).To(Equal([]uint32{0xf, 0xb, 0xe, 0xd}))
		})

		It("should panic when evicting from a set without ways", func() {
			empty := &Set{}

			Expect(func() {
				empty.InsertOrUpdate(0xa, Random, &scriptedRand{})
			}).To(Panic())
		})
	})
})

var _ = Describe("Policy", func() {
	DescribeTable("should parse tokens",
		func(token string, expected Policy) {
			p, err := ParsePolicy(token)
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(expected))
		},
		Entry("l", "l", LRU),
		Entry("LRU", "LRU", LRU),
		Entry("f", "F", FIFO),
		Entry("fifo", "fifo", FIFO),
		Entry("r", "r", Random),
		Entry("Random", "Random", Random),
	)

	It("should reject unknown tokens", func() {
		_, err := ParsePolicy("mru")
		Expect(err).To(HaveOccurred())
	})

	It("should print names", func() {
		Expect(FIFO.String()).To(Equal("FIFO"))
	})
})
