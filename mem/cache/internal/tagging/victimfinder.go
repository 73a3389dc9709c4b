package tagging

// findVictim returns the way that receives a new tag. Empty ways are always
// filled first, in way order.
func (s *Set) findVictim(policy Policy, rng RandSource) int {
	if wayID, found := s.findVacancy(); found {
		return wayID
	}

	switch policy {
	case LRU, FIFO:
		return s.findOldest()
	case Random:
		return s.findRandom(rng)
	default:
		panic("unknown replacement policy: " + policy.String())
	}
}

func (s *Set) findVacancy() (int, bool) {
	for i := range s.Blocks {
		if !s.Blocks[i].IsValid {
			return i, true
		}
	}

	return 0, false
}

// findOldest returns the block with the highest replaceability. Ties go to
// the lowest way.
func (s *Set) findOldest() int {
	if len(s.Blocks) == 0 {
		panic("cannot evict from a set without ways")
	}

	victim := 0
	for i := 1; i < len(s.Blocks); i++ {
		if s.Blocks[i].Replaceability > s.Blocks[victim].Replaceability {
			victim = i
		}
	}

	return victim
}

func (s *Set) findRandom(rng RandSource) int {
	if len(s.Blocks) == 0 {
		panic("cannot evict from a set without ways")
	}

	if rng == nil {
		panic("random replacement requires a random source")
	}

	return rng.IntN(len(s.Blocks))
}
