package tagging

// A Block is one way of a set. Tag is only meaningful when IsValid is set.
type Block struct {
	Tag            uint32
	SetID          int
	WayID          int
	IsValid        bool
	Replaceability uint64
}

// A Set is a list of blocks where a certain piece of memory can be stored
// at.
type Set struct {
	Blocks []Block
}

// Locate returns the way that holds tag.
func (s *Set) Locate(tag uint32) (wayID int, found bool) {
	for i := range s.Blocks {
		if s.Blocks[i].IsValid && s.Blocks[i].Tag == tag {
			return i, true
		}
	}

	return 0, false
}

// Contains tells if tag is stored in the set.
func (s *Set) Contains(tag uint32) bool {
	_, found := s.Locate(tag)
	return found
}

// UninitializedCount returns the number of ways that were never filled.
func (s *Set) UninitializedCount() int {
	count := 0

	for i := range s.Blocks {
		if !s.Blocks[i].IsValid {
			count++
		}
	}

	return count
}

// RegisterHit updates the recency bookkeeping after tag is found. Only LRU
// keeps track of hits.
func (s *Set) RegisterHit(tag uint32, policy Policy) {
	if policy != LRU {
		return
	}

	wayID, found := s.Locate(tag)
	if !found {
		return
	}

	s.touch(wayID)
}

// InsertOrUpdate stores tag in the set, evicting a block chosen by policy if
// every way is taken. A tag that is already present only gets the hit
// bookkeeping.
func (s *Set) InsertOrUpdate(tag uint32, policy Policy, rng RandSource) {
	if s.Contains(tag) {
		s.RegisterHit(tag, policy)
		return
	}

	wayID := s.findVictim(policy, rng)

	block := &s.Blocks[wayID]
	block.Tag = tag
	block.IsValid = true

	if policy != Random {
		s.touch(wayID)
	}
}

// touch makes wayID the youngest block and ages every other one.
func (s *Set) touch(wayID int) {
	for i := range s.Blocks {
		if i == wayID {
			s.Blocks[i].Replaceability = 0
			continue
		}

		s.Blocks[i].Replaceability++
	}
}

// A TagArray holds all the sets of a cache.
type TagArray struct {
	NumSets int
	NumWays int
	Sets    []Set
}

// NewTagArray creates a tag array with every block invalid.
func NewTagArray(numSets, numWays int) *TagArray {
	t := &TagArray{
		NumSets: numSets,
		NumWays: numWays,
	}

	t.Reset()

	return t
}

// TotalSlots returns the number of blocks across all sets.
func (t *TagArray) TotalSlots() int {
	return t.NumSets * t.NumWays
}

// GetSet returns the set with the given index.
func (t *TagArray) GetSet(setID int) *Set {
	return &t.Sets[setID]
}

// Reset will mark all the blocks in the array invalid.
func (t *TagArray) Reset() {
	t.Sets = make([]Set, t.NumSets)
	for i := 0; i < t.NumSets; i++ {
		t.Sets[i].Blocks = make([]Block, t.NumWays)
		for j := 0; j < t.NumWays; j++ {
			t.Sets[i].Blocks[j] = Block{
				SetID: i,
				WayID: j,
			}
		}
	}
}
