package cache

import "fmt"

// Performance holds the running counters of a cache.
type Performance struct {
	Accesses         uint64 `json:"accesses"`
	Hits             uint64 `json:"hits"`
	Misses           uint64 `json:"misses"`
	CompulsoryMisses uint64 `json:"compulsory_misses"`
	CapacityMisses   uint64 `json:"capacity_misses"`
	ConflictMisses   uint64 `json:"conflict_misses"`

	// SlotsOccupied counts the blocks that were filled at least once.
	SlotsOccupied uint64 `json:"slots_occupied"`
}

// HitRate is the fraction of accesses that hit.
func (p Performance) HitRate() float64 {
	return ratio(p.Hits, p.Accesses)
}

// MissRate is the fraction of accesses that missed.
func (p Performance) MissRate() float64 {
	return ratio(p.Misses, p.Accesses)
}

// CompulsoryFraction is the fraction of misses that were compulsory.
func (p Performance) CompulsoryFraction() float64 {
	return ratio(p.CompulsoryMisses, p.Misses)
}

// CapacityFraction is the fraction of misses that were capacity misses.
func (p Performance) CapacityFraction() float64 {
	return ratio(p.CapacityMisses, p.Misses)
}

// ConflictFraction is the fraction of misses that were conflict misses.
func (p Performance) ConflictFraction() float64 {
	return ratio(p.ConflictMisses, p.Misses)
}

// Check verifies that the counters add up.
func (p Performance) Check() error {
	if p.Hits+p.Misses != p.Accesses {
		return fmt.Errorf("%d hits and %d misses do not add up to %d accesses",
			p.Hits, p.Misses, p.Accesses)
	}

	causes := p.CompulsoryMisses + p.CapacityMisses + p.ConflictMisses
	if causes != p.Misses {
		return fmt.Errorf("miss causes add up to %d, expected %d misses",
			causes, p.Misses)
	}

	return nil
}

func (p *Performance) count(outcome AccessOutcome) {
	p.Accesses++

	switch outcome {
	case Hit:
		p.Hits++
		return
	case CompulsoryMiss:
		p.CompulsoryMisses++
		p.SlotsOccupied++
	case CapacityMiss:
		p.CapacityMisses++
	case ConflictMiss:
		p.ConflictMisses++
	}

	p.Misses++
}

func ratio(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}

	return float64(part) / float64(whole)
}
