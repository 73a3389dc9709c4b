package cache

// AccessOutcome classifies one access.
type AccessOutcome int

// The possible outcomes of an access. Misses are split by cause.
const (
	Hit AccessOutcome = iota
	CompulsoryMiss
	CapacityMiss
	ConflictMiss
)

// IsHit tells if the block was found.
func (o AccessOutcome) IsHit() bool {
	return o == Hit
}

// IsMiss tells if the block had to be brought in.
func (o AccessOutcome) IsMiss() bool {
	return o != Hit
}

func (o AccessOutcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case CompulsoryMiss:
		return "compulsory miss"
	case CapacityMiss:
		return "capacity miss"
	case ConflictMiss:
		return "conflict miss"
	default:
		return "unknown"
	}
}
