// Package workload generates synthetic address streams.
package workload

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
)

// Pattern selects the shape of a generated address stream.
type Pattern int

// The supported patterns.
const (
	// Uniform draws addresses uniformly from [0, Span).
	Uniform Pattern = iota
	// Sequential walks [0, Span) in steps of Stride and wraps around.
	Sequential
	// Zipf draws Span distinct blocks of Stride bytes with a skewed
	// popularity.
	Zipf
)

func (p Pattern) String() string {
	switch p {
	case Uniform:
		return "uniform"
	case Sequential:
		return "sequential"
	case Zipf:
		return "zipf"
	default:
		return fmt.Sprintf("Pattern(%d)", int(p))
	}
}

// ParsePattern converts a command line token into a Pattern.
func ParsePattern(token string) (Pattern, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "u", "uniform":
		return Uniform, nil
	case "s", "seq", "sequential":
		return Sequential, nil
	case "z", "zipf":
		return Zipf, nil
	default:
		return 0, fmt.Errorf("unknown pattern %q", token)
	}
}

// DefaultTheta is the Zipf skew used when none is given.
const DefaultTheta = 0.99

// DefaultZipfSpan is the number of distinct Zipf blocks used when no span is
// given.
const DefaultZipfSpan = 1 << 16

// Spec describes a stream to generate.
type Spec struct {
	Pattern Pattern
	Size    int
	Seed    uint64

	// Span bounds the addresses for Uniform and Sequential (0 means the
	// whole 32-bit space) and counts the distinct blocks for Zipf.
	Span uint64

	// Stride is the Sequential step and the Zipf block size. Defaults to 4.
	Stride uint32

	// Theta is the Zipf skew. Defaults to DefaultTheta.
	Theta float64
}

// Generate produces the address stream. The same Spec always gives the same
// stream.
func Generate(spec Spec) []uint32 {
	if spec.Size < 0 {
		panic("negative workload size")
	}

	if spec.Stride == 0 {
		spec.Stride = 4
	}

	rng := rand.New(rand.NewPCG(spec.Seed, spec.Seed+1))

	switch spec.Pattern {
	case Uniform:
		return generateUniform(rng, spec)
	case Sequential:
		return generateSequential(spec)
	case Zipf:
		return generateZipf(rng, spec)
	default:
		panic("unknown pattern " + spec.Pattern.String())
	}
}

func addressSpan(span uint64) uint64 {
	if span == 0 || span > 1<<32 {
		return 1 << 32
	}

	return span
}

func generateUniform(rng *rand.Rand, spec Spec) []uint32 {
	span := addressSpan(spec.Span)

	addrs := make([]uint32, spec.Size)
	for i := range addrs {
		addrs[i] = uint32(rng.Uint64N(span))
	}

	return addrs
}

func generateSequential(spec Spec) []uint32 {
	span := addressSpan(spec.Span)

	addrs := make([]uint32, spec.Size)
	next := uint64(0)
	for i := range addrs {
		addrs[i] = uint32(next)
		next = (next + uint64(spec.Stride)) % span
	}

	return addrs
}

func generateZipf(rng *rand.Rand, spec Spec) []uint32 {
	theta := spec.Theta
	if theta == 0 {
		theta = DefaultTheta
	}

	keySpace := spec.Span
	if keySpace == 0 {
		keySpace = DefaultZipfSpan
	}

	keys := zipfKeys(rng, spec.Size, keySpace, theta)

	addrs := make([]uint32, len(keys))
	for i, key := range keys {
		addrs[i] = uint32(key * uint64(spec.Stride))
	}

	return addrs
}

// zipfKeys draws n keys in [0, keySpace) following the YCSB Zipfian
// generator.
func zipfKeys(rng *rand.Rand, n int, keySpace uint64, theta float64) []uint64 {
	spread := keySpace + 1
	zeta2 := computeZeta(2, theta)
	zetaN := computeZeta(spread, theta)
	alpha := 1.0 / (1.0 - theta)
	eta := (1 - math.Pow(2.0/float64(spread), 1.0-theta)) / (1.0 - zeta2/zetaN)
	halfPowTheta := 1.0 + math.Pow(0.5, theta)

	keys := make([]uint64, n)
	for i := range keys {
		u := rng.Float64()
		uz := u * zetaN

		var result uint64
		switch {
		case uz < 1.0:
			result = 0
		case uz < halfPowTheta:
			result = 1
		default:
			result = uint64(float64(spread) * math.Pow(eta*u-eta+1.0, alpha))
		}

		if result >= keySpace {
			result = keySpace - 1
		}

		keys[i] = result
	}

	return keys
}

func computeZeta(n uint64, theta float64) float64 {
	sum := 0.0
	for i := uint64(1); i <= n; i++ {
		sum += 1.0 / math.Pow(float64(i), theta)
	}

	return sum
}
