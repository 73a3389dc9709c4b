// Package config resolves the settings of a simulation run from defaults, a
// JSON-with-comments file, the environment and the command line.
package config

import (
	"fmt"
	"strconv"

	"github.com/sarchlab/csim/mem/addressing"
	"github.com/sarchlab/csim/mem/cache"
	"github.com/sarchlab/csim/mem/trace/workload"
)

// Config holds all the settings of a run.
type Config struct {
	NumSets       int    `json:"nsets"`
	BlockSize     int    `json:"bsize"`
	Associativity int    `json:"assoc"`
	Replacement   string `json:"repl"`
	Kind          string `json:"kind"`
	Verbosity     int    `json:"verbosity"`

	// Input is the trace file. When empty, a synthetic stream is generated.
	Input string `json:"input,omitempty"`

	Size    int     `json:"size"`
	Seed    *uint64 `json:"seed,omitempty"`
	Pattern string  `json:"pattern"`
	Span    uint64  `json:"span,omitempty"`
	Stride  uint32  `json:"stride,omitempty"`

	// Sources tracks where settings were loaded from (for diagnostics).
	Sources Sources `json:"-"`
}

// Sources tracks which files contributed to a Config.
type Sources struct {
	File   string // Path of the config file if loaded, empty otherwise
	DotEnv string // Path of the .env file if loaded, empty otherwise
}

// Default returns the configuration used when nothing else is given.
func Default() Config {
	return Config{
		NumSets:       256,
		BlockSize:     4,
		Associativity: 1,
		Replacement:   "lru",
		Kind:          "data",
		Verbosity:     1,
		Size:          100000,
		Pattern:       "uniform",
	}
}

// Synthetic reports whether the run generates its own trace.
func (c Config) Synthetic() bool {
	return c.Input == ""
}

// Validate checks every field and reports the first malformed one as a
// *ConfigError.
func (c Config) Validate() error {
	powers := []struct {
		field string
		value int
	}{
		{"nsets", c.NumSets},
		{"bsize", c.BlockSize},
		{"assoc", c.Associativity},
	}

	for _, p := range powers {
		if p.value <= 0 || !addressing.IsPowerOfTwo(uint64(p.value)) {
			return &ConfigError{
				Field:  p.field,
				Value:  strconv.Itoa(p.value),
				Reason: "is not a power of 2",
			}
		}
	}

	bits := addressing.Log2(uint64(c.NumSets)) +
		addressing.Log2(uint64(c.BlockSize))
	if bits > addressing.AddressBits {
		return &ConfigError{
			Field:  "nsets",
			Value:  strconv.Itoa(c.NumSets),
			Reason: fmt.Sprintf("leaves no room in a %d-bit address for blocks of %d bytes", addressing.AddressBits, c.BlockSize),
		}
	}

	if _, err := cache.ParseReplacementPolicy(c.Replacement); err != nil {
		return &ConfigError{Field: "repl", Value: c.Replacement, Reason: "is not one of l, lru, f, fifo, r, random"}
	}

	if _, err := cache.ParseKind(c.Kind); err != nil {
		return &ConfigError{Field: "kind", Value: c.Kind, Reason: "is not one of d, data, i, instruction, b, both"}
	}

	if c.Verbosity < 0 || c.Verbosity > 2 {
		return &ConfigError{Field: "verbosity", Value: strconv.Itoa(c.Verbosity), Reason: "is not 0, 1 or 2"}
	}

	if !c.Synthetic() {
		return nil
	}

	if c.Size < 0 {
		return &ConfigError{Field: "size", Value: strconv.Itoa(c.Size), Reason: "is negative"}
	}

	if _, err := workload.ParsePattern(c.Pattern); err != nil {
		return &ConfigError{Field: "pattern", Value: c.Pattern, Reason: "is not one of uniform, sequential, zipf"}
	}

	return nil
}

// CacheConfig converts the settings into a cache geometry. The Config must
// have been validated.
func (c Config) CacheConfig() cache.Config {
	policy, err := cache.ParseReplacementPolicy(c.Replacement)
	if err != nil {
		panic(err)
	}

	kind, err := cache.ParseKind(c.Kind)
	if err != nil {
		panic(err)
	}

	return cache.Config{
		NumSets:           c.NumSets,
		BlockSize:         c.BlockSize,
		WayAssociativity:  c.Associativity,
		ReplacementPolicy: policy,
		Kind:              kind,
	}
}

// WorkloadSpec describes the synthetic stream for the given seed. The Config
// must have been validated.
func (c Config) WorkloadSpec(seed uint64) workload.Spec {
	pattern, err := workload.ParsePattern(c.Pattern)
	if err != nil {
		panic(err)
	}

	return workload.Spec{
		Pattern: pattern,
		Size:    c.Size,
		Seed:    seed,
		Span:    c.Span,
		Stride:  c.Stride,
	}
}
