// Package report formats the results of simulation runs as text, JSON,
// Markdown and database rows.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/natefinch/atomic"

	"github.com/sarchlab/csim/analysis"
	"github.com/sarchlab/csim/mem/cache"
)

// Report describes one finished run.
type Report struct {
	RunID         string            `json:"run_id,omitempty"`
	Name          string            `json:"name"`
	NumSets       int               `json:"nsets"`
	BlockSize     int               `json:"bsize"`
	Associativity int               `json:"assoc"`
	Replacement   string            `json:"repl"`
	Kind          string            `json:"kind"`
	TotalSize     uint64            `json:"total_size"`
	TotalSlots    int               `json:"total_slots"`
	Seed          uint64            `json:"seed"`
	Source        string            `json:"source"`
	Digest        uint64            `json:"digest"`
	Performance   cache.Performance `json:"performance"`
	Rates         Rates             `json:"rates"`
	Reference     *analysis.ThreeCs `json:"reference,omitempty"`
}

// Rates are the derived ratios of a run. The miss kinds are fractions of the
// misses, not of the accesses.
type Rates struct {
	Hit        float64 `json:"hit"`
	Miss       float64 `json:"miss"`
	Compulsory float64 `json:"compulsory"`
	Capacity   float64 `json:"capacity"`
	Conflict   float64 `json:"conflict"`
}

// New collects the report of a cache that has finished running the trace
// identified by source and digest.
func New(comp *cache.Comp, source string, digest uint64) Report {
	cfg := comp.Config()
	perf := comp.Performance()

	return Report{
		Name:          comp.Name(),
		NumSets:       cfg.NumSets,
		BlockSize:     cfg.BlockSize,
		Associativity: cfg.WayAssociativity,
		Replacement:   cfg.ReplacementPolicy.String(),
		Kind:          cfg.Kind.String(),
		TotalSize:     cfg.TotalSize(),
		TotalSlots:    cfg.TotalSlots(),
		Seed:          comp.Seed(),
		Source:        source,
		Digest:        digest,
		Performance:   perf,
		Rates:         RatesOf(perf),
	}
}

// RatesOf derives the ratios of a set of counters.
func RatesOf(perf cache.Performance) Rates {
	return Rates{
		Hit:        perf.HitRate(),
		Miss:       perf.MissRate(),
		Compulsory: perf.CompulsoryFraction(),
		Capacity:   perf.CapacityFraction(),
		Conflict:   perf.ConflictFraction(),
	}
}

// WriteSummary prints the one-line summary
// `accesses, hit_rate, miss_rate, compulsory, capacity, conflict`.
func WriteSummary(w io.Writer, perf cache.Performance) error {
	r := RatesOf(perf)

	_, err := fmt.Fprintf(w, "%d, %.6f, %.6f, %.6f, %.6f, %.6f\n",
		perf.Accesses, r.Hit, r.Miss, r.Compulsory, r.Capacity, r.Conflict)

	return err
}

// WriteDump prints every setting and counter of a run.
func WriteDump(w io.Writer, r Report) error {
	var b bytes.Buffer

	p := r.Performance

	fmt.Fprintf(&b, "Cache:        %d sets x %d ways x %s blocks = %s (%s, %s)\n",
		r.NumSets, r.Associativity,
		humanize.IBytes(uint64(r.BlockSize)), humanize.IBytes(r.TotalSize),
		r.Kind, r.Replacement)
	fmt.Fprintf(&b, "Seed:         %d\n", r.Seed)
	fmt.Fprintf(&b, "Trace:        %s\n", r.Source)
	fmt.Fprintf(&b, "Digest:       0x%016x\n", r.Digest)
	fmt.Fprintf(&b, "Accesses:     %s\n", comma(p.Accesses))
	fmt.Fprintf(&b, "Hits:         %s (%s)\n", comma(p.Hits), percent(r.Rates.Hit))
	fmt.Fprintf(&b, "Misses:       %s (%s)\n", comma(p.Misses), percent(r.Rates.Miss))
	fmt.Fprintf(&b, "  Compulsory: %s (%s of misses)\n",
		comma(p.CompulsoryMisses), percent(r.Rates.Compulsory))
	fmt.Fprintf(&b, "  Capacity:   %s (%s of misses)\n",
		comma(p.CapacityMisses), percent(r.Rates.Capacity))
	fmt.Fprintf(&b, "  Conflict:   %s (%s of misses)\n",
		comma(p.ConflictMisses), percent(r.Rates.Conflict))
	fmt.Fprintf(&b, "Occupied:     %s of %s slots\n",
		comma(p.SlotsOccupied), comma(uint64(r.TotalSlots)))

	if r.Reference != nil {
		fmt.Fprintf(&b, "Reference:    %s compulsory, %s capacity, %s conflict\n",
			humanize.Comma(r.Reference.Compulsory),
			humanize.Comma(r.Reference.Capacity),
			humanize.Comma(r.Reference.Conflict))
	}

	_, err := w.Write(b.Bytes())

	return err
}

// WriteJSON replaces the file at path with the indented JSON of v. Readers
// never observe a partially written file.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode %s: %w", path, err)
	}

	data = append(data, '\n')

	err = atomic.WriteFile(path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}

	return nil
}

func comma(v uint64) string {
	return humanize.Comma(int64(v))
}

func percent(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}
