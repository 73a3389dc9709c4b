package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/natefinch/atomic"
)

var sweepColumns = []string{
	"Sets", "Block", "Ways", "Size", "Policy",
	"Accesses", "Hit rate", "Compulsory", "Capacity", "Conflict",
}

// WriteMarkdown prints the reports as a Markdown table, one row per run in
// the given order.
func WriteMarkdown(w io.Writer, reports []Report) error {
	var b bytes.Buffer

	b.WriteString("| " + strings.Join(sweepColumns, " | ") + " |\n")

	b.WriteString("|")
	for range sweepColumns {
		b.WriteString("---:|")
	}
	b.WriteString("\n")

	for _, r := range reports {
		p := r.Performance

		fmt.Fprintf(&b, "| %d | %s | %d | %s | %s | %s | %s | %s | %s | %s |\n",
			r.NumSets,
			humanize.IBytes(uint64(r.BlockSize)),
			r.Associativity,
			humanize.IBytes(r.TotalSize),
			r.Replacement,
			comma(p.Accesses),
			percent(r.Rates.Hit),
			comma(p.CompulsoryMisses),
			comma(p.CapacityMisses),
			comma(p.ConflictMisses),
		)
	}

	_, err := w.Write(b.Bytes())

	return err
}

// WriteMarkdownFile replaces the file at path with the Markdown table of the
// reports.
func WriteMarkdownFile(path string, reports []Report) error {
	var b bytes.Buffer

	err := WriteMarkdown(&b, reports)
	if err != nil {
		return err
	}

	err = atomic.WriteFile(path, &b)
	if err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}

	return nil
}

// Best returns the index of the report with the highest hit rate. Ties go to
// the earlier report. It returns -1 for an empty slice.
func Best(reports []Report) int {
	best := -1

	for i, r := range reports {
		if best < 0 || r.Rates.Hit > reports[best].Rates.Hit {
			best = i
		}
	}

	return best
}
