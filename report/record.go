package report

import (
	"fmt"
	"slices"

	"github.com/sarchlab/csim/datarecording"
)

// RunsTableName is the table that holds one row per run.
const RunsTableName = "cache_runs"

// Row is the database form of a Report. The seed and the digest are stored
// as hexadecimal text because SQLite integers are signed.
type Row struct {
	RunID            string
	Name             string
	NumSets          int
	BlockSize        int
	Associativity    int
	Replacement      string
	Kind             string
	Seed             string
	Source           string
	Digest           string
	Accesses         uint64
	Hits             uint64
	Misses           uint64
	CompulsoryMisses uint64
	CapacityMisses   uint64
	ConflictMisses   uint64
	HitRate          float64
}

// Row converts the report into a database row.
func (r Report) Row() Row {
	p := r.Performance

	return Row{
		RunID:            r.RunID,
		Name:             r.Name,
		NumSets:          r.NumSets,
		BlockSize:        r.BlockSize,
		Associativity:    r.Associativity,
		Replacement:      r.Replacement,
		Kind:             r.Kind,
		Seed:             fmt.Sprintf("%#x", r.Seed),
		Source:           r.Source,
		Digest:           fmt.Sprintf("0x%016x", r.Digest),
		Accesses:         p.Accesses,
		Hits:             p.Hits,
		Misses:           p.Misses,
		CompulsoryMisses: p.CompulsoryMisses,
		CapacityMisses:   p.CapacityMisses,
		ConflictMisses:   p.ConflictMisses,
		HitRate:          r.Rates.Hit,
	}
}

// Record stores the report in the runs table, creating the table on first
// use.
func Record(recorder datarecording.DataRecorder, r Report) {
	if !slices.Contains(recorder.ListTables(), RunsTableName) {
		recorder.CreateTable(RunsTableName, Row{})
	}

	recorder.InsertData(RunsTableName, r.Row())
}
