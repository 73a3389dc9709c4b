package trace

import (
	"github.com/sarchlab/csim/datarecording"
	"github.com/sarchlab/csim/mem/cache"
	"github.com/sarchlab/csim/sim"
)

// AccessTableName is the table that holds one row per access.
const AccessTableName = "cache_accesses"

// accessEntry represents one access in the database.
type accessEntry struct {
	RunID       string
	Seq         uint64
	Address     uint32
	Tag         uint32
	SetID       uint32
	BlockOffset uint32
	Outcome     string
	IsHit       bool
}

// A dbTracer is a hook that records every access of a cache into a database
// using the data recorder.
type dbTracer struct {
	runID        string
	dataRecorder datarecording.DataRecorder
}

// NewDBTracer creates a hook that writes accesses into the recorder. Rows
// carry runID so several runs can share one database.
func NewDBTracer(
	dataRecorder datarecording.DataRecorder,
	runID string,
) sim.Hook {
	t := &dbTracer{
		runID:        runID,
		dataRecorder: dataRecorder,
	}

	t.dataRecorder.CreateTable(AccessTableName, accessEntry{})

	return t
}

// Func records an access.
func (t *dbTracer) Func(ctx sim.HookCtx) {
	if ctx.Pos != cache.HookPosAccess {
		return
	}

	info, ok := ctx.Item.(cache.AccessInfo)
	if !ok {
		return
	}

	t.dataRecorder.InsertData(AccessTableName, accessEntry{
		RunID:       t.runID,
		Seq:         info.Seq,
		Address:     info.Address,
		Tag:         info.Fields.Tag,
		SetID:       info.Fields.Index,
		BlockOffset: info.Fields.Offset,
		Outcome:     info.Outcome.String(),
		IsHit:       info.Outcome.IsHit(),
	})
}
