package cache

import (
	"log"

	"github.com/sarchlab/csim/mem/addressing"
	"github.com/sarchlab/csim/sim"
)

// HookPosAccess is triggered after every access, with an AccessInfo item.
var HookPosAccess = &sim.HookPos{Name: "CacheAccess"}

// AccessInfo describes one access. Seq counts accesses from 1.
type AccessInfo struct {
	Seq     uint64
	Address uint32
	Fields  addressing.Decoded
	Outcome AccessOutcome
}

func (c *Comp) traceAccess(info AccessInfo) {
	ctx := sim.HookCtx{
		Domain: c,
		Pos:    HookPosAccess,
		Item:   info,
	}

	c.InvokeHook(ctx)
}

// AccessLogger is a hook that prints one line per access, showing the
// decoded fields in binary.
type AccessLogger struct {
	sim.LogHookBase

	decoder addressing.Decoder
}

// NewAccessLogger returns a hook that writes into logger. The decoder sets
// the width of the binary fields.
func NewAccessLogger(
	logger *log.Logger,
	decoder addressing.Decoder,
) *AccessLogger {
	h := new(AccessLogger)
	h.Logger = logger
	h.decoder = decoder

	return h
}

// Func writes the access information into the logger.
func (h *AccessLogger) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosAccess {
		return
	}

	info, ok := ctx.Item.(AccessInfo)
	if !ok {
		return
	}

	h.Logger.Printf("%d, 0x%08x, tag=%s, index=%s, offset=%s, %s\n",
		info.Seq,
		info.Address,
		addressing.FormatBinary(info.Fields.Tag, h.decoder.TagBits),
		addressing.FormatBinary(info.Fields.Index, h.decoder.IndexBits),
		addressing.FormatBinary(info.Fields.Offset, h.decoder.OffsetBits),
		info.Outcome,
	)
}
