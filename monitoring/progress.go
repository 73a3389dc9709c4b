package monitoring

import (
	"sync"
	"time"

	"github.com/sarchlab/csim/mem/cache"
	"github.com/sarchlab/csim/sim"
)

// A ProgressBar is a tracker of the progress
type ProgressBar struct {
	sync.Mutex
	ID        string
	Name      string
	StartTime time.Time
	Total     uint64
	Finished  uint64
}

type progressBarView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

// IncrementFinished add a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

func (b *ProgressBar) view() progressBarView {
	b.Lock()
	defer b.Unlock()

	return progressBarView{
		ID:        b.ID,
		Name:      b.Name,
		StartTime: b.StartTime,
		Total:     b.Total,
		Finished:  b.Finished,
	}
}

// DefaultPublishInterval is the number of accesses between two updates a
// CacheTracker sends to the monitor.
const DefaultPublishInterval = 1024

// CacheTracker is a hook that moves a progress bar as a cache runs and
// publishes the counters of the cache to the monitor.
type CacheTracker struct {
	monitor  *Monitor
	comp     *cache.Comp
	bar      *ProgressBar
	interval uint64
	pending  uint64
}

// TrackCache attaches a CacheTracker to comp. Total is the number of
// accesses the run will make.
func (m *Monitor) TrackCache(comp *cache.Comp, total uint64) *CacheTracker {
	t := &CacheTracker{
		monitor:  m,
		comp:     comp,
		bar:      m.CreateProgressBar(comp.Name(), total),
		interval: DefaultPublishInterval,
	}

	m.PublishCache(snapshotOf(comp))
	comp.AcceptHook(t)

	return t
}

// Func counts an access and publishes every interval accesses.
func (t *CacheTracker) Func(ctx sim.HookCtx) {
	if ctx.Pos != cache.HookPosAccess {
		return
	}

	t.pending++
	if t.pending >= t.interval {
		t.publish()
	}
}

// Finish publishes the final counters and removes the progress bar.
func (t *CacheTracker) Finish() {
	t.publish()
	t.monitor.CompleteProgressBar(t.bar)
}

func (t *CacheTracker) publish() {
	t.bar.IncrementFinished(t.pending)
	t.pending = 0
	t.monitor.PublishCache(snapshotOf(t.comp))
}

func snapshotOf(comp *cache.Comp) CacheSnapshot {
	return CacheSnapshot{
		Name:        comp.Name(),
		Config:      comp.Config(),
		Performance: comp.Performance(),
		UpdatedAt:   time.Now(),
	}
}
