// Package progress reports how far a play pass has come relative to the
// clock count found by a previous analyze pass.
package progress

import "log/slog"

// Report is emitted each time the running count crosses a threshold.
type Report struct {
	Total     int64
	Count     int64
	Threshold int64
}

// Percent returns the completed share of the total, capped at 100.
func (r Report) Percent() int {
	if r.Total <= 0 {
		return 0
	}
	return int(min(r.Count*100/r.Total, 100))
}

// Tracker accumulates driven clock cycles against a total. The zero value
// never reports.
type Tracker struct {
	total int64
	count int64
	step  int64
	next  int64
	sink  func(Report)
	log   *slog.Logger
}

// New creates a tracker that hands reports to sink.
func New(sink func(Report), logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{sink: sink, log: logger}
}

// Reset starts a new pass against total cycles. A total below 100 gives a
// step of zero, which disables reporting.
func (t *Tracker) Reset(total int64) {
	t.total = max(total, 0)
	t.count = 0
	t.step = t.total / 100
	t.next = t.step
}

// Add records n completed cycles.
func (t *Tracker) Add(n int64) {
	if n <= 0 {
		return
	}
	t.count += n
	if t.step == 0 || t.count < t.next {
		return
	}
	r := Report{Total: t.total, Count: t.count, Threshold: t.next}
	// Skip every threshold count has already passed.
	t.next = (t.count/t.step + 1) * t.step
	t.log.Debug("progress", "total", r.Total, "count", r.Count, "percent", r.Percent())
	if t.sink != nil {
		t.sink(r)
	}
}

// Total returns the total passed to the last Reset.
func (t *Tracker) Total() int64 {
	return t.total
}

// Count returns the cycles recorded since the last Reset.
func (t *Tracker) Count() int64 {
	return t.count
}
