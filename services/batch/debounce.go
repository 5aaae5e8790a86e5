package batch

import (
	"context"
	"sync"
	"time"

	"reeltrack/models"
)

// DefaultDebounceDelay is how long the debouncer waits after the last
// keystroke before searching.
const DefaultDebounceDelay = 300 * time.Millisecond

// SearchFunc runs one catalog search.
type SearchFunc func(ctx context.Context, query string) ([]models.SearchResult, error)

// DeliverFunc receives the results for the query that triggered the search.
type DeliverFunc func(query string, results []models.SearchResult, err error)

// Debouncer coalesces a stream of partial queries into one search for the
// final query. Every Update supersedes the pending one, and a search that
// was already in flight when a newer Update arrived has its results
// discarded, so the delivered results always match the latest query.
type Debouncer struct {
	search  SearchFunc
	deliver DeliverFunc
	delay   time.Duration

	mu    sync.Mutex
	seq   uint64
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given delay; zero or negative
// means DefaultDebounceDelay.
func NewDebouncer(delay time.Duration, search SearchFunc, deliver DeliverFunc) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	return &Debouncer{
		search:  search,
		deliver: deliver,
		delay:   delay,
	}
}

// Update records a new query. The search fires only after the delay passes
// with no further updates. An empty query cancels any pending search and
// delivers empty results immediately.
func (d *Debouncer) Update(ctx context.Context, query string) {
	d.mu.Lock()
	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	if query == "" {
		d.mu.Unlock()
		d.deliver("", nil, nil)
		return
	}

	d.timer = time.AfterFunc(d.delay, func() {
		d.fire(ctx, seq, query)
	})
	d.mu.Unlock()
}

// Cancel discards any pending search without delivering anything.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) fire(ctx context.Context, seq uint64, query string) {
	if !d.current(seq) {
		return
	}

	results, err := d.search(ctx, query)

	// A newer query may have arrived while the search was in flight.
	if !d.current(seq) {
		return
	}
	d.deliver(query, results, err)
}

func (d *Debouncer) current(seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return seq == d.seq
}
