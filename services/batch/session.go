package batch

import (
	"context"
	"errors"
	"log"
	"sync"

	"reeltrack/models"
	"reeltrack/services/library"
)

var (
	ErrNotInResults  = errors.New("item is not in the current results")
	ErrNoSelection   = errors.New("no items selected")
	ErrOwnerRequired = errors.New("owner id is required")
)

// Adder is the slice of the library service a batch add needs.
type Adder interface {
	AddFromSearch(ctx context.Context, ownerID string, collection models.Collection, stub models.SearchResult) (models.MediaRecord, error)
}

// Report summarizes one batch add. Attempted = Added + Duplicates + Failed.
type Report struct {
	Attempted  int `json:"attempted"`
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// Session tracks which of the current search results are selected for a
// batch add. Replacing the results starts a new generation and drops the
// old selection, so a stale click can never select an item the user no
// longer sees.
type Session struct {
	mu         sync.Mutex
	generation int
	order      []int64
	results    map[int64]models.SearchResult
	selected   map[int64]struct{}
}

// NewSession creates an empty selection session.
func NewSession() *Session {
	return &Session{
		results:  make(map[int64]models.SearchResult),
		selected: make(map[int64]struct{}),
	}
}

// SetResults replaces the visible results and clears the selection.
func (s *Session) SetResults(results []models.SearchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.order = s.order[:0]
	s.results = make(map[int64]models.SearchResult, len(results))
	s.selected = make(map[int64]struct{})
	for _, r := range results {
		if _, seen := s.results[r.TMDBID]; seen {
			continue
		}
		s.order = append(s.order, r.TMDBID)
		s.results[r.TMDBID] = r
	}
}

// Generation returns the current results generation. It changes every time
// SetResults is called.
func (s *Session) Generation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Toggle flips the selection state of one result and reports the new state.
// Ids outside the current results are rejected.
func (s *Session) Toggle(tmdbID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.results[tmdbID]; !ok {
		return false, ErrNotInResults
	}
	if _, picked := s.selected[tmdbID]; picked {
		delete(s.selected, tmdbID)
		return false, nil
	}
	s.selected[tmdbID] = struct{}{}
	return true, nil
}

// Selected returns the selected results in display order.
func (s *Session) Selected() []models.SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedLocked()
}

func (s *Session) selectedLocked() []models.SearchResult {
	out := make([]models.SearchResult, 0, len(s.selected))
	for _, id := range s.order {
		if _, picked := s.selected[id]; picked {
			out = append(out, s.results[id])
		}
	}
	return out
}

// Clear drops the selection without touching the results.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[int64]struct{})
}

// AddSelected adds every selected item to the collection, strictly one at a
// time and in display order. Duplicates and failures are counted rather
// than aborting the batch, so one already-listed title does not block the
// rest. Successfully added items are removed from the selection; failed
// ones stay selected for a retry.
func (s *Session) AddSelected(ctx context.Context, adder Adder, ownerID string, collection models.Collection) (Report, error) {
	if ownerID == "" {
		return Report{}, ErrOwnerRequired
	}

	s.mu.Lock()
	stubs := s.selectedLocked()
	generation := s.generation
	s.mu.Unlock()

	if len(stubs) == 0 {
		return Report{}, ErrNoSelection
	}

	report := Report{Attempted: len(stubs)}
	for _, stub := range stubs {
		_, err := adder.AddFromSearch(ctx, ownerID, collection, stub)
		switch {
		case err == nil:
			report.Added++
		case errors.Is(err, library.ErrDuplicate):
			report.Duplicates++
		default:
			log.Printf("[batch] add %q failed: %v", stub.Title, err)
			report.Failed++
			continue
		}
		s.unselect(generation, stub.TMDBID)
	}

	return report, nil
}

// unselect drops one id from the selection unless the results have been
// replaced since the batch started.
func (s *Session) unselect(generation int, tmdbID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		return
	}
	delete(s.selected, tmdbID)
}
