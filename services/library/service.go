package library

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"reeltrack/internal/database"
	"reeltrack/models"
)

var (
	ErrOwnerRequired     = errors.New("owner id is required")
	ErrIDRequired        = errors.New("id is required")
	ErrTitleRequired     = errors.New("title is required")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrUnknownMediaKind  = errors.New("unknown media type")

	// ErrDuplicate means the owner already has this title in the collection.
	ErrDuplicate = errors.New("item is already in the list")
	// ErrNotFound means the record does not exist in the collection.
	ErrNotFound = errors.New("item not found")
	// ErrStorage wraps any other persistence failure.
	ErrStorage = errors.New("storage operation failed")
	// ErrPartialMove means a move removed the item from the watchlist but
	// failed to add it to watched, leaving it in neither collection.
	ErrPartialMove = errors.New("item removed from watchlist but not added to watched")
)

// Store is the persistence surface the service needs. Implementations that
// also provide atomicMover get transactional moves; others fall back to a
// two step move that can surface ErrPartialMove.
type Store interface {
	Insert(ctx context.Context, rec models.MediaRecord, collection models.Collection) (models.MediaRecord, error)
	Delete(ctx context.Context, ownerID, id string, collection models.Collection) error
	List(ctx context.Context, ownerID string, collection models.Collection) ([]models.MediaRecord, error)
	Get(ctx context.Context, ownerID, id string, collection models.Collection) (models.MediaRecord, error)
}

type atomicMover interface {
	MoveToWatched(ctx context.Context, ownerID, id string, watchedAt time.Time) (models.MediaRecord, error)
}

// Service owns the watched and watchlist collections: validation, enrichment
// on add, and mapping storage errors into the service's error taxonomy.
type Service struct {
	store    Store
	resolver *Resolver
	now      func() time.Time
}

// NewService creates a library service. The resolver may be nil, in which
// case AddFromSearch stores stub fields without enrichment.
func NewService(store Store, resolver *Resolver) *Service {
	return &Service{
		store:    store,
		resolver: resolver,
		now:      time.Now,
	}
}

// Add validates and stores a record in the given collection. Records added
// to the watched collection are stamped with the current time unless the
// caller already set WatchedAt.
func (s *Service) Add(ctx context.Context, ownerID string, collection models.Collection, rec models.MediaRecord) (models.MediaRecord, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return models.MediaRecord{}, ErrOwnerRequired
	}
	if !collection.Valid() {
		return models.MediaRecord{}, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	if strings.TrimSpace(rec.Title) == "" {
		return models.MediaRecord{}, ErrTitleRequired
	}
	if !rec.Kind.Valid() {
		return models.MediaRecord{}, fmt.Errorf("%w: %q", ErrUnknownMediaKind, rec.Kind)
	}

	rec.OwnerID = ownerID
	if collection == models.CollectionWatched && rec.WatchedAt == nil {
		now := s.now().UTC()
		rec.WatchedAt = &now
	}

	stored, err := s.store.Insert(ctx, rec, collection)
	if err != nil {
		return models.MediaRecord{}, mapStoreError(err)
	}
	return stored, nil
}

// AddFromSearch enriches a search stub with full details and stores the
// result. Enrichment failures degrade to storing the stub fields.
func (s *Service) AddFromSearch(ctx context.Context, ownerID string, collection models.Collection, stub models.SearchResult) (models.MediaRecord, error) {
	if s.resolver == nil {
		tmdbID := stub.TMDBID
		rec := models.MediaRecord{
			TMDBID:      &tmdbID,
			Title:       stub.Title,
			Kind:        stub.Kind,
			Year:        stub.Year,
			Description: stub.Overview,
		}
		if stub.PosterURL != nil {
			rec.PosterURL = *stub.PosterURL
		}
		return s.Add(ctx, ownerID, collection, rec)
	}

	rec := s.resolver.Resolve(ctx, ownerID, stub)
	return s.Add(ctx, ownerID, collection, rec)
}

// Remove deletes a record from a collection. Removing an id that is not
// there is not an error.
func (s *Service) Remove(ctx context.Context, ownerID, id string, collection models.Collection) error {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return ErrOwnerRequired
	}
	if strings.TrimSpace(id) == "" {
		return ErrIDRequired
	}
	if !collection.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}

	if err := s.store.Delete(ctx, ownerID, id, collection); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// List returns the owner's records in a collection, most recent first.
func (s *Service) List(ctx context.Context, ownerID string, collection models.Collection) ([]models.MediaRecord, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	if !collection.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}

	records, err := s.store.List(ctx, ownerID, collection)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return records, nil
}

// MoveToWatched transfers a watchlist record into the watched collection,
// stamping it with the current time. Stores with transactional moves keep
// the two collections consistent on failure; with a plain store a failed
// insert after the delete surfaces ErrPartialMove so callers can tell the
// item is now in neither collection.
func (s *Service) MoveToWatched(ctx context.Context, ownerID, id string) (models.MediaRecord, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return models.MediaRecord{}, ErrOwnerRequired
	}
	if strings.TrimSpace(id) == "" {
		return models.MediaRecord{}, ErrIDRequired
	}

	watchedAt := s.now().UTC()

	if mover, ok := s.store.(atomicMover); ok {
		rec, err := mover.MoveToWatched(ctx, ownerID, id, watchedAt)
		if err != nil {
			return models.MediaRecord{}, mapStoreError(err)
		}
		return rec, nil
	}

	rec, err := s.store.Get(ctx, ownerID, id, models.CollectionWatchlist)
	if err != nil {
		return models.MediaRecord{}, mapStoreError(err)
	}
	if err := s.store.Delete(ctx, ownerID, id, models.CollectionWatchlist); err != nil {
		return models.MediaRecord{}, mapStoreError(err)
	}

	rec.ID = ""
	rec.WatchedAt = &watchedAt
	stored, err := s.store.Insert(ctx, rec, models.CollectionWatched)
	if err != nil {
		log.Printf("[library] move insert failed after delete for %q: %v", rec.Title, err)
		return models.MediaRecord{}, fmt.Errorf("%w: %v", ErrPartialMove, err)
	}
	return stored, nil
}

// Stats loads both collections concurrently and aggregates counts, total
// episodes across watched shows and total runtime across watched movies.
func (s *Service) Stats(ctx context.Context, ownerID string) (models.LibraryStats, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return models.LibraryStats{}, ErrOwnerRequired
	}

	var watched, watchlist []models.MediaRecord

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		records, err := s.store.List(ctx, ownerID, models.CollectionWatched)
		if err != nil {
			return err
		}
		watched = records
		return nil
	})
	p.Go(func(ctx context.Context) error {
		records, err := s.store.List(ctx, ownerID, models.CollectionWatchlist)
		if err != nil {
			return err
		}
		watchlist = records
		return nil
	})
	if err := p.Wait(); err != nil {
		return models.LibraryStats{}, mapStoreError(err)
	}

	stats := models.LibraryStats{
		WatchedCount:   len(watched),
		WatchlistCount: len(watchlist),
	}
	for _, rec := range watched {
		stats.TotalEpisodes += rec.TotalEpisodes
		stats.TotalRuntimeMinutes += rec.Runtime
	}
	return stats, nil
}

func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case errors.Is(err, database.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
}
