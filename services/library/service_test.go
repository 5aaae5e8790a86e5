package library_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"reeltrack/internal/database"
	"reeltrack/models"
	"reeltrack/services/library"
)

// fakeStore is an in-memory Store without transactional moves, so the
// service takes the delete-then-insert path.
type fakeStore struct {
	records map[models.Collection][]models.MediaRecord
	nextID  int

	insertErr error
	listErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[models.Collection][]models.MediaRecord)}
}

func (f *fakeStore) Insert(_ context.Context, rec models.MediaRecord, collection models.Collection) (models.MediaRecord, error) {
	if f.insertErr != nil {
		return models.MediaRecord{}, f.insertErr
	}
	for _, existing := range f.records[collection] {
		if existing.OwnerID == rec.OwnerID && existing.TMDBID != nil && rec.TMDBID != nil && *existing.TMDBID == *rec.TMDBID {
			return models.MediaRecord{}, fmt.Errorf("%w: %s", database.ErrDuplicate, rec.Title)
		}
	}
	f.nextID++
	rec.ID = fmt.Sprintf("rec-%d", f.nextID)
	rec.CreatedAt = time.Now().UTC()
	f.records[collection] = append(f.records[collection], rec)
	return rec, nil
}

func (f *fakeStore) Delete(_ context.Context, ownerID, id string, collection models.Collection) error {
	kept := f.records[collection][:0]
	for _, rec := range f.records[collection] {
		if rec.ID != id || rec.OwnerID != ownerID {
			kept = append(kept, rec)
		}
	}
	f.records[collection] = kept
	return nil
}

func (f *fakeStore) List(_ context.Context, ownerID string, collection models.Collection) ([]models.MediaRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.MediaRecord
	for _, rec := range f.records[collection] {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, ownerID, id string, collection models.Collection) (models.MediaRecord, error) {
	for _, rec := range f.records[collection] {
		if rec.ID == id && rec.OwnerID == ownerID {
			return rec, nil
		}
	}
	return models.MediaRecord{}, database.ErrNotFound
}

// atomicFakeStore adds a transactional move on top of fakeStore.
type atomicFakeStore struct {
	*fakeStore
	moveCalls int
}

func (f *atomicFakeStore) MoveToWatched(ctx context.Context, ownerID, id string, watchedAt time.Time) (models.MediaRecord, error) {
	f.moveCalls++
	rec, err := f.Get(ctx, ownerID, id, models.CollectionWatchlist)
	if err != nil {
		return models.MediaRecord{}, err
	}
	if err := f.Delete(ctx, ownerID, id, models.CollectionWatchlist); err != nil {
		return models.MediaRecord{}, err
	}
	rec.ID = ""
	rec.WatchedAt = &watchedAt
	return f.Insert(ctx, rec, models.CollectionWatched)
}

type fakeGateway struct {
	details models.Details
	err     error
}

func (f *fakeGateway) FetchDetails(context.Context, int64, models.MediaKind) (models.Details, error) {
	if f.err != nil {
		return models.Details{}, f.err
	}
	return f.details, nil
}

func movieRecord(owner string, tmdbID int64, title string) models.MediaRecord {
	return models.MediaRecord{
		OwnerID: owner,
		TMDBID:  &tmdbID,
		Title:   title,
		Kind:    models.KindMovie,
	}
}

func TestAddValidation(t *testing.T) {
	svc := library.NewService(newFakeStore(), nil)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "", models.CollectionWatched, movieRecord("", 1, "Heat")); !errors.Is(err, library.ErrOwnerRequired) {
		t.Fatalf("expected ErrOwnerRequired, got %v", err)
	}
	if _, err := svc.Add(ctx, "u1", models.Collection("favorites"), movieRecord("u1", 1, "Heat")); !errors.Is(err, library.ErrUnknownCollection) {
		t.Fatalf("expected ErrUnknownCollection, got %v", err)
	}
	rec := movieRecord("u1", 1, "  ")
	if _, err := svc.Add(ctx, "u1", models.CollectionWatched, rec); !errors.Is(err, library.ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
}

func TestAddStampsWatchedAt(t *testing.T) {
	store := newFakeStore()
	svc := library.NewService(store, nil)

	stored, err := svc.Add(context.Background(), "u1", models.CollectionWatched, movieRecord("u1", 1, "Heat"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.WatchedAt == nil {
		t.Fatalf("expected watched record to carry a watch time")
	}

	stored, err = svc.Add(context.Background(), "u1", models.CollectionWatchlist, movieRecord("u1", 2, "Ronin"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.WatchedAt != nil {
		t.Fatalf("watchlist record must not carry a watch time, got %v", stored.WatchedAt)
	}
}

func TestAddDuplicateMapsToErrDuplicate(t *testing.T) {
	svc := library.NewService(newFakeStore(), nil)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "u1", models.CollectionWatched, movieRecord("u1", 550, "Fight Club")); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if _, err := svc.Add(ctx, "u1", models.CollectionWatched, movieRecord("u1", 550, "Fight Club")); !errors.Is(err, library.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// The same title is still allowed for another owner and in the other
	// collection.
	if _, err := svc.Add(ctx, "u2", models.CollectionWatched, movieRecord("u2", 550, "Fight Club")); err != nil {
		t.Fatalf("other owner add failed: %v", err)
	}
	if _, err := svc.Add(ctx, "u1", models.CollectionWatchlist, movieRecord("u1", 550, "Fight Club")); err != nil {
		t.Fatalf("other collection add failed: %v", err)
	}
}

func TestAddFromSearchEnriches(t *testing.T) {
	gateway := &fakeGateway{details: models.Details{
		Kind: models.KindMovie,
		Movie: &models.MovieDetails{
			Runtime:     139,
			Genres:      []models.Genre{{Name: "Drama"}, {Name: "Thriller"}},
			Rating:      8.4,
			Language:    "en",
			ReleaseDate: "1999-10-15",
			Credits: models.Credits{
				Cast: []models.CastMember{
					{Name: "Edward Norton"}, {Name: "Brad Pitt"}, {Name: "Helena Bonham Carter"},
					{Name: "Meat Loaf"}, {Name: "Jared Leto"}, {Name: "Zach Grenier"},
				},
				Crew: []models.CrewMember{
					{Job: "Producer", Name: "Art Linson"},
					{Job: "Director", Name: "David Fincher"},
				},
			},
		},
	}}

	store := newFakeStore()
	svc := library.NewService(store, library.NewResolver(gateway))

	year := 1999
	stub := models.SearchResult{TMDBID: 550, Title: "Fight Club", Kind: models.KindMovie, Year: &year, Overview: "An insomniac."}
	stored, err := svc.AddFromSearch(context.Background(), "u1", models.CollectionWatchlist, stub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stored.Genres != "Drama, Thriller" {
		t.Fatalf("unexpected genres: %q", stored.Genres)
	}
	if stored.MainCast != "Edward Norton, Brad Pitt, Helena Bonham Carter, Meat Loaf, Jared Leto" {
		t.Fatalf("expected cast capped at five names, got %q", stored.MainCast)
	}
	if stored.Director != "David Fincher" {
		t.Fatalf("unexpected director: %q", stored.Director)
	}
	if stored.Language != "EN" {
		t.Fatalf("expected uppercased language, got %q", stored.Language)
	}
	if stored.Runtime != 139 || stored.Rating != 8.4 {
		t.Fatalf("unexpected detail fields: %+v", stored)
	}
}

func TestAddFromSearchSurvivesEnrichmentFailure(t *testing.T) {
	gateway := &fakeGateway{err: errors.New("provider down")}
	store := newFakeStore()
	svc := library.NewService(store, library.NewResolver(gateway))

	stub := models.SearchResult{TMDBID: 550, Title: "Fight Club", Kind: models.KindMovie, Overview: "An insomniac."}
	stored, err := svc.AddFromSearch(context.Background(), "u1", models.CollectionWatchlist, stub)
	if err != nil {
		t.Fatalf("expected stub to be stored despite enrichment failure, got %v", err)
	}
	if stored.Title != "Fight Club" || stored.Description != "An insomniac." {
		t.Fatalf("unexpected stub record: %+v", stored)
	}
	if stored.Genres != "" || stored.Director != "" {
		t.Fatalf("expected no enrichment fields on failed lookup: %+v", stored)
	}
}

func TestMoveToWatchedPrefersAtomicStore(t *testing.T) {
	store := &atomicFakeStore{fakeStore: newFakeStore()}
	svc := library.NewService(store, nil)
	ctx := context.Background()

	added, err := svc.Add(ctx, "u1", models.CollectionWatchlist, movieRecord("u1", 550, "Fight Club"))
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	moved, err := svc.MoveToWatched(ctx, "u1", added.ID)
	if err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if store.moveCalls != 1 {
		t.Fatalf("expected the store's own move to be used, calls=%d", store.moveCalls)
	}
	if moved.WatchedAt == nil {
		t.Fatalf("expected moved record to carry a watch time")
	}

	if remaining, _ := svc.List(ctx, "u1", models.CollectionWatchlist); len(remaining) != 0 {
		t.Fatalf("expected empty watchlist after move, got %d items", len(remaining))
	}
	if watched, _ := svc.List(ctx, "u1", models.CollectionWatched); len(watched) != 1 {
		t.Fatalf("expected one watched item after move, got %d", len(watched))
	}
}

func TestMoveToWatchedFallbackPartialFailure(t *testing.T) {
	store := newFakeStore()
	svc := library.NewService(store, nil)
	ctx := context.Background()

	added, err := svc.Add(ctx, "u1", models.CollectionWatchlist, movieRecord("u1", 550, "Fight Club"))
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	store.insertErr = errors.New("disk full")
	if _, err := svc.MoveToWatched(ctx, "u1", added.ID); !errors.Is(err, library.ErrPartialMove) {
		t.Fatalf("expected ErrPartialMove, got %v", err)
	}

	// The fallback path has already deleted from the watchlist.
	store.insertErr = nil
	if remaining, _ := svc.List(ctx, "u1", models.CollectionWatchlist); len(remaining) != 0 {
		t.Fatalf("expected item gone from watchlist, got %d items", len(remaining))
	}
}

func TestMoveToWatchedMissingItem(t *testing.T) {
	svc := library.NewService(newFakeStore(), nil)
	if _, err := svc.MoveToWatched(context.Background(), "u1", "no-such-id"); !errors.Is(err, library.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStatsAggregates(t *testing.T) {
	store := newFakeStore()
	svc := library.NewService(store, nil)
	ctx := context.Background()

	movie := movieRecord("u1", 1, "Heat")
	movie.Runtime = 170
	if _, err := svc.Add(ctx, "u1", models.CollectionWatched, movie); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	tmdbID := int64(2)
	show := models.MediaRecord{OwnerID: "u1", TMDBID: &tmdbID, Title: "The Wire", Kind: models.KindShow, TotalEpisodes: 60}
	if _, err := svc.Add(ctx, "u1", models.CollectionWatched, show); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := svc.Add(ctx, "u1", models.CollectionWatchlist, movieRecord("u1", 3, "Ronin")); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	stats, err := svc.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.WatchedCount != 2 || stats.WatchlistCount != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.TotalEpisodes != 60 || stats.TotalRuntimeMinutes != 170 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
}

func TestStatsStorageFailure(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("db is gone")
	svc := library.NewService(store, nil)

	if _, err := svc.Stats(context.Background(), "u1"); !errors.Is(err, library.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}
