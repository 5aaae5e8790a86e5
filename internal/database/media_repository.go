package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"reeltrack/models"
)

// MediaRepository persists MediaRecords in the watched and watchlist tables.
// Duplicate (owner, tmdb_id) pairs within one table are rejected by the
// schema's UNIQUE constraint and reported as ErrDuplicate.
type MediaRepository struct {
	db *sql.DB
}

// NewMediaRepository creates a media repository over the given connection.
func NewMediaRepository(db *sql.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

const mediaColumns = `id, owner_id, tmdb_id, title, media_type, year, poster_url,
	description, genres, rating, language, release_date, director, main_cast,
	tv_status, runtime, budget, revenue, total_episodes, total_seasons, created_at`

func tableFor(collection models.Collection) (string, error) {
	switch collection {
	case models.CollectionWatched:
		return "watched_items", nil
	case models.CollectionWatchlist:
		return "watchlist_items", nil
	default:
		return "", fmt.Errorf("unknown collection %q", collection)
	}
}

// Insert stores a new record in the given collection and returns it with its
// assigned id and timestamps. Records inserted into the watched collection
// must carry a WatchedAt; it is ignored for the watchlist.
func (r *MediaRepository) Insert(ctx context.Context, rec models.MediaRecord, collection models.Collection) (models.MediaRecord, error) {
	table, err := tableFor(collection)
	if err != nil {
		return models.MediaRecord{}, err
	}

	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()

	var (
		query string
		args  []any
	)
	base := []any{
		rec.ID, rec.OwnerID, rec.TMDBID, rec.Title, string(rec.Kind), rec.Year,
		rec.PosterURL, rec.Description, rec.Genres, rec.Rating, rec.Language,
		rec.ReleaseDate, rec.Director, rec.MainCast, rec.TVStatus, rec.Runtime,
		rec.Budget, rec.Revenue, rec.TotalEpisodes, rec.TotalSeasons, rec.CreatedAt,
	}

	if collection == models.CollectionWatched {
		if rec.WatchedAt == nil {
			now := rec.CreatedAt
			rec.WatchedAt = &now
		}
		query = `INSERT INTO ` + table + ` (` + mediaColumns + `, watched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		args = append(base, rec.WatchedAt)
	} else {
		rec.WatchedAt = nil
		query = `INSERT INTO ` + table + ` (` + mediaColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		args = base
	}

	err = execBusyRetry(ctx, func() error {
		_, execErr := r.db.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		if isUniqueViolation(err) {
			return models.MediaRecord{}, fmt.Errorf("%w: %s in %s", ErrDuplicate, rec.Title, collection)
		}
		return models.MediaRecord{}, fmt.Errorf("insert into %s: %w", table, err)
	}

	return rec, nil
}

// Delete removes a record by id. Deleting an id that does not exist is not
// an error.
func (r *MediaRepository) Delete(ctx context.Context, ownerID, id string, collection models.Collection) error {
	table, err := tableFor(collection)
	if err != nil {
		return err
	}

	err = execBusyRetry(ctx, func() error {
		_, execErr := r.db.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE id = ? AND owner_id = ?`, id, ownerID)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

// List returns every record the owner has in the collection, most recent
// first: watched items by watch time, watchlist items by insertion time.
func (r *MediaRepository) List(ctx context.Context, ownerID string, collection models.Collection) ([]models.MediaRecord, error) {
	table, err := tableFor(collection)
	if err != nil {
		return nil, err
	}

	var rows *sql.Rows
	if collection == models.CollectionWatched {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+mediaColumns+`, watched_at FROM `+table+`
			 WHERE owner_id = ? ORDER BY watched_at DESC, id`, ownerID)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+mediaColumns+` FROM `+table+`
			 WHERE owner_id = ? ORDER BY created_at DESC, id`, ownerID)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	withWatchedAt := collection == models.CollectionWatched
	records := make([]models.MediaRecord, 0)
	for rows.Next() {
		rec, scanErr := scanMediaRecord(rows, withWatchedAt)
		if scanErr != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, scanErr)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}

	return records, nil
}

// Get fetches one record by id.
func (r *MediaRepository) Get(ctx context.Context, ownerID, id string, collection models.Collection) (models.MediaRecord, error) {
	table, err := tableFor(collection)
	if err != nil {
		return models.MediaRecord{}, err
	}

	query := `SELECT ` + mediaColumns
	if collection == models.CollectionWatched {
		query += `, watched_at`
	}
	query += ` FROM ` + table + ` WHERE id = ? AND owner_id = ?`

	row := r.db.QueryRowContext(ctx, query, id, ownerID)
	rec, err := scanMediaRecord(row, collection == models.CollectionWatched)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MediaRecord{}, ErrNotFound
	}
	if err != nil {
		return models.MediaRecord{}, fmt.Errorf("get from %s: %w", table, err)
	}
	return rec, nil
}

// MoveToWatched transfers a watchlist record into the watched collection in
// a single transaction, so a failure on either step leaves both collections
// untouched. The returned record carries the new id and the watch time.
func (r *MediaRepository) MoveToWatched(ctx context.Context, ownerID, id string, watchedAt time.Time) (models.MediaRecord, error) {
	rec, err := r.Get(ctx, ownerID, id, models.CollectionWatchlist)
	if err != nil {
		return models.MediaRecord{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.MediaRecord{}, fmt.Errorf("begin move: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM watchlist_items WHERE id = ? AND owner_id = ?`, id, ownerID); err != nil {
		return models.MediaRecord{}, fmt.Errorf("move delete: %w", err)
	}

	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()
	watchedAt = watchedAt.UTC()
	rec.WatchedAt = &watchedAt

	_, err = tx.ExecContext(ctx,
		`INSERT INTO watched_items (`+mediaColumns+`, watched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, rec.TMDBID, rec.Title, string(rec.Kind), rec.Year,
		rec.PosterURL, rec.Description, rec.Genres, rec.Rating, rec.Language,
		rec.ReleaseDate, rec.Director, rec.MainCast, rec.TVStatus, rec.Runtime,
		rec.Budget, rec.Revenue, rec.TotalEpisodes, rec.TotalSeasons, rec.CreatedAt,
		rec.WatchedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.MediaRecord{}, fmt.Errorf("%w: %s already watched", ErrDuplicate, rec.Title)
		}
		return models.MediaRecord{}, fmt.Errorf("move insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.MediaRecord{}, fmt.Errorf("commit move: %w", err)
	}

	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMediaRecord(row rowScanner, withWatchedAt bool) (models.MediaRecord, error) {
	var (
		rec       models.MediaRecord
		kind      string
		watchedAt time.Time
	)

	dest := []any{
		&rec.ID, &rec.OwnerID, &rec.TMDBID, &rec.Title, &kind, &rec.Year,
		&rec.PosterURL, &rec.Description, &rec.Genres, &rec.Rating, &rec.Language,
		&rec.ReleaseDate, &rec.Director, &rec.MainCast, &rec.TVStatus, &rec.Runtime,
		&rec.Budget, &rec.Revenue, &rec.TotalEpisodes, &rec.TotalSeasons, &rec.CreatedAt,
	}
	if withWatchedAt {
		dest = append(dest, &watchedAt)
	}

	if err := row.Scan(dest...); err != nil {
		return models.MediaRecord{}, err
	}

	rec.Kind = models.MediaKind(kind)
	if withWatchedAt {
		rec.WatchedAt = &watchedAt
	}
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

// execBusyRetry retries a write a few times when SQLite reports the
// database as locked by another writer.
func execBusyRetry(ctx context.Context, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(50*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(isBusy),
		retry.LastErrorOnly(true),
	)
}
