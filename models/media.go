package models

import "time"

// MediaKind identifies whether a title is a movie or a TV show. The wire
// value for shows is "tv" to match the upstream metadata provider.
type MediaKind string

const (
	KindMovie MediaKind = "movie"
	KindShow  MediaKind = "tv"
)

// Valid reports whether the kind is one of the two supported values.
func (k MediaKind) Valid() bool {
	return k == KindMovie || k == KindShow
}

// Collection names one of the two persisted lists a record can live in.
type Collection string

const (
	CollectionWatched   Collection = "watched"
	CollectionWatchlist Collection = "watchlist"
)

// Valid reports whether the collection is one of the two known lists.
func (c Collection) Valid() bool {
	return c == CollectionWatched || c == CollectionWatchlist
}

// MediaRecord is a denormalized library entry owned by a single account.
// The watched and watchlist collections share every field except WatchedAt,
// which is set only when a record is inserted into the watched collection.
type MediaRecord struct {
	ID      string `json:"id"`
	OwnerID string `json:"-"`

	// TMDBID is the title's id in the upstream provider's namespace.
	// Nil for manually entered records.
	TMDBID *int64 `json:"tmdbId,omitempty"`

	Title     string    `json:"title"`
	Kind      MediaKind `json:"mediaType"`
	Year      *int      `json:"year,omitempty"`
	PosterURL string    `json:"posterUrl,omitempty"`

	Description string  `json:"description,omitempty"`
	Genres      string  `json:"genres,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	Language    string  `json:"language,omitempty"`
	ReleaseDate string  `json:"releaseDate,omitempty"`
	Director    string  `json:"director,omitempty"`
	MainCast    string  `json:"mainCast,omitempty"`
	TVStatus    string  `json:"tvStatus,omitempty"`

	// Movie-only fields. Budget and revenue are nil when unknown, which is
	// distinct from a known value of zero.
	Runtime int    `json:"runtime,omitempty"`
	Budget  *int64 `json:"budget,omitempty"`
	Revenue *int64 `json:"revenue,omitempty"`

	// Show-only fields, zero when unknown.
	TotalEpisodes int `json:"totalEpisodes"`
	TotalSeasons  int `json:"totalSeasons"`

	CreatedAt time.Time  `json:"createdAt"`
	WatchedAt *time.Time `json:"watchedAt,omitempty"`
}

// LibraryStats summarizes an owner's collections for the dashboard header.
type LibraryStats struct {
	WatchedCount        int `json:"watchedCount"`
	WatchlistCount      int `json:"watchlistCount"`
	TotalEpisodes       int `json:"totalEpisodes"`
	TotalRuntimeMinutes int `json:"totalRuntimeMinutes"`
}
