package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"reeltrack/models"
)

var (
	// ErrEmptyQuery is returned when a search query is empty or whitespace.
	ErrEmptyQuery = errors.New("search query is required")
	// ErrNotConfigured is returned when no provider API key is set.
	ErrNotConfigured = errors.New("tmdb api key not configured")
	// ErrUpstream wraps any non-success response from the provider.
	ErrUpstream = errors.New("metadata provider request failed")
)

// Service is the gateway to the external movie/TV metadata catalog. It is
// stateless: every call re-queries the provider, a single attempt each.
type Service struct {
	tmdb *tmdbClient
}

// NewService creates a metadata gateway. Passing a nil client uses a default
// HTTP client with a 15 second timeout.
func NewService(apiKey, language string, httpc *http.Client) *Service {
	return &Service{tmdb: newTMDBClient(apiKey, language, httpc)}
}

// Search runs a free-text multi search and returns movie and show stubs in
// the provider's relevance order. Results of other kinds (people, networks)
// are discarded.
func (s *Service) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if !s.tmdb.isConfigured() {
		return nil, ErrNotConfigured
	}
	return s.tmdb.searchMulti(ctx, query)
}

// FetchDetails loads the full detail payload for one title. The returned
// union is tagged with kind; callers must branch before reading
// kind-specific fields.
func (s *Service) FetchDetails(ctx context.Context, externalID int64, kind models.MediaKind) (models.Details, error) {
	if !s.tmdb.isConfigured() {
		return models.Details{}, ErrNotConfigured
	}
	if !kind.Valid() {
		return models.Details{}, fmt.Errorf("unknown media kind %q", kind)
	}

	if kind == models.KindMovie {
		movie, err := s.tmdb.movieDetails(ctx, externalID)
		if err != nil {
			return models.Details{}, err
		}
		return models.Details{Kind: models.KindMovie, Movie: movie}, nil
	}

	show, err := s.tmdb.showDetails(ctx, externalID)
	if err != nil {
		return models.Details{}, err
	}
	return models.Details{Kind: models.KindShow, Show: show}, nil
}
