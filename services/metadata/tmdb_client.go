package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"reeltrack/models"
)

const (
	tmdbBaseURL      = "https://api.themoviedb.org/3"
	tmdbImageBaseURL = "https://image.tmdb.org/t/p"
	// w500 is plenty for poster cards while keeping payloads small.
	tmdbPosterSize = "w500"
)

type tmdbClient struct {
	apiKey   string
	language string
	httpc    *http.Client
}

func newTMDBClient(apiKey, language string, httpc *http.Client) *tmdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &tmdbClient{
		apiKey:   strings.TrimSpace(apiKey),
		language: language,
		httpc:    httpc,
	}
}

func (c *tmdbClient) isConfigured() bool {
	return c != nil && c.apiKey != ""
}

// doGET performs a single HTTP GET against the provider. Transient failures
// are not retried; the provider call budget is one attempt per operation.
func (c *tmdbClient) doGET(ctx context.Context, pathSegments []string, params url.Values, v any) error {
	endpoint, err := url.JoinPath(tmdbBaseURL, pathSegments...)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	q := req.URL.Query()
	q.Set("api_key", c.apiKey)
	if lang := strings.TrimSpace(c.language); lang != "" {
		q.Set("language", normalizeLanguage(lang))
	}
	for key, values := range params {
		for _, value := range values {
			q.Set(key, value)
		}
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: %s", ErrUpstream, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	return nil
}

type tmdbMultiSearchResponse struct {
	Results []struct {
		ID           int64  `json:"id"`
		Title        string `json:"title"`
		Name         string `json:"name"`
		MediaType    string `json:"media_type"`
		ReleaseDate  string `json:"release_date"`
		FirstAirDate string `json:"first_air_date"`
		PosterPath   string `json:"poster_path"`
		Overview     string `json:"overview"`
	} `json:"results"`
}

func (c *tmdbClient) searchMulti(ctx context.Context, query string) ([]models.SearchResult, error) {
	var payload tmdbMultiSearchResponse
	params := url.Values{"query": []string{query}}
	if err := c.doGET(ctx, []string{"search", "multi"}, params, &payload); err != nil {
		return nil, err
	}

	// Keep only movies and shows, in the provider's relevance order.
	results := make([]models.SearchResult, 0, len(payload.Results))
	for _, r := range payload.Results {
		kind := models.MediaKind(r.MediaType)
		if !kind.Valid() {
			continue
		}
		results = append(results, models.SearchResult{
			TMDBID:    r.ID,
			Title:     pickTitle(r.Title, r.Name),
			Kind:      kind,
			Year:      parseYear(r.ReleaseDate, r.FirstAirDate),
			PosterURL: buildPosterURL(r.PosterPath),
			Overview:  r.Overview,
		})
	}
	return results, nil
}

type tmdbMovieResponse struct {
	Runtime          int            `json:"runtime"`
	Budget           int64          `json:"budget"`
	Revenue          int64          `json:"revenue"`
	Genres           []models.Genre `json:"genres"`
	VoteAverage      float64        `json:"vote_average"`
	OriginalLanguage string         `json:"original_language"`
	ReleaseDate      string         `json:"release_date"`
	Credits          models.Credits `json:"credits"`
}

func (c *tmdbClient) movieDetails(ctx context.Context, tmdbID int64) (*models.MovieDetails, error) {
	var payload tmdbMovieResponse
	params := url.Values{"append_to_response": []string{"credits"}}
	if err := c.doGET(ctx, []string{"movie", strconv.FormatInt(tmdbID, 10)}, params, &payload); err != nil {
		return nil, err
	}

	return &models.MovieDetails{
		Runtime:     payload.Runtime,
		Budget:      nonZeroAmount(payload.Budget),
		Revenue:     nonZeroAmount(payload.Revenue),
		Genres:      payload.Genres,
		Rating:      payload.VoteAverage,
		Language:    payload.OriginalLanguage,
		ReleaseDate: payload.ReleaseDate,
		Credits:     payload.Credits,
	}, nil
}

type tmdbShowResponse struct {
	NumberOfEpisodes int            `json:"number_of_episodes"`
	NumberOfSeasons  int            `json:"number_of_seasons"`
	Status           string         `json:"status"`
	Genres           []models.Genre `json:"genres"`
	VoteAverage      float64        `json:"vote_average"`
	OriginalLanguage string         `json:"original_language"`
	Credits          models.Credits `json:"credits"`
}

func (c *tmdbClient) showDetails(ctx context.Context, tmdbID int64) (*models.ShowDetails, error) {
	var payload tmdbShowResponse
	params := url.Values{"append_to_response": []string{"credits"}}
	if err := c.doGET(ctx, []string{"tv", strconv.FormatInt(tmdbID, 10)}, params, &payload); err != nil {
		return nil, err
	}

	return &models.ShowDetails{
		TotalEpisodes: payload.NumberOfEpisodes,
		TotalSeasons:  payload.NumberOfSeasons,
		Status:        payload.Status,
		Genres:        payload.Genres,
		Rating:        payload.VoteAverage,
		Language:      payload.OriginalLanguage,
		Credits:       payload.Credits,
	}, nil
}

func pickTitle(movieTitle, seriesName string) string {
	if movieTitle != "" {
		return movieTitle
	}
	return seriesName
}

// parseYear derives the release year from whichever date is present,
// preferring the movie release date. Nil when neither parses.
func parseYear(movieDate, seriesDate string) *int {
	date := movieDate
	if date == "" {
		date = seriesDate
	}
	if date == "" {
		return nil
	}
	if t, err := time.Parse("2006-01-02", date); err == nil {
		y := t.Year()
		return &y
	}
	if len(date) >= 4 {
		if y, err := strconv.Atoi(date[:4]); err == nil {
			return &y
		}
	}
	return nil
}

// buildPosterURL turns a provider image path into an absolute CDN URL at
// the fixed poster width. Nil when the title has no poster.
func buildPosterURL(imagePath string) *string {
	trimmed := strings.TrimSpace(imagePath)
	if trimmed == "" {
		return nil
	}
	full := fmt.Sprintf("%s/%s/%s", tmdbImageBaseURL, tmdbPosterSize, strings.TrimPrefix(trimmed, "/"))
	return &full
}

// nonZeroAmount maps the provider's zero-for-unknown financials to nil,
// keeping "unknown" distinct from an actual zero figure downstream.
func nonZeroAmount(amount int64) *int64 {
	if amount <= 0 {
		return nil
	}
	return &amount
}

func normalizeLanguage(lang string) string {
	lang = strings.ReplaceAll(lang, "_", "-")
	if len(lang) == 2 {
		return strings.ToLower(lang) + "-US"
	}
	if len(lang) >= 5 {
		return strings.ToLower(lang[:2]) + "-" + strings.ToUpper(lang[3:])
	}
	return "en-US"
}
