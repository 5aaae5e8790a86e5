package library

import (
	"context"
	"log"
	"strings"

	"golang.org/x/text/language"

	"reeltrack/models"
)

const (
	maxCastNames     = 5
	maxDirectorNames = 2
)

// Gateway is the slice of the metadata service the resolver needs.
type Gateway interface {
	FetchDetails(ctx context.Context, externalID int64, kind models.MediaKind) (models.Details, error)
}

// Resolver turns search stubs into full library records by pulling the
// detail payload for the title and flattening it into display fields.
type Resolver struct {
	gateway Gateway
}

// NewResolver creates a resolver backed by the given metadata gateway.
func NewResolver(gateway Gateway) *Resolver {
	return &Resolver{gateway: gateway}
}

// Resolve builds a record for the owner from a search stub. Detail lookup is
// best effort: if the provider call fails the stub fields alone are kept, so
// a catalog outage never blocks adding an item.
func (r *Resolver) Resolve(ctx context.Context, ownerID string, stub models.SearchResult) models.MediaRecord {
	tmdbID := stub.TMDBID
	rec := models.MediaRecord{
		OwnerID:     ownerID,
		TMDBID:      &tmdbID,
		Title:       stub.Title,
		Kind:        stub.Kind,
		Year:        stub.Year,
		Description: stub.Overview,
	}
	if stub.PosterURL != nil {
		rec.PosterURL = *stub.PosterURL
	}

	details, err := r.gateway.FetchDetails(ctx, stub.TMDBID, stub.Kind)
	if err != nil {
		log.Printf("[library] detail lookup failed for %q (tmdb %d): %v", stub.Title, stub.TMDBID, err)
		return rec
	}

	switch details.Kind {
	case models.KindMovie:
		if m := details.Movie; m != nil {
			rec.Genres = joinGenres(m.Genres)
			rec.Rating = m.Rating
			rec.Language = displayLanguage(m.Language)
			rec.Director = joinDirectors(m.Credits.Crew)
			rec.MainCast = joinCast(m.Credits.Cast)
			rec.ReleaseDate = m.ReleaseDate
			rec.Runtime = m.Runtime
			rec.Budget = m.Budget
			rec.Revenue = m.Revenue
		}
	case models.KindShow:
		if s := details.Show; s != nil {
			rec.Genres = joinGenres(s.Genres)
			rec.Rating = s.Rating
			rec.Language = displayLanguage(s.Language)
			rec.Director = joinDirectors(s.Credits.Crew)
			rec.MainCast = joinCast(s.Credits.Cast)
			rec.TVStatus = s.Status
			rec.TotalEpisodes = s.TotalEpisodes
			rec.TotalSeasons = s.TotalSeasons
		}
	}

	return rec
}

func joinGenres(genres []models.Genre) string {
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		if g.Name != "" {
			names = append(names, g.Name)
		}
	}
	return strings.Join(names, ", ")
}

func joinCast(cast []models.CastMember) string {
	names := make([]string, 0, maxCastNames)
	for _, member := range cast {
		if member.Name == "" {
			continue
		}
		names = append(names, member.Name)
		if len(names) == maxCastNames {
			break
		}
	}
	return strings.Join(names, ", ")
}

func joinDirectors(crew []models.CrewMember) string {
	names := make([]string, 0, maxDirectorNames)
	for _, member := range crew {
		if member.Job != "Director" || member.Name == "" {
			continue
		}
		names = append(names, member.Name)
		if len(names) == maxDirectorNames {
			break
		}
	}
	return strings.Join(names, ", ")
}

// displayLanguage uppercases a provider language code, validating it as a
// real language tag first so junk codes pass through unmodified.
func displayLanguage(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return strings.ToUpper(code)
	}
	base, _ := tag.Base()
	return strings.ToUpper(base.String())
}
