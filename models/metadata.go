package models

// SearchResult is the partial record ("stub") returned by a catalog search,
// before detail enrichment. JSON field names follow the gateway wire format.
type SearchResult struct {
	TMDBID    int64     `json:"id"`
	Title     string    `json:"title"`
	Kind      MediaKind `json:"media_type"`
	Year      *int      `json:"year"`
	PosterURL *string   `json:"poster_path"`
	Overview  string    `json:"overview"`
}

// Genre is a single upstream genre entry.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CastMember is a credited performer.
type CastMember struct {
	Name string `json:"name"`
}

// CrewMember is a credited crew entry; Job distinguishes directors.
type CrewMember struct {
	Job  string `json:"job"`
	Name string `json:"name"`
}

// Credits holds the cast and crew lists attached to a detail payload.
type Credits struct {
	Cast []CastMember `json:"cast,omitempty"`
	Crew []CrewMember `json:"crew,omitempty"`
}

// MovieDetails is the movie arm of the detail union.
type MovieDetails struct {
	Runtime     int     `json:"runtime,omitempty"`
	Budget      *int64  `json:"budget"`
	Revenue     *int64  `json:"revenue"`
	Genres      []Genre `json:"genres,omitempty"`
	Rating      float64 `json:"vote_average,omitempty"`
	Language    string  `json:"original_language,omitempty"`
	ReleaseDate string  `json:"release_date,omitempty"`
	Credits     Credits `json:"credits,omitempty"`
}

// ShowDetails is the TV arm of the detail union.
type ShowDetails struct {
	TotalEpisodes int     `json:"total_episodes"`
	TotalSeasons  int     `json:"total_seasons"`
	Status        string  `json:"status,omitempty"`
	Genres        []Genre `json:"genres,omitempty"`
	Rating        float64 `json:"vote_average,omitempty"`
	Language      string  `json:"original_language,omitempty"`
	Credits       Credits `json:"credits,omitempty"`
}

// Details is a tagged union over the two detail shapes. Exactly one of
// Movie or Show is non-nil, matching Kind; consumers must branch on Kind
// before reading kind-specific fields.
type Details struct {
	Kind  MediaKind
	Movie *MovieDetails
	Show  *ShowDetails
}
