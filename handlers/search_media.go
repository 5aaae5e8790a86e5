package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"reeltrack/models"
	metadatapkg "reeltrack/services/metadata"
	"reeltrack/services/sessions"
)

type metadataService interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
	FetchDetails(ctx context.Context, externalID int64, kind models.MediaKind) (models.Details, error)
}

var _ metadataService = (*metadatapkg.Service)(nil)

type tokenValidator interface {
	Validate(token string) (models.Session, error)
}

// SearchMediaHandler exposes the catalog gateway at /search-media. One
// endpoint serves both modes: ?query= for free-text search and ?id=&type=
// for the full detail payload of a single title.
type SearchMediaHandler struct {
	Service  metadataService
	Sessions tokenValidator
}

func NewSearchMediaHandler(service metadataService, sessionsSvc *sessions.Service) *SearchMediaHandler {
	return &SearchMediaHandler{Service: service, Sessions: sessionsSvc}
}

// SearchResponse wraps search stubs for the wire.
type SearchResponse struct {
	Results []models.SearchResult `json:"results"`
}

func (h *SearchMediaHandler) Handle(w http.ResponseWriter, r *http.Request) {
	// Browser clients call this endpoint cross-origin; every response,
	// including errors, carries the CORS headers.
	setCORSHeaders(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	token := extractBearerToken(r)
	if token == "" {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if _, err := h.Sessions.Validate(token); err != nil {
		respondError(w, http.StatusUnauthorized, "invalid or expired session")
		return
	}

	idParam := strings.TrimSpace(r.URL.Query().Get("id"))
	typeParam := strings.TrimSpace(r.URL.Query().Get("type"))
	if idParam != "" || typeParam != "" {
		h.details(w, r, idParam, typeParam)
		return
	}

	h.search(w, r)
}

func (h *SearchMediaHandler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	results, err := h.Service.Search(r.Context(), query)
	if err != nil {
		if errors.Is(err, metadatapkg.ErrEmptyQuery) {
			respondError(w, http.StatusBadRequest, "query parameter is required")
			return
		}
		// The provider detail stays in the log; the client just retries.
		log.Printf("[search-media] search failed: %v", err)
		respondError(w, http.StatusInternalServerError, "search is temporarily unavailable, please try again")
		return
	}

	respondJSON(w, http.StatusOK, SearchResponse{Results: results})
}

func (h *SearchMediaHandler) details(w http.ResponseWriter, r *http.Request, idParam, typeParam string) {
	if idParam == "" || typeParam == "" {
		respondError(w, http.StatusBadRequest, "both id and type parameters are required")
		return
	}

	tmdbID, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "id must be a number")
		return
	}

	kind := models.MediaKind(strings.ToLower(typeParam))
	if !kind.Valid() {
		respondError(w, http.StatusBadRequest, "type must be movie or tv")
		return
	}

	details, err := h.Service.FetchDetails(r.Context(), tmdbID, kind)
	if err != nil {
		log.Printf("[search-media] detail fetch failed: %v", err)
		respondError(w, http.StatusInternalServerError, "details are temporarily unavailable, please try again")
		return
	}

	// The wire shape is the bare detail payload for the requested kind.
	if details.Kind == models.KindMovie {
		respondJSON(w, http.StatusOK, details.Movie)
		return
	}
	respondJSON(w, http.StatusOK, details.Show)
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Client-Info, Apikey")
}
