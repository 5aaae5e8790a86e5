package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"reeltrack/internal/auth"
	"reeltrack/models"
	"reeltrack/services/batch"
	"reeltrack/services/library"
)

type libraryService interface {
	Add(ctx context.Context, ownerID string, collection models.Collection, rec models.MediaRecord) (models.MediaRecord, error)
	AddFromSearch(ctx context.Context, ownerID string, collection models.Collection, stub models.SearchResult) (models.MediaRecord, error)
	Remove(ctx context.Context, ownerID, id string, collection models.Collection) error
	List(ctx context.Context, ownerID string, collection models.Collection) ([]models.MediaRecord, error)
	MoveToWatched(ctx context.Context, ownerID, id string) (models.MediaRecord, error)
	Stats(ctx context.Context, ownerID string) (models.LibraryStats, error)
}

var _ libraryService = (*library.Service)(nil)

// LibraryHandler serves the watched and watchlist collections under
// /api/lists. Every route requires an authenticated session; the owner id
// always comes from the session, never from the request body.
type LibraryHandler struct {
	Service libraryService
}

func NewLibraryHandler(service libraryService) *LibraryHandler {
	return &LibraryHandler{Service: service}
}

// AddItemRequest is the body for adding one item. When TMDBID is set the
// item is enriched from the catalog before storing; otherwise the fields
// are stored as given (manual entry).
type AddItemRequest struct {
	TMDBID    int64  `json:"id"`
	Title     string `json:"title"`
	MediaType string `json:"mediaType"`
	Year      *int   `json:"year"`
	PosterURL string `json:"posterPath"`
	Overview  string `json:"overview"`
}

// BatchAddRequest is the body for adding several search results at once.
type BatchAddRequest struct {
	Items []AddItemRequest `json:"items"`
}

// ListResponse wraps a collection's records for the wire.
type ListResponse struct {
	Items []models.MediaRecord `json:"items"`
}

func collectionVar(r *http.Request) (models.Collection, bool) {
	collection := models.Collection(strings.ToLower(mux.Vars(r)["collection"]))
	return collection, collection.Valid()
}

// List returns the owner's records in a collection, most recent first.
func (h *LibraryHandler) List(w http.ResponseWriter, r *http.Request) {
	collection, ok := collectionVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "unknown collection")
		return
	}

	records, err := h.Service.List(r.Context(), auth.GetAccountID(r), collection)
	if err != nil {
		respondLibraryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ListResponse{Items: records})
}

// Add stores one item in a collection.
func (h *LibraryHandler) Add(w http.ResponseWriter, r *http.Request) {
	collection, ok := collectionVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "unknown collection")
		return
	}

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ownerID := auth.GetAccountID(r)
	stored, err := h.addOne(r.Context(), ownerID, collection, req)
	if err != nil {
		respondLibraryError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, stored)
}

func (h *LibraryHandler) addOne(ctx context.Context, ownerID string, collection models.Collection, req AddItemRequest) (models.MediaRecord, error) {
	kind := models.MediaKind(strings.ToLower(req.MediaType))

	if req.TMDBID > 0 {
		stub := models.SearchResult{
			TMDBID:   req.TMDBID,
			Title:    req.Title,
			Kind:     kind,
			Year:     req.Year,
			Overview: req.Overview,
		}
		if req.PosterURL != "" {
			stub.PosterURL = &req.PosterURL
		}
		return h.Service.AddFromSearch(ctx, ownerID, collection, stub)
	}

	rec := models.MediaRecord{
		Title:       req.Title,
		Kind:        kind,
		Year:        req.Year,
		PosterURL:   req.PosterURL,
		Description: req.Overview,
	}
	return h.Service.Add(ctx, ownerID, collection, rec)
}

// Remove deletes one record from a collection.
func (h *LibraryHandler) Remove(w http.ResponseWriter, r *http.Request) {
	collection, ok := collectionVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "unknown collection")
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.Service.Remove(r.Context(), auth.GetAccountID(r), id, collection); err != nil {
		respondLibraryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Move transfers a watchlist record into the watched collection.
func (h *LibraryHandler) Move(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	moved, err := h.Service.MoveToWatched(r.Context(), auth.GetAccountID(r), id)
	if err != nil {
		respondLibraryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, moved)
}

// BatchAdd adds several catalog items to a collection in one call. The adds
// run strictly one at a time; duplicates are counted, not treated as
// failures.
func (h *LibraryHandler) BatchAdd(w http.ResponseWriter, r *http.Request) {
	collection, ok := collectionVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "unknown collection")
		return
	}

	var req BatchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "items are required")
		return
	}

	stubs := make([]models.SearchResult, 0, len(req.Items))
	seen := make(map[int64]struct{}, len(req.Items))
	for _, item := range req.Items {
		if item.TMDBID <= 0 {
			respondError(w, http.StatusBadRequest, "every batch item needs a catalog id")
			return
		}
		// A repeated id would deselect itself when toggled below, so the
		// request is rejected up front instead of losing the item.
		if _, dup := seen[item.TMDBID]; dup {
			respondError(w, http.StatusBadRequest, "duplicate catalog id in batch")
			return
		}
		seen[item.TMDBID] = struct{}{}
		stub := models.SearchResult{
			TMDBID:   item.TMDBID,
			Title:    item.Title,
			Kind:     models.MediaKind(strings.ToLower(item.MediaType)),
			Year:     item.Year,
			Overview: item.Overview,
		}
		if item.PosterURL != "" {
			stub.PosterURL = &item.PosterURL
		}
		stubs = append(stubs, stub)
	}

	session := batch.NewSession()
	session.SetResults(stubs)
	for _, stub := range stubs {
		if _, err := session.Toggle(stub.TMDBID); err != nil {
			respondLibraryError(w, err)
			return
		}
	}

	report, err := session.AddSelected(r.Context(), h.Service, auth.GetAccountID(r), collection)
	if err != nil {
		respondLibraryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Stats returns aggregate counts over both collections.
func (h *LibraryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context(), auth.GetAccountID(r))
	if err != nil {
		respondLibraryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func respondLibraryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, library.ErrDuplicate):
		respondError(w, http.StatusConflict, "This item is already in your list")
	case errors.Is(err, library.ErrNotFound):
		respondError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, library.ErrPartialMove):
		respondError(w, http.StatusInternalServerError, "item was removed from the watchlist but could not be added to watched")
	case errors.Is(err, library.ErrOwnerRequired), errors.Is(err, batch.ErrOwnerRequired):
		respondError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, library.ErrTitleRequired),
		errors.Is(err, library.ErrIDRequired),
		errors.Is(err, library.ErrUnknownCollection),
		errors.Is(err, library.ErrUnknownMediaKind),
		errors.Is(err, batch.ErrNoSelection):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "storage operation failed")
	}
}
