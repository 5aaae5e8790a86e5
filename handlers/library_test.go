package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"reeltrack/handlers"
	"reeltrack/internal/auth"
	"reeltrack/internal/database"
	"reeltrack/models"
	"reeltrack/services/batch"
	"reeltrack/services/library"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(database.Config{DatabasePath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// List rows reference accounts(id), so the owners the tests use must
	// exist as account rows.
	now := time.Now().UTC()
	for _, owner := range []string{"u1", "u2"} {
		_, err := db.Connection().Exec(
			`INSERT INTO accounts (id, email, password_hash, created_at, updated_at) VALUES (?, ?, '', ?, ?)`,
			owner, owner+"@example.com", now, now,
		)
		if err != nil {
			t.Fatalf("failed to seed account %s: %v", owner, err)
		}
	}
	return db
}

func newLibraryHandler(t *testing.T) (*handlers.LibraryHandler, *database.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := library.NewService(db.Media, nil)
	return handlers.NewLibraryHandler(svc), db
}

// authedRequest builds a request carrying an authenticated session for the
// given account.
func authedRequest(method, target, accountID string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	session := models.Session{Token: "test-token", AccountID: accountID}
	return req.WithContext(auth.WithSession(req.Context(), session))
}

func TestLibraryAddListRemove(t *testing.T) {
	h, _ := newLibraryHandler(t)

	payload, _ := json.Marshal(handlers.AddItemRequest{
		Title:     "Heat",
		MediaType: "movie",
	})
	req := authedRequest(http.MethodPost, "/api/lists/watched", "u1", payload)
	req = mux.SetURLVars(req, map[string]string{"collection": "watched"})
	rec := httptest.NewRecorder()
	h.Add(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var stored models.MediaRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &stored); err != nil {
		t.Fatalf("failed to decode add response: %v", err)
	}
	if stored.ID == "" || stored.WatchedAt == nil {
		t.Fatalf("expected stored record with id and watch time, got %+v", stored)
	}

	reqList := authedRequest(http.MethodGet, "/api/lists/watched", "u1", nil)
	reqList = mux.SetURLVars(reqList, map[string]string{"collection": "watched"})
	recList := httptest.NewRecorder()
	h.List(recList, reqList)

	if recList.Code != http.StatusOK {
		t.Fatalf("expected list status 200, got %d", recList.Code)
	}
	var listResp handlers.ListResponse
	if err := json.Unmarshal(recList.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	if len(listResp.Items) != 1 || listResp.Items[0].Title != "Heat" {
		t.Fatalf("unexpected list: %+v", listResp.Items)
	}

	reqDel := authedRequest(http.MethodDelete, "/api/lists/watched/"+stored.ID, "u1", nil)
	reqDel = mux.SetURLVars(reqDel, map[string]string{"collection": "watched", "id": stored.ID})
	recDel := httptest.NewRecorder()
	h.Remove(recDel, reqDel)

	if recDel.Code != http.StatusNoContent {
		t.Fatalf("expected delete status 204, got %d", recDel.Code)
	}
}

func TestLibraryListsAreOwnerScoped(t *testing.T) {
	h, _ := newLibraryHandler(t)

	payload, _ := json.Marshal(handlers.AddItemRequest{Title: "Heat", MediaType: "movie"})
	req := authedRequest(http.MethodPost, "/api/lists/watchlist", "u1", payload)
	req = mux.SetURLVars(req, map[string]string{"collection": "watchlist"})
	rec := httptest.NewRecorder()
	h.Add(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add failed: %d %s", rec.Code, rec.Body.String())
	}

	reqOther := authedRequest(http.MethodGet, "/api/lists/watchlist", "u2", nil)
	reqOther = mux.SetURLVars(reqOther, map[string]string{"collection": "watchlist"})
	recOther := httptest.NewRecorder()
	h.List(recOther, reqOther)

	var listResp handlers.ListResponse
	if err := json.Unmarshal(recOther.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	if len(listResp.Items) != 0 {
		t.Fatalf("expected empty list for another owner, got %+v", listResp.Items)
	}
}

func TestLibraryDuplicateReturnsConflict(t *testing.T) {
	h, _ := newLibraryHandler(t)

	payload, _ := json.Marshal(handlers.AddItemRequest{TMDBID: 550, Title: "Fight Club", MediaType: "movie"})
	for i, wantStatus := range []int{http.StatusCreated, http.StatusConflict} {
		req := authedRequest(http.MethodPost, "/api/lists/watchlist", "u1", payload)
		req = mux.SetURLVars(req, map[string]string{"collection": "watchlist"})
		rec := httptest.NewRecorder()
		h.Add(rec, req)
		if rec.Code != wantStatus {
			t.Fatalf("attempt %d: expected status %d, got %d: %s", i, wantStatus, rec.Code, rec.Body.String())
		}
	}
}

func TestLibraryUnknownCollection(t *testing.T) {
	h, _ := newLibraryHandler(t)

	req := authedRequest(http.MethodGet, "/api/lists/favorites", "u1", nil)
	req = mux.SetURLVars(req, map[string]string{"collection": "favorites"})
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestLibraryMove(t *testing.T) {
	h, _ := newLibraryHandler(t)

	payload, _ := json.Marshal(handlers.AddItemRequest{TMDBID: 550, Title: "Fight Club", MediaType: "movie"})
	req := authedRequest(http.MethodPost, "/api/lists/watchlist", "u1", payload)
	req = mux.SetURLVars(req, map[string]string{"collection": "watchlist"})
	rec := httptest.NewRecorder()
	h.Add(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add failed: %d %s", rec.Code, rec.Body.String())
	}
	var added models.MediaRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &added); err != nil {
		t.Fatalf("failed to decode add response: %v", err)
	}

	reqMove := authedRequest(http.MethodPost, "/api/lists/watchlist/"+added.ID+"/move", "u1", nil)
	reqMove = mux.SetURLVars(reqMove, map[string]string{"id": added.ID})
	recMove := httptest.NewRecorder()
	h.Move(recMove, reqMove)

	if recMove.Code != http.StatusOK {
		t.Fatalf("expected move status 200, got %d: %s", recMove.Code, recMove.Body.String())
	}
	var moved models.MediaRecord
	if err := json.Unmarshal(recMove.Body.Bytes(), &moved); err != nil {
		t.Fatalf("failed to decode move response: %v", err)
	}
	if moved.WatchedAt == nil {
		t.Fatalf("expected moved record to carry a watch time")
	}

	// Moving it again is a 404: it is no longer on the watchlist.
	recAgain := httptest.NewRecorder()
	h.Move(recAgain, reqMove)
	if recAgain.Code != http.StatusNotFound {
		t.Fatalf("expected second move to 404, got %d", recAgain.Code)
	}
}

func TestLibraryBatchAdd(t *testing.T) {
	h, _ := newLibraryHandler(t)

	// Seed one of the titles so the batch hits a duplicate.
	seed, _ := json.Marshal(handlers.AddItemRequest{TMDBID: 78, Title: "Blade Runner", MediaType: "movie"})
	reqSeed := authedRequest(http.MethodPost, "/api/lists/watchlist", "u1", seed)
	reqSeed = mux.SetURLVars(reqSeed, map[string]string{"collection": "watchlist"})
	recSeed := httptest.NewRecorder()
	h.Add(recSeed, reqSeed)
	if recSeed.Code != http.StatusCreated {
		t.Fatalf("seed add failed: %d", recSeed.Code)
	}

	payload, _ := json.Marshal(handlers.BatchAddRequest{Items: []handlers.AddItemRequest{
		{TMDBID: 78, Title: "Blade Runner", MediaType: "movie"},
		{TMDBID: 335984, Title: "Blade Runner 2049", MediaType: "movie"},
		{TMDBID: 1396, Title: "Breaking Bad", MediaType: "tv"},
	}})
	req := authedRequest(http.MethodPost, "/api/lists/watchlist/batch", "u1", payload)
	req = mux.SetURLVars(req, map[string]string{"collection": "watchlist"})
	rec := httptest.NewRecorder()
	h.BatchAdd(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected batch status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report batch.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode batch report: %v", err)
	}
	if report.Attempted != 3 || report.Added != 2 || report.Duplicates != 1 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	reqList := authedRequest(http.MethodGet, "/api/lists/watchlist", "u1", nil)
	reqList = mux.SetURLVars(reqList, map[string]string{"collection": "watchlist"})
	recList := httptest.NewRecorder()
	h.List(recList, reqList)
	var listResp handlers.ListResponse
	if err := json.Unmarshal(recList.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	if len(listResp.Items) != 3 {
		t.Fatalf("expected 3 items after batch, got %d", len(listResp.Items))
	}
}

func TestLibraryBatchAddRejectsRepeatedIDs(t *testing.T) {
	h, _ := newLibraryHandler(t)

	payload, _ := json.Marshal(handlers.BatchAddRequest{Items: []handlers.AddItemRequest{
		{TMDBID: 78, Title: "Blade Runner", MediaType: "movie"},
		{TMDBID: 78, Title: "Blade Runner", MediaType: "movie"},
		{TMDBID: 1396, Title: "Breaking Bad", MediaType: "tv"},
	}})
	req := authedRequest(http.MethodPost, "/api/lists/watchlist/batch", "u1", payload)
	req = mux.SetURLVars(req, map[string]string{"collection": "watchlist"})
	rec := httptest.NewRecorder()
	h.BatchAdd(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for repeated id, got %d: %s", rec.Code, rec.Body.String())
	}

	// Nothing was added; the batch is rejected as a whole.
	reqList := authedRequest(http.MethodGet, "/api/lists/watchlist", "u1", nil)
	reqList = mux.SetURLVars(reqList, map[string]string{"collection": "watchlist"})
	recList := httptest.NewRecorder()
	h.List(recList, reqList)
	var listResp handlers.ListResponse
	if err := json.Unmarshal(recList.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	if len(listResp.Items) != 0 {
		t.Fatalf("expected empty list after rejected batch, got %+v", listResp.Items)
	}
}

func TestLibraryStats(t *testing.T) {
	h, _ := newLibraryHandler(t)

	items := []handlers.AddItemRequest{
		{Title: "Heat", MediaType: "movie"},
		{Title: "Ronin", MediaType: "movie"},
	}
	for _, item := range items {
		payload, _ := json.Marshal(item)
		req := authedRequest(http.MethodPost, "/api/lists/watched", "u1", payload)
		req = mux.SetURLVars(req, map[string]string{"collection": "watched"})
		rec := httptest.NewRecorder()
		h.Add(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("add failed: %d", rec.Code)
		}
	}

	req := authedRequest(http.MethodGet, "/api/lists/stats", "u1", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected stats status 200, got %d", rec.Code)
	}
	var stats models.LibraryStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats.WatchedCount != 2 || stats.WatchlistCount != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
