package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"reeltrack/handlers"
	"reeltrack/services/sessions"
)

// Register wires every route onto the router. The /search-media endpoint
// lives at the root to keep the path older clients already use; everything
// else sits under /api, with the lists and account routes behind session
// auth.
func Register(r *mux.Router,
	searchMedia *handlers.SearchMediaHandler,
	authHandler *handlers.AuthHandler,
	libraryHandler *handlers.LibraryHandler,
	sessionsSvc *sessions.Service,
) {
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	r.HandleFunc("/search-media", searchMedia.Handle).Methods(http.MethodGet, http.MethodOptions)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)

	// Open auth routes.
	api.HandleFunc("/auth/signup", authHandler.SignUp).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auth/reset/request", authHandler.RequestReset).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auth/reset/complete", authHandler.CompleteReset).Methods(http.MethodPost, http.MethodOptions)

	// Everything below requires a valid session.
	protected := api.NewRoute().Subrouter()
	protected.Use(SessionAuthMiddleware(sessionsSvc))

	protected.HandleFunc("/auth/me", authHandler.Me).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/auth/password", authHandler.ChangePassword).Methods(http.MethodPost, http.MethodOptions)

	protected.HandleFunc("/lists/stats", libraryHandler.Stats).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/lists/watchlist/{id}/move", libraryHandler.Move).Methods(http.MethodPost, http.MethodOptions)
	protected.HandleFunc("/lists/{collection}/batch", libraryHandler.BatchAdd).Methods(http.MethodPost, http.MethodOptions)
	protected.HandleFunc("/lists/{collection}/{id}", libraryHandler.Remove).Methods(http.MethodDelete, http.MethodOptions)
	protected.HandleFunc("/lists/{collection}", libraryHandler.List).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/lists/{collection}", libraryHandler.Add).Methods(http.MethodPost, http.MethodOptions)
}
