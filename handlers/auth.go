package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"reeltrack/internal/auth"
	"reeltrack/services/accounts"
	"reeltrack/services/sessions"
)

// AuthHandler handles signup, login, and password management.
type AuthHandler struct {
	accounts *accounts.Service
	sessions *sessions.Service
}

func NewAuthHandler(accountsSvc *accounts.Service, sessionsSvc *sessions.Service) *AuthHandler {
	return &AuthHandler{
		accounts: accountsSvc,
		sessions: sessionsSvc,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned on signup and login.
type SessionResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
	AccountID string `json:"accountId"`
	Email     string `json:"email"`
}

// SignUp creates an account and signs it in.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.accounts.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, accounts.ErrEmailExists) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.issueSession(w, r, account.ID, account.Email, http.StatusCreated)
}

// Login authenticates credentials and returns a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	h.issueSession(w, r, account.ID, account.Email, http.StatusOK)
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, r *http.Request, accountID, email string, status int) {
	session, err := h.sessions.Create(accountID, r.Header.Get("User-Agent"), getClientIPAddress(r))
	if err != nil {
		log.Printf("[auth] create session for %s: %v", accountID, err)
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	respondJSON(w, status, SessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Format("2006-01-02T15:04:05Z"),
		AccountID: accountID,
		Email:     email,
	})
}

// Logout invalidates the current session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r)
	if token == "" {
		respondError(w, http.StatusBadRequest, "no session token")
		return
	}

	if err := h.sessions.Revoke(token); err != nil && !errors.Is(err, sessions.ErrSessionNotFound) {
		respondError(w, http.StatusInternalServerError, "failed to revoke session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me returns the signed-in account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.Get(r.Context(), auth.GetAccountID(r))
	if err != nil {
		respondError(w, http.StatusNotFound, "account not found")
		return
	}
	respondJSON(w, http.StatusOK, account)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword updates the signed-in account's password and revokes its
// other sessions.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	accountID := auth.GetAccountID(r)
	if err := h.accounts.UpdatePassword(r.Context(), accountID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "current password is incorrect")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.sessions.RevokeAllForAccount(accountID)
	respondJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

type resetRequest struct {
	Email string `json:"email"`
}

// RequestReset starts a password reset. The response is the same whether or
// not the email exists; without an outbound mailer the code is written to
// the server log for the operator to relay.
func (h *AuthHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	code, err := h.accounts.StartReset(r.Context(), req.Email)
	if err != nil && !errors.Is(err, accounts.ErrEmailRequired) && !errors.Is(err, accounts.ErrEmailInvalid) {
		respondError(w, http.StatusInternalServerError, "failed to start reset")
		return
	}
	if code != "" {
		log.Printf("[auth] password reset code for %s: %s", req.Email, code)
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "if the email is registered, a reset code has been issued"})
}

type completeResetRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// CompleteReset sets a new password using a reset code.
func (h *AuthHandler) CompleteReset(w http.ResponseWriter, r *http.Request) {
	var req completeResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.accounts.CompleteReset(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		if errors.Is(err, accounts.ErrResetCodeInvalid) {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}
