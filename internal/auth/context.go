package auth

import (
	"context"
	"net/http"

	"reeltrack/models"
)

// ContextKey is the type used for context keys
type ContextKey string

const (
	// ContextKeyAccountID is the key for the account ID in the context
	ContextKeyAccountID ContextKey = "accountID"
	// ContextKeySession is the key for the session in the context
	ContextKeySession ContextKey = "session"
)

// WithSession returns a context carrying the authenticated session and its
// account id.
func WithSession(ctx context.Context, session models.Session) context.Context {
	ctx = context.WithValue(ctx, ContextKeyAccountID, session.AccountID)
	return context.WithValue(ctx, ContextKeySession, session)
}

// GetAccountID retrieves the authenticated account ID from the request context.
func GetAccountID(r *http.Request) string {
	if id, ok := r.Context().Value(ContextKeyAccountID).(string); ok {
		return id
	}
	return ""
}

// GetSession retrieves the authenticated session from the request context.
func GetSession(r *http.Request) (models.Session, bool) {
	session, ok := r.Context().Value(ContextKeySession).(models.Session)
	return session, ok
}
