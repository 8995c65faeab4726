package myMiddleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

// Context keys for the authenticated caller, set by Handle and read by
// every protected handler.
const (
	UserKey     contextKey = "user_id"
	UsernameKey contextKey = "user_name"
)

// TokenValidator is the slice of the user service this package needs:
// token in, (user id, display name) out.
type TokenValidator interface {
	ValidateToken(tokenString string) (string, string, error)
}

type AuthMiddleware struct {
	validator TokenValidator
}

func NewAuthMiddleware(v TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: v}
}

// Handle authenticates the request and injects the caller's id and name
// into the context. The bearer header is the normal path; ?token= covers
// websocket clients, which cannot set headers from the browser.
func (am *AuthMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if h := r.Header.Get("Authorization"); h != "" {
			if parts := strings.Split(h, " "); len(parts) == 2 {
				token = parts[1]
			}
		}
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			http.Error(w, "Missing authentication token", http.StatusUnauthorized)
			return
		}

		userID, name, err := am.validator.ValidateToken(token)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserKey, userID)
		ctx = context.WithValue(ctx, UsernameKey, name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
