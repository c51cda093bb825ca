package handlers

import (
	"context"
	"net/http"

	"pong/internal/utils"
)

type contextKey string

const playerIDKey contextKey = "playerID"

// Auth validates the bearer token and stores the caller's player ID in the
// request context for the handlers below it.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := utils.VerifyToken(r, secret)
			if err != nil {
				utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			playerID, err := utils.GetUserIDFromClaims(claims)
			if err != nil {
				utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			ctx := context.WithValue(r.Context(), playerIDKey, playerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PlayerID returns the authenticated player ID set by Auth.
func PlayerID(r *http.Request) string {
	id, _ := r.Context().Value(playerIDKey).(string)
	return id
}
