package middleware

import (
	"context"
	"net/http"
	"strings"

	"cms-collab-server/pkg/jwt"
	"cms-collab-server/pkg/response"
)

type contextKey string

const (
	UserIDKey   contextKey = "userID"
	UserNameKey contextKey = "userName"
)

// IdentityMiddleware extracts the collaborator identity from a signed
// token. Authentication itself happens upstream; this only establishes
// who the caller is.
func IdentityMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			claims, err := jwt.ValidateToken(parts[1], jwtSecret)
			if err != nil {
				response.Unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UserNameKey, claims.Name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserID(r *http.Request) string {
	userID, ok := r.Context().Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

func GetUserName(r *http.Request) string {
	name, ok := r.Context().Value(UserNameKey).(string)
	if !ok {
		return ""
	}
	return name
}
