package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"diet-scheduler/internal/auth"
	"diet-scheduler/internal/model"
)

type ctxKey string

const (
	UserIDKey   ctxKey = "uid"
	UserNameKey ctxKey = "name"
	RoleKey     ctxKey = "role"
)

// open paths skip authentication
var open = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if open[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			// token from Authorization: Bearer <jwt>
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" || raw == r.Header.Get("Authorization") {
				unauthorized(w, "no token")
				return
			}
			claims, err := auth.ParseToken(raw, secret)
			if err != nil {
				unauthorized(w, "bad token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UserNameKey, claims.Name)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireDietician guards break mutation endpoints.
func RequireDietician(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Role(r.Context()) != model.RoleDietician {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "dietician role required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func UserID(ctx context.Context) string {
	v, _ := ctx.Value(UserIDKey).(string)
	return v
}

func UserName(ctx context.Context) string {
	v, _ := ctx.Value(UserNameKey).(string)
	return v
}

func Role(ctx context.Context) model.Role {
	v, _ := ctx.Value(RoleKey).(model.Role)
	return v
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
