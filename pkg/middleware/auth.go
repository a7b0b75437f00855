package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/chris/transaction-orchestrator/pkg/respond"
)

type contextKey string

const subjectKey contextKey = "subject"

// Subject returns the token subject stored by BearerAuth, if any.
func Subject(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectKey).(string)
	return sub, ok
}

// BearerAuth rejects requests that do not carry a valid HS256 token signed with secret.
// The /health route stays open so load balancers can probe the process.
func BearerAuth(secret []byte) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respond.Error(w, http.StatusUnauthorized, "Authorization token not provided")
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				respond.Error(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				slog.WarnContext(r.Context(), "rejected bearer token", "path", r.URL.Path, "error", err)
				respond.Error(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := r.Context()
			if sub, err := token.Claims.GetSubject(); err == nil && sub != "" {
				ctx = context.WithValue(ctx, subjectKey, sub)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(fn)
	}
}
