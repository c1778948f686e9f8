package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

const explorerIDKey ctxKey = iota

// Auth verifies HMAC-signed bearer tokens issued by the platform auth service.
// The subject claim carries the explorer's user id.
type Auth struct{ secret []byte }

func NewAuth(secret string) *Auth { return &Auth{secret: []byte(secret)} }

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}

		tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return a.secret, nil
		})
		if err != nil || !tok.Valid {
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
			return
		}

		sub, err := tok.Claims.GetSubject()
		if err != nil || sub == "" {
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", "token has no subject")
			return
		}
		id, err := strconv.ParseInt(sub, 10, 64)
		if err != nil || id <= 0 {
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", "token subject is not a user id")
			return
		}

		ctx := context.WithValue(r.Context(), explorerIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ExplorerID returns the authenticated explorer id placed by the middleware.
func ExplorerID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(explorerIDKey).(int64)
	return id, ok
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
