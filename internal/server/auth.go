package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/aristath/portfolio-manager/internal/modules/users"
)

// TokenParser validates bearer tokens
type TokenParser interface {
	Parse(token string) (*users.Claims, error)
}

// RequireToken rejects requests without a valid bearer token and stores the
// caller as a domain.Principal for the handlers' ownership checks. Browsers
// cannot set headers on websocket upgrades, so a token query parameter is
// accepted too.
func RequireToken(tokens TokenParser, log zerolog.Logger) func(http.Handler) http.Handler {
	log = log.With().Str("middleware", "auth").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				writeUnauthorized(w)
				return
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected token")
				writeUnauthorized(w)
				return
			}

			ctx := domain.WithPrincipal(r.Context(), &domain.Principal{
				UserID:   claims.UserID,
				Username: claims.Username,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return r.URL.Query().Get("token")
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
}
