package middleware

import (
	"net/http"
	"strings"

	apperrors "venuebook/pkg/errors"
	"venuebook/pkg/logger"
	"venuebook/pkg/model"
)

type TokenParser interface {
	Parse(token string) (model.Actor, error)
}

// Authenticate resolves the Bearer token into a model.Actor stored on the
// request context. Requests without a valid token never reach next.
func Authenticate(parser TokenParser, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				log.Warn("Missing bearer token",
					"request_id", RequestIDFromContext(r.Context()),
					"path", r.URL.Path,
				)
				reject(w, apperrors.Unauthorized("Authorization header with Bearer token required"))
				return
			}

			actor, err := parser.Parse(token)
			if err != nil {
				log.Warn("Rejected bearer token",
					"request_id", RequestIDFromContext(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				reject(w, apperrors.Unauthorized("Invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
