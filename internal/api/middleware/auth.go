package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gatewayplane/gatewayplane/internal/api/models"
	"github.com/gatewayplane/gatewayplane/internal/auth"
)

type subjectKey struct{}

// TokenValidator validates bearer tokens and returns their subject.
type TokenValidator interface {
	ValidateAccessToken(token string) (string, error)
}

var errBadAuthorization = errors.New("invalid authorization header format")

// Auth rejects requests without a valid bearer token and stores the token
// subject in the request context.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r.Header.Get("Authorization"))
			if err != nil {
				writeUnauthorized(w, r, err.Error())
				return
			}

			subject, err := validator.ValidateAccessToken(token)
			if err != nil {
				writeUnauthorized(w, r, rejectionDetail(err))
				return
			}

			trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("enduser.id", subject))
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey{}, subject)))
		})
	}
}

// bearerToken extracts the token from an Authorization header value.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("missing authorization header")
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errBadAuthorization
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func rejectionDetail(err error) string {
	switch {
	case errors.Is(err, auth.ErrAccessTokenExpired):
		return "access token has expired"
	case errors.Is(err, auth.ErrInvalidAccessToken):
		return "invalid access token"
	default:
		return "authentication failed"
	}
}

// writeUnauthorized lives here rather than in response, which imports this package.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	problem := models.NewUnauthorized(GetRequestID(r.Context()), detail)
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// GetSubject returns the authenticated token subject, or "" for anonymous requests.
func GetSubject(ctx context.Context) string {
	subject, _ := ctx.Value(subjectKey{}).(string)
	return subject
}
