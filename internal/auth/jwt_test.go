package auth_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewayplane/gatewayplane/internal/auth"
)

const (
	testKey      = "test-secret-key-for-testing-only"
	testIssuer   = "https://gateway.example.com"
	testAudience = "gatewayplane-management"
)

func newJWT(key, issuer, audience string) *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: key,
		Issuer:     issuer,
		Audience:   audience,
	})
}

func TestJWTService_GenerateAndValidateAccessToken(t *testing.T) {
	svc := newJWT(testKey, testIssuer, testAudience)

	token, expiresAt, err := svc.GenerateAccessToken("ops@example.com", "alerts:admin")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.Equal(t, "alerts:admin", claims.Scope)
	assert.Equal(t, testIssuer, claims.Issuer)
}

func TestJWTService_EmptySubject(t *testing.T) {
	svc := newJWT(testKey, testIssuer, testAudience)

	_, _, err := svc.GenerateAccessToken("", "")
	assert.ErrorIs(t, err, auth.ErrEmptySubject)
}

func TestJWTService_InvalidToken(t *testing.T) {
	svc := newJWT(testKey, testIssuer, testAudience)

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"malformed token", "not.a.valid.jwt"},
		{"invalid base64", "xxx.yyy.zzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
		})
	}
}

func TestJWTService_Expired(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := auth.NewJWTService(auth.JWTConfig{
		SigningKey: testKey,
		Issuer:     testIssuer,
		Audience:   testAudience,
		TTL:        time.Minute,
		Now:        func() time.Time { return issuedAt },
	})
	token, _, err := issuer.GenerateAccessToken("ops", "")
	require.NoError(t, err)

	validator := auth.NewJWTService(auth.JWTConfig{
		SigningKey: testKey,
		Issuer:     testIssuer,
		Audience:   testAudience,
		Now:        func() time.Time { return issuedAt.Add(2 * time.Minute) },
	})
	_, err = validator.ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrAccessTokenExpired)
}

func TestJWTService_Mismatch(t *testing.T) {
	tests := []struct {
		name      string
		validator *auth.JWTService
	}{
		{"wrong signing key", newJWT("key-two", testIssuer, testAudience)},
		{"wrong issuer", newJWT(testKey, "issuer-two", testAudience)},
		{"wrong audience", newJWT(testKey, testIssuer, "audience-two")},
	}

	token, _, err := newJWT(testKey, testIssuer, testAudience).GenerateAccessToken("ops", "")
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.validator.ValidateAccessToken(token)
			assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
		})
	}
}

func TestService_ValidateAccessToken(t *testing.T) {
	jwtSvc := newJWT(testKey, testIssuer, testAudience)
	svc := auth.NewService(auth.ServiceConfig{JWTService: jwtSvc, Logger: zerolog.Nop()})

	token, err := svc.IssueToken("ops@example.com", "")
	require.NoError(t, err)

	subject, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", subject)

	_, err = svc.ValidateAccessToken("garbage")
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}

func TestJWTService_RejectsUnsignedToken(t *testing.T) {
	// {"alg":"none"} header with a valid looking payload
	token := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJzdWIiOiJvcHMifQ."

	_, err := newJWT(testKey, testIssuer, testAudience).ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}

func TestJWTService_UniqueTokenIDs(t *testing.T) {
	svc := newJWT(testKey, testIssuer, testAudience)

	first, _, err := svc.GenerateAccessToken("ops", "")
	require.NoError(t, err)
	second, _, err := svc.GenerateAccessToken("ops", "")
	require.NoError(t, err)

	a, err := svc.ValidateAccessToken(first)
	require.NoError(t, err)
	b, err := svc.ValidateAccessToken(second)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}
