package auth

import (
	"github.com/rs/zerolog"
)

// Service provides authentication operations for the HTTP layer.
type Service struct {
	jwtService *JWTService
	logger     zerolog.Logger
}

// ServiceConfig holds configuration for the auth service.
type ServiceConfig struct {
	JWTService *JWTService
	Logger     zerolog.Logger
}

// NewService creates a new auth service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		jwtService: cfg.JWTService,
		logger:     cfg.Logger.With().Str("component", "auth").Logger(),
	}
}

// ValidateAccessToken validates a bearer token and returns its subject.
func (s *Service) ValidateAccessToken(tokenString string) (string, error) {
	claims, err := s.jwtService.ValidateAccessToken(tokenString)
	if err != nil {
		s.logger.Debug().Err(err).Msg("access token rejected")
		return "", err
	}
	return claims.Subject, nil
}

// IssueToken creates an access token for an operator or service account.
func (s *Service) IssueToken(subject, scope string) (string, error) {
	token, expiresAt, err := s.jwtService.GenerateAccessToken(subject, scope)
	if err != nil {
		return "", err
	}
	s.logger.Info().
		Str("subject", subject).
		Time("expires_at", expiresAt).
		Msg("access token issued")
	return token, nil
}
