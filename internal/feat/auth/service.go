package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stereo-express/touch/pkg/cl/config"
	"github.com/stereo-express/touch/pkg/cl/logger"
)

const tokenIssuer = "touch"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
)

// Service defines the auth service interface.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Authenticate(ctx context.Context, email, password string) (*Admin, error)
	CreateSession(ctx context.Context, email string) (token string, err error)
	ValidateSession(ctx context.Context, token string) (string, error)
	DeleteSession(ctx context.Context, token string) error
	GetSessionTTL() time.Duration
}

type service struct {
	cfg        *config.Config
	log        logger.Logger
	admin      Admin
	secret     []byte
	sessionTTL time.Duration

	mu      sync.Mutex
	revoked map[string]time.Time // token id -> expiry
}

// NewService creates a new auth service.
func NewService(cfg *config.Config, log logger.Logger) Service {
	return &service{
		cfg:     cfg,
		log:     log,
		revoked: make(map[string]time.Time),
	}
}

func (s *service) Start(ctx context.Context) error {
	ttl, err := time.ParseDuration(s.cfg.Auth.SessionTTL)
	if err != nil || ttl <= 0 {
		ttl = 24 * time.Hour
		s.log.Infof("Invalid session TTL, using default: %v", ttl)
	}
	s.sessionTTL = ttl

	s.admin = Admin{Email: s.cfg.Auth.AdminEmail, PasswordHash: s.cfg.Auth.AdminPasswordHash}
	if s.admin.PasswordHash == "" {
		s.log.Warnf("No admin password hash configured, admin login is disabled")
	}

	s.secret = []byte(s.cfg.Auth.SessionSecret)
	if len(s.secret) == 0 {
		s.secret = make([]byte, 32)
		if _, err := rand.Read(s.secret); err != nil {
			return fmt.Errorf("cannot generate session secret: %w", err)
		}
		s.log.Warnf("No session secret configured, sessions will not survive a restart")
	}

	s.log.Info("Auth service started")
	return nil
}

func (s *service) Stop(ctx context.Context) error {
	s.log.Info("Auth service stopped")
	return nil
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*Admin, error) {
	if !s.admin.Matches(email) || !s.admin.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	admin := s.admin
	return &admin, nil
}

func (s *service) CreateSession(ctx context.Context, email string) (string, error) {
	session := NewSession(email, s.sessionTTL)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.claims()).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("cannot sign session: %w", err)
	}
	return token, nil
}

// ValidateSession returns the admin email of a valid token.
func (s *service) ValidateSession(ctx context.Context, token string) (string, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	_, revoked := s.revoked[claims.ID]
	s.mu.Unlock()
	if revoked {
		return "", ErrSessionNotFound
	}

	if !s.admin.Matches(claims.Subject) {
		return "", ErrSessionNotFound
	}
	return claims.Subject, nil
}

// DeleteSession revokes token until it expires.
func (s *service) DeleteSession(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	s.revoked[claims.ID] = claims.ExpiresAt.Time
	return nil
}

func (s *service) GetSessionTTL() time.Duration {
	return s.sessionTTL
}

func (s *service) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, ErrSessionNotFound
	}
	return claims, nil
}
