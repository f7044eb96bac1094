package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Admin is the single administrator account, configured by email and
// bcrypt password hash.
type Admin struct {
	Email        string
	PasswordHash string
}

// CheckPassword verifies if the provided password matches the stored hash.
func (a *Admin) CheckPassword(password string) bool {
	if a.PasswordHash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password))
	return err == nil
}

// Matches reports whether email names this admin, ignoring case.
func (a *Admin) Matches(email string) bool {
	return a.Email != "" && strings.EqualFold(strings.TrimSpace(email), a.Email)
}

// HashPassword returns the bcrypt hash to configure as auth.admin_password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Session represents an admin session carried by a signed token.
type Session struct {
	ID        string
	Email     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewSession creates a new session for email with the specified TTL.
func NewSession(email string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New().String(),
		Email:     email,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

func (s *Session) claims() jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        s.ID,
		Subject:   s.Email,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
	}
}
