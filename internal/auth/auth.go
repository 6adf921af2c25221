// Package auth issues the session tokens technicians submit records with and
// checks account credentials.
package auth

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ukydev/boomlift-maintenance/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrNoSecret     = errors.New("JWT secret is required")
)

// DefaultTokenExpiry is used when no expiry is configured.
const DefaultTokenExpiry = 24 * time.Hour

// Account limits checked by ValidateAccount.
const (
	MinUsernameLen = 3
	MaxUsernameLen = 50
	MinPasswordLen = 8
)

// Service signs and verifies technician session tokens.
type Service struct {
	jwtSecret []byte
	tokenExp  time.Duration
}

// sessionClaims is the token payload. The display name is what records are
// attributed to when a technician submits through the API.
type sessionClaims struct {
	UserID      string      `json:"user_id"`
	Username    string      `json:"username"`
	DisplayName string      `json:"display_name,omitempty"`
	Role        models.Role `json:"role"`
	jwt.RegisteredClaims
}

// NewService creates a new authentication service. The secret comes from
// runtime configuration and must not be empty.
func NewService(secret string, exp time.Duration) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrNoSecret
	}
	if exp <= 0 {
		exp = DefaultTokenExpiry
	}
	return &Service{jwtSecret: []byte(secret), tokenExp: exp}, nil
}

// HashPassword hashes a password using bcrypt
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func (s *Service) CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken signs a session token for user.
func (s *Service) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		UserID:      user.ID.Hex(),
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenExp)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// ValidateToken verifies a token, with or without its "Bearer " prefix, and
// returns its claims. Tokens without an expiry or naming an unknown role are
// rejected.
func (s *Service) ValidateToken(tokenString string) (*models.Claims, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(strings.TrimPrefix(tokenString, "Bearer "), &claims,
		func(*jwt.Token) (interface{}, error) { return s.jwtSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || claims.Username == "" || !models.IsValidRole(claims.Role) {
		return nil, ErrInvalidToken
	}

	return &models.Claims{
		UserID:      claims.UserID,
		Username:    claims.Username,
		DisplayName: claims.DisplayName,
		Role:        claims.Role,
		Exp:         claims.ExpiresAt.Unix(),
	}, nil
}

// ValidateAccount checks a new account's username, email, password and role.
func ValidateAccount(req models.RegisterRequest) error {
	switch n := len(req.Username); {
	case n < MinUsernameLen:
		return fmt.Errorf("username must be at least %d characters long", MinUsernameLen)
	case n > MaxUsernameLen:
		return fmt.Errorf("username must be at most %d characters long", MaxUsernameLen)
	}
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email || !strings.Contains(req.Email, ".") {
		return errors.New("invalid email format")
	}
	if err := ValidatePassword(req.Password); err != nil {
		return err
	}
	if !models.IsValidRole(req.Role) {
		return fmt.Errorf("invalid role %q", req.Role)
	}
	return nil
}

// ValidatePassword checks password strength.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}
	return nil
}
