package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"taskflow/internal/models"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// DefaultIssuer is stamped into tokens when no issuer is configured.
const DefaultIssuer = "taskflow"

// Claims carries the identity the workflow engine acts for.
type Claims struct {
	UserID string      `json:"user_id"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 bearer tokens.
type TokenManager struct {
	secret   []byte
	issuer   string
	duration time.Duration
	now      func() time.Time
}

// NewTokenManager creates a token manager. An empty issuer falls back to DefaultIssuer.
func NewTokenManager(secret, issuer string, duration time.Duration) (*TokenManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth secret must not be empty")
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}
	if duration <= 0 {
		duration = 24 * time.Hour
	}
	return &TokenManager{
		secret:   []byte(secret),
		issuer:   issuer,
		duration: duration,
		now:      time.Now,
	}, nil
}

// Generate issues a token for the identity.
func (tm *TokenManager) Generate(id models.Identity) (string, time.Time, error) {
	if id.UserID == "" {
		return "", time.Time{}, fmt.Errorf("%w: user id is required", models.ErrValidation)
	}
	if _, ok := models.ValidRoles[id.Role]; !ok {
		return "", time.Time{}, fmt.Errorf("%w: unknown role %q", models.ErrValidation, id.Role)
	}

	now := tm.now()
	expires := now.Add(tm.duration)
	claims := Claims{
		UserID: id.UserID,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tm.issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify validates a token and returns the identity it carries.
func (tm *TokenManager) Verify(tokenString string) (models.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	}, jwt.WithIssuer(tm.issuer), jwt.WithTimeFunc(tm.now))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return models.Identity{}, ErrExpiredToken
	}
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return models.Identity{}, ErrInvalidClaims
	}
	if claims.UserID == "" {
		return models.Identity{}, ErrInvalidClaims
	}
	if _, ok := models.ValidRoles[claims.Role]; !ok {
		return models.Identity{}, ErrInvalidClaims
	}
	return models.Identity{UserID: claims.UserID, Role: claims.Role}, nil
}
