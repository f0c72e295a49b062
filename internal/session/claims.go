package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields the console reads from a backend-issued token.
type Claims struct {
	jwt.RegisteredClaims
	AdminID string `json:"id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}

// ParseClaims decodes a token without verifying its signature. The backend
// verifies every call; the console only needs the subject and expiry.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token claims: %w", err)
	}
	return claims, nil
}

// AccountID prefers the explicit id claim over sub.
func (c *Claims) AccountID() string {
	if c.AdminID != "" {
		return c.AdminID
	}
	return c.Subject
}

func (c *Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Time)
}
