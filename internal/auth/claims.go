package auth

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Veraticus/schoolctl/internal/model"
)

// ErrInvalidClaims is returned when the access token lacks a usable subject.
var ErrInvalidClaims = errors.New("access token claims are invalid")

// Claims is the payload carried by an access token.
type Claims struct {
	UserType string `json:"user_type"`
	jwt.RegisteredClaims
}

// ParseClaims decodes the token payload without verifying its signature.
// The server verifies tokens; the console only reads who it is acting as.
func ParseClaims(accessToken string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidClaims, err)
	}
	return claims, nil
}

// User converts the claims into the console's user record.
func (c *Claims) User() (model.User, error) {
	id, err := strconv.Atoi(c.Subject)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: subject %q is not numeric", ErrInvalidClaims, c.Subject)
	}
	return model.User{ID: id, Type: model.UserType(c.UserType)}, nil
}
