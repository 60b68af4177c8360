// Package auth issues and verifies the role-bearing access tokens the
// HTTP surface trusts. Registering and logging users in happens
// upstream; this engine only needs who the caller is and whether they
// hold the dietician role.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"diet-scheduler/internal/model"
)

var ErrBadToken = errors.New("invalid token")

type Claims struct {
	UserID string     `json:"uid"`
	Name   string     `json:"name"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// short-lived access token (15 min)
func MakeToken(uid, name string, role model.Role, secret string) (string, error) {
	c := Claims{
		UserID: uid,
		Name:   name,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

func ParseToken(raw, secret string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrBadToken
	}
	if c.Role == "" {
		c.Role = model.RoleUser
	}
	return c, nil
}
