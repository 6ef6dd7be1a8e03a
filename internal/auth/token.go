package auth

import (
	"context"
	"errors"
	"fmt"
	"ms-registration/internal/models"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer signs and verifies locally issued HS256 access tokens. The
// user id travels in the standard sub claim, the role in a custom claim.
type Issuer struct {
	Secret   []byte
	TokenTTL time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{Secret: []byte(secret), TokenTTL: ttl}
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (i *Issuer) IssueToken(user models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.TokenTTL)),
		},
	})
	return token.SignedString(i.Secret)
}

// ParseToken validates the signature and expiry and returns the caller
// identity. Verification is local, so the context is unused; it is part
// of the signature so remote verifiers can honor cancellation.
func (i *Issuer) ParseToken(_ context.Context, raw string) (models.Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.Secret, nil
	})
	if err != nil {
		return models.Identity{}, err
	}
	if !token.Valid {
		return models.Identity{}, errors.New("invalid token")
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return models.Identity{}, errors.New("subject claim is not a user id")
	}

	role := c.Role
	if role == "" {
		role = models.RoleUser
	}

	return models.Identity{UserID: userID, Role: role}, nil
}
