package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"accountId,omitempty"`
	Admin     bool   `json:"admin,omitempty"`
}

// Principal identifies who a valid token belongs to: a specific account or
// the fixed administrator.
type Principal struct {
	AccountID string
	Admin     bool
}

func buildToken(p Principal, secret string, lifetime time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(lifetime)),
		},
		AccountID: p.AccountID,
		Admin:     p.Admin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func parseToken(tokenString, secret string) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Principal{}, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return Principal{}, fmt.Errorf("token is not valid")
	}

	return Principal{AccountID: claims.AccountID, Admin: claims.Admin}, nil
}
