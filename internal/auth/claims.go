package auth

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoIdentityClaim = errors.New("token carries no identity claim")

// identityClaims are probed in order; different backend versions have issued
// tokens with different claim names.
var identityClaims = []string{"userId", "id", "sub"}

// UserIDFromToken recovers the user identifier from a bearer token without
// verifying the signature. Verification is the backend's job; the client only
// needs to know who it is acting as.
func UserIDFromToken(tokenString string) (int64, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrNoIdentityClaim
	}

	for _, name := range identityClaims {
		value, found := claims[name]
		if !found {
			continue
		}
		id, err := claimToID(value)
		if err != nil {
			continue
		}
		return id, nil
	}

	return 0, ErrNoIdentityClaim
}

func claimToID(value any) (int64, error) {
	switch v := value.(type) {
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported claim type %T", value)
	}
}
