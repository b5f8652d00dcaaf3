package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestUserIDFromToken(t *testing.T) {
	tests := []struct {
		name       string
		claims     jwt.MapClaims
		expectedID int64
		expectErr  error
	}{
		{
			name:       "userId claim",
			claims:     jwt.MapClaims{"userId": 42},
			expectedID: 42,
		},
		{
			name:       "falls back to id",
			claims:     jwt.MapClaims{"id": 17, "role": "shipper"},
			expectedID: 17,
		},
		{
			name:       "falls back to sub",
			claims:     jwt.MapClaims{"sub": "99"},
			expectedID: 99,
		},
		{
			name:       "userId takes precedence over sub",
			claims:     jwt.MapClaims{"sub": "1", "userId": 2},
			expectedID: 2,
		},
		{
			name:      "no identity claim at all",
			claims:    jwt.MapClaims{"role": "shipper", "exp": 1893456000},
			expectErr: ErrNoIdentityClaim,
		},
		{
			name:       "non-numeric sub is skipped in favor of nothing",
			claims:     jwt.MapClaims{"sub": "shipper@example.com"},
			expectErr:  ErrNoIdentityClaim,
			expectedID: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, err := UserIDFromToken(signedToken(t, tc.claims))
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedID, id)
		})
	}
}

func TestUserIDFromToken_Garbage(t *testing.T) {
	_, err := UserIDFromToken("not-a-jwt")
	assert.Error(t, err)
}
