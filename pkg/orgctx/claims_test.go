package orgctx

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestExtractClaims(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"sub":    "2f6c54e1-54c9-4a3b-9f38-7a2edc9e8f10",
		"org_id": "0b4f9c42-92dd-4f6a-8f3e-d2f95a1b7f11",
	})

	claims := ExtractClaims(token)
	assert.Equal(t, "2f6c54e1-54c9-4a3b-9f38-7a2edc9e8f10", claims.UserID)
	assert.Equal(t, "0b4f9c42-92dd-4f6a-8f3e-d2f95a1b7f11", claims.OrgID)
}

func TestExtractClaimsBearerPrefix(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "user-1"})

	claims := ExtractClaims("Bearer " + token)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestExtractClaimsMissingOrg(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "user-1"})

	claims := ExtractClaims(token)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Empty(t, claims.OrgID)
}

func TestExtractClaimsNonStringOrg(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "user-1", "org_id": 42})

	claims := ExtractClaims(token)
	assert.Empty(t, claims.OrgID)
}

func TestExtractClaimsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "bare bearer", token: "Bearer "},
		{name: "garbage", token: "not.a.jwt"},
		{name: "single segment", token: "abcdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, TokenClaims{}, ExtractClaims(tt.token))
		})
	}
}
