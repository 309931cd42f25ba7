package orgctx

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the identity fields Gatehouse mines from an access token.
type TokenClaims struct {
	UserID string
	OrgID  string
}

// ExtractClaims pulls the subject and org_id claims out of a bearer token.
//
// The token was already verified by the platform gateway before it reached
// us; Gatehouse only needs the claim values, so the parse is deliberately
// unverified here. Anything malformed yields empty claims rather than an
// error - a bad token simply contributes no candidate and resolution moves
// on to the membership fallback.
func ExtractClaims(token string) TokenClaims {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return TokenClaims{}
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenClaims{}
	}

	out := TokenClaims{}
	if sub, err := claims.GetSubject(); err == nil {
		out.UserID = sub
	}
	if org, ok := claims["org_id"].(string); ok {
		out.OrgID = org
	}
	return out
}
