// Package identity resolves the calling user from a verified JWT.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/tendant/resource-hub/pkg/hub"
)

// Claim names carried by hub tokens.
const (
	ClaimSubject = "sub"
	ClaimName    = "name"
)

// NewTokenAuth returns an HS256 signer and verifier for secret.
func NewTokenAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// IssueToken signs a token for id valid for ttl.
func IssueToken(ja *jwtauth.JWTAuth, id hub.Identity, ttl time.Duration) (string, error) {
	claims := map[string]interface{}{
		ClaimSubject: id.ID.String(),
	}
	if id.DisplayName != "" {
		claims[ClaimName] = id.DisplayName
	}
	jwtauth.SetIssuedNow(claims)
	if ttl > 0 {
		jwtauth.SetExpiryIn(claims, ttl)
	}

	_, token, err := ja.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// JWT reads the identity that jwtauth.Verifier stored in the request context.
// Requests without a token are anonymous; invalid or expired tokens are errors.
type JWT struct{}

func (JWT) CurrentIdentity(ctx context.Context) (*hub.Identity, error) {
	token, claims, err := jwtauth.FromContext(ctx)
	if errors.Is(err, jwtauth.ErrNoTokenFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, nil
	}

	sub, _ := claims[ClaimSubject].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid subject claim: %w", err)
	}
	name, _ := claims[ClaimName].(string)
	return &hub.Identity{ID: id, DisplayName: name}, nil
}
