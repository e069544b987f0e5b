package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// Identity is what a verified access token tells us about its bearer.
type Identity struct {
	Subject  string
	Username string
	Email    string
}

type TokenVerifier interface {
	Verify(ctx context.Context, accessToken string) (*Identity, error)
}

// JWKVerifier validates access tokens against the issuer's published key set.
type JWKVerifier struct {
	cache   *jwk.Cache
	jwksURL string
}

func NewJWKVerifier(cache *jwk.Cache, jwksURL string) *JWKVerifier {
	return &JWKVerifier{cache: cache, jwksURL: jwksURL}
}

func (v *JWKVerifier) Verify(ctx context.Context, accessToken string) (*Identity, error) {
	set, err := v.cache.Lookup(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	token, err := jwt.Parse(
		[]byte(accessToken),
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, errors.New("no subject claim in JWT")
	}

	identity := &Identity{Subject: subject}

	// both claims are optional; cognito access tokens carry username only
	_ = token.Get("username", &identity.Username)
	_ = token.Get("email", &identity.Email)

	if identity.Username == "" {
		identity.Username = subject
	}

	return identity, nil
}
