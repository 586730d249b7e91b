package auth

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

var ErrInvalidAtHash = errors.New("access token does not match the at_hash claim")

var signatureAlgorithms = []jose.SignatureAlgorithm{
	jose.RS256, jose.RS384, jose.RS512,
	jose.PS256, jose.PS384, jose.PS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.EdDSA,
}

// Claims are the display claims of the ID token. They are read without
// verifying the signature and must not be used for authorization.
type Claims struct {
	Subject   string
	Email     string
	Name      string
	ExpiresAt time.Time
}

// Claims reads the display claims of the stored ID token. If the token
// carries an at_hash claim, the stored access token must match it.
func (m *Manager) Claims(ctx context.Context, tokens Tokens) (Claims, error) {
	raw := tokens.IDToken(ctx)
	if raw == "" {
		return Claims{}, errors.New("no id token stored")
	}

	return ParseClaims(raw, tokens.AccessToken(ctx))
}

// ParseClaims reads the display claims of idToken.
func ParseClaims(idToken, accessToken string) (Claims, error) {
	token, err := jwt.ParseSigned(idToken, signatureAlgorithms)
	if err != nil {
		return Claims{}, fmt.Errorf("parsing id token: %w", err)
	}

	type customClaims struct {
		Email  string `json:"email"`
		Name   string `json:"name"`
		AtHash string `json:"at_hash,omitempty"`
	}

	var std jwt.Claims
	var custom customClaims
	if err := token.UnsafeClaimsWithoutVerification(&std, &custom); err != nil {
		return Claims{}, fmt.Errorf("reading id token claims: %w", err)
	}

	if custom.AtHash != "" && accessToken != "" {
		if err := verifyAtHash(accessToken, custom.AtHash, token.Headers[0].Algorithm); err != nil {
			return Claims{}, err
		}
	}

	c := Claims{
		Subject: std.Subject,
		Email:   custom.Email,
		Name:    custom.Name,
	}
	if std.Expiry != nil {
		c.ExpiresAt = std.Expiry.Time().UTC()
	}

	return c, nil
}

func verifyAtHash(accessToken, atHash, alg string) error {
	var h hash.Hash
	switch alg {
	case "RS256", "ES256", "PS256":
		h = sha256.New()
	case "RS384", "ES384", "PS384":
		h = sha512.New384()
	case "RS512", "ES512", "PS512", "EdDSA":
		h = sha512.New()
	default:
		return fmt.Errorf("unsupported signing algorithm %q", alg)
	}

	h.Write([]byte(accessToken))
	sum := h.Sum(nil)[:h.Size()/2]
	if base64.RawURLEncoding.EncodeToString(sum) != atHash {
		return ErrInvalidAtHash
	}

	return nil
}
