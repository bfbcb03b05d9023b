// Package middleware provides HTTP middleware for authentication, request
// tracing and rate limiting.
package middleware

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	"tablebuilder/internal/config"
)

// JWTClaims holds the parsed claims from a validated JWT.
type JWTClaims struct {
	Subject  string
	Issuer   string
	Audience []string
	Raw      map[string]any
}

// PrincipalName returns the string claim nameClaim, falling back to the subject.
func (c *JWTClaims) PrincipalName(nameClaim string) string {
	if nameClaim != "" {
		if v, ok := c.Raw[nameClaim].(string); ok && v != "" {
			return v
		}
	}
	return c.Subject
}

// JWTValidator validates a JWT token and returns the parsed claims.
type JWTValidator interface {
	Validate(ctx context.Context, tokenString string) (*JWTClaims, error)
}

// NewValidator builds the validator the auth configuration asks for: OIDC
// discovery when an issuer is set, a bare JWKS URL otherwise, and the HS256
// shared secret when no identity provider is configured.
func NewValidator(ctx context.Context, cfg config.AuthConfig) (JWTValidator, error) {
	switch {
	case cfg.JWKSURL != "":
		return NewOIDCValidatorFromJWKS(ctx, cfg.JWKSURL, cfg.IssuerURL, cfg.Audience, cfg.AllowedIssuers), nil
	case cfg.IssuerURL != "":
		return NewOIDCValidator(ctx, cfg.IssuerURL, cfg.Audience, cfg.AllowedIssuers)
	default:
		return NewHS256Validator(cfg.JWTSecret)
	}
}

// OIDCValidator validates JWTs using OIDC discovery and JWKS.
type OIDCValidator struct {
	verifier       *oidc.IDTokenVerifier
	allowedIssuers map[string]bool
}

// NewOIDCValidator creates a validator from an OIDC issuer URL.
func NewOIDCValidator(ctx context.Context, issuerURL, audience string, allowedIssuers []string) (*OIDCValidator, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider discovery: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: audience})
	return &OIDCValidator{verifier: verifier, allowedIssuers: issuerSet(issuerURL, allowedIssuers)}, nil
}

// NewOIDCValidatorFromJWKS creates a validator from a JWKS URL (no OIDC discovery).
func NewOIDCValidatorFromJWKS(ctx context.Context, jwksURL, issuerURL, audience string, allowedIssuers []string) *OIDCValidator {
	keySet := oidc.NewRemoteKeySet(ctx, jwksURL)
	verifier := oidc.NewVerifier(issuerURL, keySet, &oidc.Config{
		ClientID:          audience,
		SkipClientIDCheck: audience == "",
		SkipIssuerCheck:   issuerURL == "",
	})
	return &OIDCValidator{verifier: verifier, allowedIssuers: issuerSet(issuerURL, allowedIssuers)}
}

func issuerSet(issuerURL string, allowed []string) map[string]bool {
	issuers := make(map[string]bool, len(allowed)+1)
	for _, iss := range allowed {
		issuers[iss] = true
	}
	if len(issuers) == 0 && issuerURL != "" {
		issuers[issuerURL] = true
	}
	return issuers
}

// Validate verifies the JWT using the OIDC provider's JWKS.
func (v *OIDCValidator) Validate(ctx context.Context, tokenString string) (*JWTClaims, error) {
	idToken, err := v.verifier.Verify(ctx, tokenString)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	if len(v.allowedIssuers) > 0 && !v.allowedIssuers[idToken.Issuer] {
		return nil, fmt.Errorf("issuer %q not in allowed list", idToken.Issuer)
	}

	var raw map[string]any
	if err := idToken.Claims(&raw); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	return &JWTClaims{
		Subject:  idToken.Subject,
		Issuer:   idToken.Issuer,
		Audience: idToken.Audience,
		Raw:      raw,
	}, nil
}

// HS256Validator validates JWTs signed with a shared HS256 secret.
type HS256Validator struct {
	secret []byte
}

// NewHS256Validator creates a validator for local/dev HS256 tokens.
func NewHS256Validator(secret string) (*HS256Validator, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	return &HS256Validator{secret: []byte(secret)}, nil
}

// Validate verifies a JWT signed with HS256 and extracts claims.
func (v *HS256Validator) Validate(_ context.Context, tokenString string) (*JWTClaims, error) {
	tok, err := jwt.Parse(tokenString, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	raw, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("parse claims: unsupported claim type %T", tok.Claims)
	}

	claims := &JWTClaims{Raw: map[string]any(raw)}
	claims.Subject, _ = raw.GetSubject()
	claims.Issuer, _ = raw.GetIssuer()
	if aud, err := raw.GetAudience(); err == nil {
		claims.Audience = aud
	}
	return claims, nil
}
