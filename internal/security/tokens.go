package security

import (
	"crypto"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers every rejection reason so callers cannot probe which check failed.
	ErrInvalidToken = errors.New("invalid token")
	// ErrSigningDisabled is returned by IssueAccess on a verify-only provider.
	ErrSigningDisabled = errors.New("token signing disabled: no private key")
)

// tokenUseAccess marks access tokens; the account service issues other token kinds
// with the same key.
const tokenUseAccess = "access"

// AccessClaims are the claims carried by a CMS access token. The subject is the user ID.
// Role and board status are not carried; they are loaded per request.
type AccessClaims struct {
	jwt.RegisteredClaims
	TokenUse string `json:"token_use"`
}

// Options configures token issuance and verification.
type Options struct {
	Issuer    string
	Audience  string
	AccessTTL time.Duration
	// Leeway tolerates clock skew between the account service and this one.
	Leeway time.Duration
}

// TokenProvider verifies access tokens and, when it holds a signer, issues them
// (dev seeding and tests).
type TokenProvider struct {
	keys   KeyPair
	method jwt.SigningMethod
	opts   Options
	parser *jwt.Parser
}

// NewTokenProvider returns a provider for keys. When keys.Signer is set it must match keys.Public.
func NewTokenProvider(keys KeyPair, opts Options) (*TokenProvider, error) {
	if keys.Public == nil && keys.Signer != nil {
		keys.Public = keys.Signer.Public()
	}
	method, err := signingMethod(keys.Public)
	if err != nil {
		return nil, err
	}
	if keys.Signer != nil {
		pub, ok := keys.Signer.Public().(interface{ Equal(crypto.PublicKey) bool })
		if !ok || !pub.Equal(keys.Public) {
			return nil, fmt.Errorf("%w: private key does not match public key", ErrInvalidKey)
		}
	}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(opts.Leeway),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	if opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(opts.Audience))
	}
	return &TokenProvider{
		keys:   keys,
		method: method,
		opts:   opts,
		parser: jwt.NewParser(parserOpts...),
	}, nil
}

// NewTokenProviderFromPEM loads the key pair and returns a provider for it.
func NewTokenProviderFromPEM(privatePEM, publicPEM string, opts Options) (*TokenProvider, error) {
	keys, err := LoadKeyPair(privatePEM, publicPEM)
	if err != nil {
		return nil, err
	}
	return NewTokenProvider(keys, opts)
}

// CanIssue reports whether the provider holds a signing key.
func (p *TokenProvider) CanIssue() bool { return p.keys.Signer != nil }

// IssueAccess signs an access token for userID.
func (p *TokenProvider) IssueAccess(userID string) (token string, expiresAt time.Time, err error) {
	if !p.CanIssue() {
		return "", time.Time{}, ErrSigningDisabled
	}
	jti, err := newTokenID()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(p.opts.AccessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.opts.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TokenUse: tokenUseAccess,
	}
	if p.opts.Audience != "" {
		claims.Audience = jwt.ClaimStrings{p.opts.Audience}
	}
	token, err = jwt.NewWithClaims(p.method, claims).SignedString(p.keys.Signer)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return token, expiresAt, nil
}

// ValidateAccess verifies signature, expiry, issuer, audience and token use, and returns the user ID.
func (p *TokenProvider) ValidateAccess(tokenString string) (userID string, err error) {
	claims := &AccessClaims{}
	token, err := p.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return p.keys.Public, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.TokenUse != tokenUseAccess || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func newTokenID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
