package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"time"
)

// Test token settings shared by NewTestTokenProvider and package tests.
const (
	TestIssuer   = "test-issuer"
	TestAudience = "test-audience"
)

// NewTestTokenProvider returns a signing provider backed by a freshly generated P-256 key.
// Tokens from one call do not verify against another.
func NewTestTokenProvider() (*TokenProvider, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return NewTokenProvider(KeyPair{Signer: key}, Options{
		Issuer:    TestIssuer,
		Audience:  TestAudience,
		AccessTTL: 15 * time.Minute,
	})
}
