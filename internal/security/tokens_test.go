package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func testOptions() Options {
	return Options{Issuer: TestIssuer, Audience: TestAudience, AccessTTL: time.Minute}
}

func TestTokenProvider_RoundTrip(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	token, exp, err := p.IssueAccess("board-7")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Errorf("expiresAt %v is not in the future", exp)
	}
	got, err := p.ValidateAccess(token)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if got != "board-7" {
		t.Errorf("userID = %q, want board-7", got)
	}
}

func TestTokenProvider_Rejects(t *testing.T) {
	key := newKey(t)
	p, err := NewTokenProvider(KeyPair{Signer: key}, testOptions())
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	valid, _, err := p.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	sign := func(claims AccessClaims, method jwt.SigningMethod, k any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(k)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	now := time.Now()
	base := func() AccessClaims {
		return AccessClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-1",
				Issuer:    TestIssuer,
				Audience:  jwt.ClaimStrings{TestAudience},
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			},
			TokenUse: tokenUseAccess,
		}
	}

	refresh := base()
	refresh.TokenUse = "refresh"
	noSubject := base()
	noSubject.Subject = ""
	noExpiry := base()
	noExpiry.ExpiresAt = nil
	wrongIssuer := base()
	wrongIssuer.Issuer = "someone-else"

	cases := map[string]string{
		"garbage":       "not-a-jwt",
		"refresh token": sign(refresh, jwt.SigningMethodES256, key),
		"no subject":    sign(noSubject, jwt.SigningMethodES256, key),
		"no expiry":     sign(noExpiry, jwt.SigningMethodES256, key),
		"wrong issuer":  sign(wrongIssuer, jwt.SigningMethodES256, key),
		"foreign key":   sign(base(), jwt.SigningMethodES256, newKey(t)),
		"hmac":          sign(base(), jwt.SigningMethodHS256, []byte("shared-secret")),
		"tampered":      valid[:len(valid)-4] + "AAAA",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := p.ValidateAccess(token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestTokenProvider_AudienceMismatch(t *testing.T) {
	key := newKey(t)
	issuer, err := NewTokenProvider(KeyPair{Signer: key}, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	token, _, err := issuer.IssueAccess("user-1")
	if err != nil {
		t.Fatal(err)
	}
	opts := testOptions()
	opts.Audience = "another-api"
	verifier, err := NewTokenProvider(KeyPair{Public: &key.PublicKey}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := verifier.ValidateAccess(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenProvider_ExpiredWithinLeeway(t *testing.T) {
	key := newKey(t)
	opts := testOptions()
	opts.AccessTTL = -time.Second
	p, err := NewTokenProvider(KeyPair{Signer: key}, opts)
	if err != nil {
		t.Fatal(err)
	}
	token, _, err := p.IssueAccess("user-1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.ValidateAccess(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token err = %v, want ErrInvalidToken", err)
	}

	opts.Leeway = time.Minute
	lenient, err := NewTokenProvider(KeyPair{Public: &key.PublicKey}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := lenient.ValidateAccess(token); err != nil {
		t.Errorf("token within leeway rejected: %v", err)
	}
}

func TestTokenProvider_VerifyOnly(t *testing.T) {
	key := newKey(t)
	pubPEM, err := EncodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	p, err := NewTokenProviderFromPEM("", pubPEM, testOptions())
	if err != nil {
		t.Fatalf("NewTokenProviderFromPEM: %v", err)
	}
	if p.CanIssue() {
		t.Error("verify-only provider reports CanIssue")
	}
	if _, _, err := p.IssueAccess("user-1"); !errors.Is(err, ErrSigningDisabled) {
		t.Errorf("err = %v, want ErrSigningDisabled", err)
	}
}

func TestNewTokenProvider_MismatchedPair(t *testing.T) {
	_, err := NewTokenProvider(KeyPair{Signer: newKey(t), Public: &newKey(t).PublicKey}, testOptions())
	if !errors.Is(err, ErrInvalidKey) {
		t.Errorf("err = %v, want ErrInvalidKey", err)
	}
}
