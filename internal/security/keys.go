package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidKey is returned for unreadable key material or an unsupported key type.
var ErrInvalidKey = errors.New("invalid key")

// KeyPair is the key material a TokenProvider signs and verifies with.
// Signer is optional; without it the provider only verifies.
type KeyPair struct {
	Signer crypto.Signer
	Public crypto.PublicKey
}

// ReadKeyMaterial accepts either inline PEM or a path to a PEM file.
// Env-style inline PEM with literal `\n` sequences is normalised.
func ReadKeyMaterial(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, ErrInvalidKey
	case strings.HasPrefix(s, "-----BEGIN"):
		return []byte(strings.ReplaceAll(s, `\n`, "\n")), nil
	}
	b, err := os.ReadFile(s)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return b, nil
}

func pemBlock(s string) (*pem.Block, error) {
	raw, err := ReadKeyMaterial(s)
	if err != nil {
		return nil, err
	}
	if block, _ := pem.Decode(raw); block != nil {
		return block, nil
	}
	return nil, ErrInvalidKey
}

// ParseSigningKey parses an RSA, ECDSA or Ed25519 private key in PKCS#1, SEC 1 or PKCS#8 form.
func ParseSigningKey(s string) (crypto.Signer, error) {
	block, err := pemBlock(s)
	if err != nil {
		return nil, err
	}
	var key any
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrInvalidKey, block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, ErrInvalidKey
	}
	if _, err := signingMethod(signer.Public()); err != nil {
		return nil, err
	}
	return signer, nil
}

// ParseVerificationKey parses an RSA, ECDSA or Ed25519 public key.
func ParseVerificationKey(s string) (crypto.PublicKey, error) {
	block, err := pemBlock(s)
	if err != nil {
		return nil, err
	}
	var key any
	switch block.Type {
	case "RSA PUBLIC KEY":
		key, err = x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		key, err = x509.ParsePKIXPublicKey(block.Bytes)
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrInvalidKey, block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if _, err := signingMethod(key); err != nil {
		return nil, err
	}
	return key, nil
}

// LoadKeyPair parses the configured keys. An empty privatePEM yields a verify-only pair.
func LoadKeyPair(privatePEM, publicPEM string) (KeyPair, error) {
	pub, err := ParseVerificationKey(publicPEM)
	if err != nil {
		return KeyPair{}, fmt.Errorf("public key: %w", err)
	}
	kp := KeyPair{Public: pub}
	if strings.TrimSpace(privatePEM) != "" {
		if kp.Signer, err = ParseSigningKey(privatePEM); err != nil {
			return KeyPair{}, fmt.Errorf("private key: %w", err)
		}
	}
	return kp, nil
}

// EncodePublicKeyPEM renders pub as a PKIX "PUBLIC KEY" block.
func EncodePublicKeyPEM(pub crypto.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

// EncodePrivateKeyPEM renders key as a PKCS#8 "PRIVATE KEY" block.
func EncodePrivateKeyPEM(key crypto.Signer) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})), nil
}

// signingMethod picks the JWS algorithm for a public key.
func signingMethod(pub crypto.PublicKey) (jwt.SigningMethod, error) {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return jwt.SigningMethodRS256, nil
	case *ecdsa.PublicKey:
		switch k.Curve {
		case elliptic.P256():
			return jwt.SigningMethodES256, nil
		case elliptic.P384():
			return jwt.SigningMethodES384, nil
		case elliptic.P521():
			return jwt.SigningMethodES512, nil
		}
	case ed25519.PublicKey:
		return jwt.SigningMethodEdDSA, nil
	}
	return nil, fmt.Errorf("%w: unsupported key type %T", ErrInvalidKey, pub)
}
