// Package cryptoutil provides the signing primitives for history
// entries: key generation, PEM import/export, and sign/verify over the
// two supported schemes (RSA-PSS-3072/SHA-256 and ECDSA-P256/SHA-256).
package cryptoutil

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// Signature schemes recognized by the chain. Scheme strings are stored
// verbatim in the sig_scheme field of each history entry.
const (
	SchemeRSAPSS    = "rsa-pss-sha256"
	SchemeECDSAP256 = "ecdsa-p256-sha256"
)

const rsaKeyBits = 3072

var (
	ErrInvalidPEM        = errors.New("invalid PEM block")
	ErrUnsupportedScheme = errors.New("unsupported signature scheme")
)

// KeyPair holds a freshly generated or imported signing key pair along
// with its PEM exports (PKCS#8 private, SubjectPublicKeyInfo public).
type KeyPair struct {
	Scheme     string
	Private    crypto.Signer
	Public     crypto.PublicKey
	PrivatePEM string
	PublicPEM  string
}

// GenerateKeys creates a key pair for the given scheme.
func GenerateKeys(scheme string) (*KeyPair, error) {
	var priv crypto.Signer
	var err error
	switch scheme {
	case SchemeRSAPSS:
		priv, err = rsa.GenerateKey(rand.Reader, rsaKeyBits)
	case SchemeECDSAP256:
		priv, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("generate %s key: %w", scheme, err)
	}

	privPEM, err := EncodePrivateKeyPEM(priv)
	if err != nil {
		return nil, err
	}
	pubPEM, err := EncodePublicKeyPEM(priv.Public())
	if err != nil {
		return nil, err
	}

	return &KeyPair{
		Scheme:     scheme,
		Private:    priv,
		Public:     priv.Public(),
		PrivatePEM: privPEM,
		PublicPEM:  pubPEM,
	}, nil
}

// EncodePrivateKeyPEM serializes a private key as a PKCS#8 PEM block.
func EncodePrivateKeyPEM(priv crypto.Signer) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", fmt.Errorf("marshal private key: %w", err)
	}
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// EncodePublicKeyPEM serializes a public key as a SubjectPublicKeyInfo
// PEM block.
func EncodePublicKeyPEM(pub crypto.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// ParsePrivateKeyPEM reads a PKCS#8 private key. Legacy "EC PRIVATE
// KEY" and "RSA PRIVATE KEY" blocks are accepted for interoperability
// with externally generated keys.
func ParsePrivateKeyPEM(pemText string) (crypto.Signer, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, fmt.Errorf("%w: private key", ErrInvalidPEM)
	}
	switch block.Type {
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("parse private key: not a signing key")
		}
		return signer, nil
	case "EC PRIVATE KEY":
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse EC private key: %w", err)
		}
		return key, nil
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse RSA private key: %w", err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unexpected block type %q", ErrInvalidPEM, block.Type)
	}
}

// ParsePublicKeyPEM reads a SubjectPublicKeyInfo public key.
func ParsePublicKeyPEM(pemText string) (crypto.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, fmt.Errorf("%w: public key", ErrInvalidPEM)
	}
	if block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("%w: unexpected block type %q", ErrInvalidPEM, block.Type)
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return pub, nil
}

// SchemeForKey reports the scheme a public key belongs to, or an error
// for key types the chain does not sign with.
func SchemeForKey(pub crypto.PublicKey) (string, error) {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return SchemeRSAPSS, nil
	case *ecdsa.PublicKey:
		if k.Curve != elliptic.P256() {
			return "", fmt.Errorf("%w: curve %s", ErrUnsupportedScheme, k.Curve.Params().Name)
		}
		return SchemeECDSAP256, nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedScheme, pub)
	}
}
