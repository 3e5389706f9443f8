package cryptoutil

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
)

// Size of one half of a P-256 signature in the raw r||s encoding.
const p256HalfLen = 32

// pssOptions fixes the PSS parameters: MGF1 over SHA-256, 32-byte salt.
var pssOptions = &rsa.PSSOptions{SaltLength: 32, Hash: crypto.SHA256}

// SHA256Hex returns the lowercase hex SHA-256 digest of b. Used for
// chain ids and entry hashes.
func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Sign signs msg under the given scheme and returns the base64
// signature. ECDSA signatures use the raw IEEE-P1363 r||s encoding
// (64 bytes), not DER.
func Sign(msg []byte, priv crypto.Signer, scheme string) (string, error) {
	digest := sha256.Sum256(msg)
	switch scheme {
	case SchemeRSAPSS:
		key, ok := priv.(*rsa.PrivateKey)
		if !ok {
			return "", fmt.Errorf("sign: key type %T does not match scheme %s", priv, scheme)
		}
		sig, err := rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest[:], pssOptions)
		if err != nil {
			return "", fmt.Errorf("sign: %w", err)
		}
		return base64.StdEncoding.EncodeToString(sig), nil
	case SchemeECDSAP256:
		key, ok := priv.(*ecdsa.PrivateKey)
		if !ok {
			return "", fmt.Errorf("sign: key type %T does not match scheme %s", priv, scheme)
		}
		r, s, err := ecdsa.Sign(rand.Reader, key, digest[:])
		if err != nil {
			return "", fmt.Errorf("sign: %w", err)
		}
		sig := make([]byte, 2*p256HalfLen)
		r.FillBytes(sig[:p256HalfLen])
		s.FillBytes(sig[p256HalfLen:])
		return base64.StdEncoding.EncodeToString(sig), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}

// Verify checks a base64 signature over msg. A well-formed but
// non-matching signature yields (false, nil); errors are reserved for
// malformed input and unsupported schemes.
func Verify(msg []byte, sigB64 string, pub crypto.PublicKey, scheme string) (bool, error) {
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}
	digest := sha256.Sum256(msg)
	switch scheme {
	case SchemeRSAPSS:
		key, ok := pub.(*rsa.PublicKey)
		if !ok {
			return false, fmt.Errorf("verify: key type %T does not match scheme %s", pub, scheme)
		}
		if err := rsa.VerifyPSS(key, crypto.SHA256, digest[:], sig, pssOptions); err != nil {
			return false, nil
		}
		return true, nil
	case SchemeECDSAP256:
		key, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return false, fmt.Errorf("verify: key type %T does not match scheme %s", pub, scheme)
		}
		if len(sig) != 2*p256HalfLen {
			return false, nil
		}
		r := new(big.Int).SetBytes(sig[:p256HalfLen])
		s := new(big.Int).SetBytes(sig[p256HalfLen:])
		return ecdsa.Verify(key, digest[:], r, s), nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}
