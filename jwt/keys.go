package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Algorithm is the only signing algorithm issued or accepted.
	Algorithm = "RS256"
	// DefaultKeyBits is the modulus size of generated keys.
	DefaultKeyBits = 4096
	// MinKeyBits is the smallest modulus LoadKeyPair accepts.
	MinKeyBits = 2048
)

// KeyPair is the service's RSA signing key. It is immutable after construction and safe
// for concurrent use.
type KeyPair struct {
	private   *rsa.PrivateKey
	publicPEM []byte
	kid       string
}

// GenerateKeyPair creates a fresh DefaultKeyBits key.
func GenerateKeyPair() (*KeyPair, error) {
	return GenerateKeyPairBits(DefaultKeyBits)
}

// GenerateKeyPairBits creates a fresh key of the given size.
func GenerateKeyPairBits(bits int) (*KeyPair, error) {
	if bits < MinKeyBits {
		return nil, fmt.Errorf("%w: %d bits", ErrWeakKey, bits)
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	return newKeyPair(key)
}

// LoadKeyPair parses a PEM encoded PKCS#1 or PKCS#8 RSA private key.
func LoadKeyPair(pemBytes []byte) (*KeyPair, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if key.N.BitLen() < MinKeyBits {
		return nil, fmt.Errorf("%w: %d bits", ErrWeakKey, key.N.BitLen())
	}
	return newKeyPair(key)
}

// LoadOrGenerateKeyPair loads the key stored at path, or generates a bits-sized one and
// stores it there with mode 0600. The second result reports whether a key was generated.
func LoadOrGenerateKeyPair(path string, bits int) (*KeyPair, bool, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		kp, err := LoadKeyPair(data)
		return kp, false, err
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, fmt.Errorf("read key file: %w", err)
	}

	kp, err := GenerateKeyPairBits(bits)
	if err != nil {
		return nil, false, err
	}
	encoded, err := kp.PrivateKeyPEM()
	if err != nil {
		return nil, false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, false, fmt.Errorf("create key dir: %w", err)
	}

	// O_EXCL: if another process won the race, use its key instead of ours.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return LoadOrGenerateKeyPair(path, bits)
	}
	if err != nil {
		return nil, false, fmt.Errorf("create key file: %w", err)
	}
	if _, err := f.Write(encoded); err != nil {
		f.Close()
		return nil, false, fmt.Errorf("write key file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, false, fmt.Errorf("close key file: %w", err)
	}
	return kp, true, nil
}

func newKeyPair(key *rsa.PrivateKey) (*KeyPair, error) {
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	sum := sha256.Sum256(der)
	return &KeyPair{
		private:   key,
		publicPEM: pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}),
		kid:       base64.RawURLEncoding.EncodeToString(sum[:12]),
	}, nil
}

// PublicKeyPEM returns the PKIX public key. The slice is a copy.
func (k *KeyPair) PublicKeyPEM() []byte {
	out := make([]byte, len(k.publicPEM))
	copy(out, k.publicPEM)
	return out
}

// PrivateKeyPEM returns the PKCS#8 private key for persistence.
func (k *KeyPair) PrivateKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(k.private)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// KeyID is a stable thumbprint of the public key, emitted as the JWT kid header.
func (k *KeyPair) KeyID() string {
	return k.kid
}

func (k *KeyPair) Bits() int {
	return k.private.N.BitLen()
}

// Sign produces an RS256 signature over payload.
func (k *KeyPair) Sign(payload []byte) ([]byte, error) {
	return jwt.SigningMethodRS256.Sign(string(payload), k.private)
}

// Verify checks an RS256 signature over payload.
func (k *KeyPair) Verify(payload, signature []byte) error {
	if err := jwt.SigningMethodRS256.Verify(string(payload), signature, &k.private.PublicKey); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

func (k *KeyPair) publicKey() *rsa.PublicKey {
	return &k.private.PublicKey
}
