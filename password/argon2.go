package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Interactive Argon2id parameters. They are the floor: weaker configs are rejected.
const (
	InteractiveMemoryKB    uint32 = 64 * 1024
	InteractiveTime        uint32 = 2
	InteractiveParallelism uint8  = 1

	// DefaultMaxPasswordBytes caps input size when Config.MaxPasswordBytes is zero.
	DefaultMaxPasswordBytes = 1024

	minSaltLength uint32 = 16
	minKeyLength  uint32 = 16
	algorithmID          = "argon2id"
)

var (
	// ErrMismatch is the WrongPassword outcome of a verification.
	ErrMismatch = errors.New("password mismatch")
	// ErrMalformedHash reports a stored hash that is not a supported PHC string.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrTooLong reports input above MaxPasswordBytes.
	ErrTooLong = errors.New("password too long")
)

// Config holds Argon2id cost parameters.
type Config struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

// DefaultConfig returns the interactive parameters with a 16 byte salt and 32 byte key.
func DefaultConfig() Config {
	return Config{
		Memory:      InteractiveMemoryKB,
		Time:        InteractiveTime,
		Parallelism: InteractiveParallelism,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2 hashes and verifies passwords. It is stateless after construction and safe for
// concurrent use, but every call is CPU and memory heavy; see Pool.
type Argon2 struct {
	config Config
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

func NewArgon2(cfg Config) (*Argon2, error) {
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return &Argon2{config: cfg}, nil
}

// Hash returns a PHC encoded Argon2id hash of password under a fresh random salt.
func (a *Argon2) Hash(password string) (string, error) {
	if len(password) > a.config.MaxPasswordBytes {
		return "", ErrTooLong
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		a.config.Memory,
		a.config.Time,
		a.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the hash of password with the parameters stored in encoded. A
// mismatch returns ErrMismatch; an unreadable hash returns ErrMalformedHash.
func (a *Argon2) Verify(encoded, password string) error {
	if len(password) > a.config.MaxPasswordBytes {
		return ErrMismatch
	}
	parsed, err := parsePHC(encoded)
	if err != nil {
		return err
	}

	computed := argon2.IDKey([]byte(password), parsed.salt, parsed.time, parsed.memory, parsed.parallelism, uint32(len(parsed.hash)))
	if subtle.ConstantTimeCompare(computed, parsed.hash) != 1 {
		return ErrMismatch
	}
	return nil
}

// NeedsUpgrade reports whether encoded was produced with weaker parameters than the
// current configuration. Successful logins flag such hashes in their audit event;
// rewriting them is left to migration tooling since the engine never writes users.
func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	parsed, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	return a.config.Memory > parsed.memory ||
		a.config.Time > parsed.time ||
		a.config.Parallelism > parsed.parallelism ||
		a.config.KeyLength != uint32(len(parsed.hash)), nil
}

func parsePHC(encoded string) (*phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: invalid PHC format", ErrMalformedHash)
	}
	if parts[1] != algorithmID {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrMalformedHash, parts[1])
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") {
		return nil, fmt.Errorf("%w: invalid version", ErrMalformedHash)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedHash, version)
	}

	out := &phc{}
	if err := parseParams(parts[3], out); err != nil {
		return nil, err
	}

	out.salt, err = decodeSegment(parts[4])
	if err != nil || len(out.salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: invalid salt", ErrMalformedHash)
	}
	out.hash, err = decodeSegment(parts[5])
	if err != nil || len(out.hash) < int(minKeyLength) {
		return nil, fmt.Errorf("%w: invalid hash", ErrMalformedHash)
	}
	return out, nil
}

// decodeSegment accepts both the unpadded PHC encoding and the padded form some
// encoders emit.
func decodeSegment(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func parseParams(part string, out *phc) error {
	pairs := strings.Split(part, ",")
	if len(pairs) != 3 {
		return fmt.Errorf("%w: invalid parameter format", ErrMalformedHash)
	}

	var memorySet, timeSet, parallelismSet bool
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("%w: invalid parameter entry", ErrMalformedHash)
		}
		switch name {
		case "m":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || v == 0 {
				return fmt.Errorf("%w: invalid memory parameter", ErrMalformedHash)
			}
			out.memory = uint32(v)
			memorySet = true
		case "t":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || v == 0 {
				return fmt.Errorf("%w: invalid time parameter", ErrMalformedHash)
			}
			out.time = uint32(v)
			timeSet = true
		case "p":
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil || v == 0 {
				return fmt.Errorf("%w: invalid parallelism parameter", ErrMalformedHash)
			}
			out.parallelism = uint8(v)
			parallelismSet = true
		default:
			return fmt.Errorf("%w: unsupported parameter %q", ErrMalformedHash, name)
		}
	}
	if !memorySet || !timeSet || !parallelismSet {
		return fmt.Errorf("%w: missing parameters", ErrMalformedHash)
	}
	return nil
}

func validateConfig(cfg Config) error {
	if cfg.Memory < InteractiveMemoryKB {
		return fmt.Errorf("password memory must be >= %d KB", InteractiveMemoryKB)
	}
	if cfg.Time < InteractiveTime {
		return fmt.Errorf("password time must be >= %d", InteractiveTime)
	}
	if cfg.Parallelism < InteractiveParallelism {
		return fmt.Errorf("password parallelism must be >= %d", InteractiveParallelism)
	}
	if cfg.SaltLength < minSaltLength {
		return fmt.Errorf("password salt length must be >= %d", minSaltLength)
	}
	if cfg.KeyLength < minKeyLength {
		return fmt.Errorf("password key length must be >= %d", minKeyLength)
	}
	if cfg.MaxPasswordBytes < 1 {
		return errors.New("password max bytes must be >= 1")
	}
	return nil
}
