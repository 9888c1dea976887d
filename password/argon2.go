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

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	argon2Prefix          = "$argon2id$"
	algorithmID           = "argon2id"

	// DefaultMaxPasswordBytes caps the plaintext fed into a KDF when
	// Argon2Config.MaxPasswordBytes is zero.
	DefaultMaxPasswordBytes = 1024
)

// Argon2Config holds the argon2id cost parameters used for new hashes.
type Argon2Config struct {
	Memory           uint32 // KiB
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

// DefaultArgon2Config returns parameters suitable for interactive logins.
func DefaultArgon2Config() Argon2Config {
	return Argon2Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2 hashes and verifies argon2id PHC strings.
//
// Argon2 is immutable after construction and safe for concurrent use.
type Argon2 struct {
	config Argon2Config
}

type parsedPHC struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
	keyLength   uint32
}

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Argon2Config) (*Argon2, error) {
	if err := validateArgon2Config(cfg); err != nil {
		return nil, err
	}
	if cfg.MaxPasswordBytes <= 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}

	return &Argon2{config: cfg}, nil
}

// Hash produces a PHC-encoded argon2id hash of password.
func (a *Argon2) Hash(password string) (string, error) {
	// Raw bytes as provided, no Unicode normalization.
	if password == "" {
		return "", ErrPasswordEmpty
	}
	if len(password) > a.config.MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey(
		[]byte(password),
		salt,
		a.config.Time,
		a.config.Memory,
		a.config.Parallelism,
		a.config.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		a.config.Memory,
		a.config.Time,
		a.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify reports whether password matches encodedHash. The parameters stored in
// the hash are used, not the hasher's own configuration.
func (a *Argon2) Verify(password string, encodedHash string) (bool, error) {
	if len(password) > a.config.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}
	return verifyArgon2(password, encodedHash)
}

// NeedsUpgrade reports whether encodedHash was produced with weaker parameters
// than the hasher is configured for.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	switch {
	case a.config.Memory > parsed.memory,
		a.config.Time > parsed.time,
		a.config.Parallelism > parsed.parallelism,
		a.config.KeyLength != parsed.keyLength:
		return true, nil
	}
	return false, nil
}

func verifyArgon2(password, encodedHash string) (bool, error) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(password),
		parsed.salt,
		parsed.time,
		parsed.memory,
		parsed.parallelism,
		parsed.keyLength,
	)

	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1, nil
}

func parsePHC(encodedHash string) (*parsedPHC, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: invalid PHC layout", ErrMalformedHash)
	}
	if parts[1] != algorithmID {
		return nil, ErrUnsupportedHash
	}

	versionPart := parts[2]
	if !strings.HasPrefix(versionPart, "v=") {
		return nil, fmt.Errorf("%w: missing argon2 version", ErrMalformedHash)
	}
	version, err := strconv.Atoi(strings.TrimPrefix(versionPart, "v="))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid argon2 version", ErrMalformedHash)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("%w: argon2 version %d", ErrUnsupportedHash, version)
	}

	params, err := parseParams(parts[3])
	if err != nil {
		return nil, err
	}

	salt, err := decodeB64(parts[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: invalid salt", ErrMalformedHash)
	}
	hash, err := decodeB64(parts[5])
	if err != nil || len(hash) == 0 {
		return nil, fmt.Errorf("%w: invalid key", ErrMalformedHash)
	}

	return &parsedPHC{
		memory:      params.memory,
		time:        params.time,
		parallelism: params.parallelism,
		salt:        salt,
		hash:        hash,
		keyLength:   uint32(len(hash)),
	}, nil
}

// decodeB64 accepts both the unpadded PHC encoding and padded standard base64
// written by older tooling.
func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

type parsedParams struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

func parseParams(part string) (*parsedParams, error) {
	pairs := strings.Split(part, ",")
	if len(pairs) != 3 {
		return nil, fmt.Errorf("%w: invalid parameter format", ErrMalformedHash)
	}

	var (
		memorySet, timeSet, parallelismSet bool
		params                             parsedParams
	)

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%w: invalid parameter entry", ErrMalformedHash)
		}

		switch key {
		case "m":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || v < uint64(minMemoryKB) {
				return nil, fmt.Errorf("%w: invalid memory parameter", ErrMalformedHash)
			}
			params.memory = uint32(v)
			memorySet = true
		case "t":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || v < uint64(minTimeCost) {
				return nil, fmt.Errorf("%w: invalid time parameter", ErrMalformedHash)
			}
			params.time = uint32(v)
			timeSet = true
		case "p":
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil || v < uint64(minParallelism) {
				return nil, fmt.Errorf("%w: invalid parallelism parameter", ErrMalformedHash)
			}
			params.parallelism = uint8(v)
			parallelismSet = true
		default:
			return nil, fmt.Errorf("%w: unsupported parameter %q", ErrMalformedHash, key)
		}
	}

	if !memorySet || !timeSet || !parallelismSet {
		return nil, fmt.Errorf("%w: missing parameters", ErrMalformedHash)
	}

	return &params, nil
}

func validateArgon2Config(cfg Argon2Config) error {
	switch {
	case cfg.Memory < minMemoryKB:
		return errors.New("argon2 memory must be >= 8192 KiB")
	case cfg.Time < minTimeCost:
		return errors.New("argon2 time must be >= 1")
	case cfg.Parallelism < minParallelism:
		return errors.New("argon2 parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return errors.New("argon2 salt length must be >= 16")
	case cfg.KeyLength < minKeyLength:
		return errors.New("argon2 key length must be >= 16")
	case cfg.MaxPasswordBytes < 0:
		return errors.New("argon2 max password bytes must be >= 0")
	}
	return nil
}
