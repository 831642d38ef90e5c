package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
)

// ErrInvalidHash signals a stored hash that is not a PHC-formatted argon2id string.
var ErrInvalidHash = errors.New("invalid argon2id hash")

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// ErrPasswordTooShort is returned by CheckPasswordPolicy.
var ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)

// CheckPasswordPolicy enforces the registration password rules.
func CheckPasswordPolicy(password string) error {
	if len([]rune(strings.TrimSpace(password))) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	saltLen int
	keyLen  uint32
}

// Hasher produces argon2id hashes in PHC string form:
// $argon2id$v=19$m=<kib>,t=<passes>,p=<threads>$<salt>$<key>
type Hasher struct {
	params argonParams
}

// NewHasher clamps the configured cost into a range that is safe to run on
// the request path.
func NewHasher(cfg config.PasswordConfig) *Hasher {
	return &Hasher{params: argonParams{
		memory:  uint32(clamp(cfg.ArgonMemoryKB, 8, 512*1024)),
		time:    uint32(clamp(cfg.ArgonTime, 1, 10)),
		threads: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		saltLen: clamp(cfg.ArgonSaltLen, 8, 64),
		keyLen:  uint32(clamp(cfg.ArgonKeyLen, 16, 64)),
	}}
}

func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	salt := make([]byte, h.params.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	p := h.params
	key := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. stale is true for a match
// produced with different cost parameters, so the caller can store a fresh hash.
func (h *Hasher) Verify(password, encoded string) (ok, stale bool, err error) {
	stored, salt, key, err := parseHash(encoded)
	if err != nil {
		return false, false, err
	}
	computed := argon2.IDKey([]byte(password), salt, stored.time, stored.memory, stored.threads, stored.keyLen)
	if subtle.ConstantTimeCompare(key, computed) != 1 {
		return false, false, nil
	}
	return true, stored != h.params, nil
}

func parseHash(encoded string) (argonParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return argonParams{}, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return argonParams{}, nil, nil, ErrInvalidHash
	}

	var p argonParams
	var threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &threads); err != nil {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	if p.memory == 0 || p.time == 0 || threads == 0 || threads > 255 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	p.threads = uint8(threads)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	p.saltLen = len(salt)
	p.keyLen = uint32(len(key))
	return p, salt, key, nil
}

func clamp(value, lo, hi int) int {
	return max(lo, min(value, hi))
}
