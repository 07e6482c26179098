// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LedgerDesk Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

// OWASP-recommended argon2id parameters.
const (
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2SaltLen = 16        // salt length in bytes
	argon2KeyLen  = 32        // output length in bytes
)

// Upper bounds accepted when decoding stored records. A record outside these
// bounds is treated as corrupt rather than allowed to exhaust the host.
const (
	maxArgon2Memory = 1 << 20 // KiB
	maxArgon2Time   = 64
	maxPBKDF2Iter   = 10_000_000
	maxDerivedKey   = 1024
)

// DefaultMaxPasswordLength is the longest password, in bytes, that Hash accepts.
const DefaultMaxPasswordLength = 1024

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code(CodeEmptyPassword).Wrapf(ErrInvalidInput, "password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces an argon2id hash of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on invalid hash.
	Verify(password, hash string) (bool, error)

	// NeedsUpgrade returns true if the hash should be upgraded to argon2id.
	NeedsUpgrade(hash string) bool
}

// HasherOption configures an Argon2idHasher.
type HasherOption func(*Argon2idHasher)

// WithMaxPasswordLength overrides DefaultMaxPasswordLength.
func WithMaxPasswordLength(n int) HasherOption {
	return func(h *Argon2idHasher) {
		if n > 0 {
			h.maxLength = n
		}
	}
}

// Argon2idHasher implements PasswordHasher using argon2id. It also verifies
// legacy PBKDF2 and bcrypt records so they can be upgraded on next login.
type Argon2idHasher struct {
	maxLength int
}

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher(opts ...HasherOption) *Argon2idHasher {
	h := &Argon2idHasher{maxLength: DefaultMaxPasswordLength}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash produces an argon2id hash of the password.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > h.maxLength {
		return "", oops.Code(CodePasswordTooLong).
			With("max_length", h.maxLength).
			Wrapf(ErrInvalidInput, "password exceeds %d bytes", h.maxLength)
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks if the password matches the hash.
func (h *Argon2idHasher) Verify(password, encodedHash string) (bool, error) {
	if isBcrypt(encodedHash) {
		return verifyBcrypt(password, encodedHash)
	}

	parts := strings.Split(encodedHash, "$")
	if len(parts) < 5 || parts[0] != "" {
		return false, invalidHash("invalid hash format")
	}

	switch parts[1] {
	case "argon2id":
		return verifyArgon2id(password, parts)
	case "pbkdf2-sha256":
		return verifyPBKDF2(password, parts, sha256.New)
	case "pbkdf2-sha512":
		return verifyPBKDF2(password, parts, sha512.New)
	default:
		return false, invalidHash("unsupported hash algorithm: %s", parts[1])
	}
}

// NeedsUpgrade returns true if the hash is not argon2id (e.g., bcrypt).
func (h *Argon2idHasher) NeedsUpgrade(hash string) bool {
	return !strings.HasPrefix(hash, "$argon2id$")
}

func invalidHash(format string, args ...any) error {
	return oops.Code(CodeInvalidHash).Errorf(format, args...)
}

// verifyArgon2id checks $argon2id$v=19$m=..,t=..,p=..$salt$key.
func verifyArgon2id(password string, parts []string) (bool, error) {
	if len(parts) != 6 {
		return false, invalidHash("invalid hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, oops.Code(CodeInvalidHash).Wrap(err)
	}
	if version != argon2.Version {
		return false, invalidHash("unsupported argon2 version: %d", version)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, oops.Code(CodeInvalidHash).Wrap(err)
	}
	if time < 1 || time > maxArgon2Time {
		return false, invalidHash("time cost %d out of range", time)
	}
	if memory < 8 || memory > maxArgon2Memory {
		return false, invalidHash("memory cost %d out of range", memory)
	}
	if threads < 1 || threads > 255 {
		return false, invalidHash("threads value %d out of range", threads)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, oops.Code(CodeInvalidHash).Wrap(err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, oops.Code(CodeInvalidHash).Wrap(err)
	}
	if len(expected) == 0 || len(expected) > maxDerivedKey {
		return false, invalidHash("invalid hash key length: %d", len(expected))
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, uint8(threads), uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// verifyPBKDF2 checks $pbkdf2-<digest>$i=<iter>[,l=<len>]$salt$key.
func verifyPBKDF2(password string, parts []string, digest func() hash.Hash) (bool, error) {
	if len(parts) != 5 {
		return false, invalidHash("invalid hash format")
	}

	iter, err := parsePBKDF2Params(parts[2])
	if err != nil {
		return false, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return false, oops.Code(CodeInvalidHash).Wrap(err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, oops.Code(CodeInvalidHash).Wrap(err)
	}
	if len(expected) == 0 || len(expected) > maxDerivedKey {
		return false, invalidHash("invalid hash key length: %d", len(expected))
	}

	computed := pbkdf2.Key([]byte(password), salt, iter, len(expected), digest)
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// parsePBKDF2Params reads "i=<iter>" with an optional ",l=<len>" suffix.
// The output length is taken from the stored key, so l is only range checked.
func parsePBKDF2Params(field string) (int, error) {
	iter := 0
	for _, kv := range strings.Split(field, ",") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return 0, invalidHash("invalid pbkdf2 parameter: %q", kv)
		}
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
			return 0, oops.Code(CodeInvalidHash).With("parameter", name).Wrap(err)
		}
		switch name {
		case "i":
			iter = n
		case "l":
			if n < 1 || n > maxDerivedKey {
				return 0, invalidHash("pbkdf2 output length %d out of range", n)
			}
		default:
			return 0, invalidHash("unknown pbkdf2 parameter: %s", name)
		}
	}
	if iter < 1 || iter > maxPBKDF2Iter {
		return 0, invalidHash("pbkdf2 iterations %d out of range", iter)
	}
	return iter, nil
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

func verifyBcrypt(password, encoded string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, oops.Code(CodeInvalidHash).Wrap(err)
	}
}
