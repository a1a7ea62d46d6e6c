package userstore

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id tuning parameters. These match the values golang.org/x/crypto/
// argon2's IDKey documentation recommends (time=1, memory=64 MiB); they
// are not RFC 9106's low-memory option, which uses three passes.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

func hashPassword(plaintext string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("userstore: generating salt: %w", err)
	}
	hash := argon2.IDKey([]byte(plaintext), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return encodePHC(salt, hash), nil
}

// verifyPassword compares candidate against the PHC-encoded phc string in
// constant time. It returns false (never an error) for malformed PHC
// strings, since an unreadable stored hash can never verify.
func verifyPassword(phc, candidate string) bool {
	salt, hash, ok := decodePHC(phc)
	if !ok {
		return false
	}
	candidateHash := argon2.IDKey([]byte(candidate), salt, argonTime, argonMemory, argonThreads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(candidateHash, hash) == 1
}

func encodePHC(salt, hash []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))
}

func decodePHC(phc string) (salt, hash []byte, ok bool) {
	parts := strings.Split(phc, "$")
	// ["", "argon2id", "v=..", "m=..,t=..,p=..", "<salt>", "<hash>"]
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, false
	}
	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, false
	}
	return salt, hash, true
}
