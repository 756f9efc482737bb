package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argonMemory      = 64 * 1024 // 64 MiB
	argonIterations  = 2
	argonParallelism = 2
	argonKeyLen      = 32
	saltLen          = 16
)

// ErrMalformedHash indicates the stored hash is not a valid argon2id
// encoding, verification against it always fails
var ErrMalformedHash = errors.New("malformed password hash")

// Hash derives an argon2id hash and returns it in the standard
// $argon2id$v=19$m=..,t=..,p=..$salt$hash encoding
func Hash(pw string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey(
		[]byte(pw),
		salt,
		argonIterations,
		argonMemory,
		argonParallelism,
		argonKeyLen,
	)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argonMemory,
		argonIterations,
		argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify re-derives the hash with the parameters embedded in the
// encoding and compares in constant time
func Verify(encoded, pw string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrMalformedHash
	}
	var mem uint32
	var it uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &it, &par); err != nil {
		return false, ErrMalformedHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrMalformedHash
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, ErrMalformedHash
	}
	other := argon2.IDKey([]byte(pw), salt, it, mem, par, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, other) == 1, nil
}
