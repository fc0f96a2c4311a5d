package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Stored credential format: "pbkdf2:sha256:<iterations>$<salt>$<hex digest>".
// The method tag and iteration count travel with the hash so old credentials
// keep verifying after the defaults change.
const (
	method     = "pbkdf2:sha256"
	iterations = 600000
	saltLen    = 8
	keyLen     = 32
)

// HashPassword derives a salted PBKDF2-SHA256 credential from a plaintext password.
func HashPassword(plain string) (string, error) {
	salt, err := randomSalt(saltLen)

	if err != nil {
		return "", err
	}

	key := pbkdf2.Key([]byte(plain), []byte(salt), iterations, keyLen, sha256.New)

	return fmt.Sprintf("%s:%d$%s$%s", method, iterations, salt, hex.EncodeToString(key)), nil
}

// CheckPassword recomputes the hash with the parameters embedded in the stored
// credential and compares in constant time. A malformed credential never
// verifies; it is not an error.
func CheckPassword(credential, plain string) bool {
	parts := strings.SplitN(credential, "$", 3)

	if len(parts) != 3 {
		return false
	}

	methodTag, salt, digest := parts[0], parts[1], parts[2]

	prefix := method + ":"

	if !strings.HasPrefix(methodTag, prefix) {
		return false
	}

	iters, err := strconv.Atoi(strings.TrimPrefix(methodTag, prefix))

	if err != nil || iters <= 0 {
		return false
	}

	want, err := hex.DecodeString(digest)

	if err != nil || len(want) == 0 {
		return false
	}

	got := pbkdf2.Key([]byte(plain), []byte(salt), iters, len(want), sha256.New)

	return subtle.ConstantTimeCompare(got, want) == 1
}

// salt is drawn from the same alphabet werkzeug uses, so credentials remain
// printable and splittable on "$".
const saltAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomSalt(n int) (string, error) {
	raw := make([]byte, n)

	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	out := make([]byte, n)
	for i, b := range raw {
		out[i] = saltAlphabet[int(b)%len(saltAlphabet)]
	}

	return string(out), nil
}
