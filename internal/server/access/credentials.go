package access

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// CredentialScheme seals passwords and PIN codes for storage and checks a
// presented value against a stored one.
type CredentialScheme interface {
	Name() string
	Seal(secret string) (string, error)
	Verify(stored, presented string) bool
}

// NewScheme returns the scheme registered under name: "plain", "bcrypt" or
// "argon2".
func NewScheme(name string) (CredentialScheme, error) {
	switch name {
	case "", "plain":
		return Plain{}, nil
	case "bcrypt":
		return Bcrypt{Cost: bcrypt.DefaultCost}, nil
	case "argon2":
		return Argon2{}, nil
	}
	return nil, fmt.Errorf("unknown credential scheme %q", name)
}

// Plain stores secrets verbatim and compares them for exact equality.
type Plain struct{}

func (Plain) Name() string { return "plain" }

func (Plain) Seal(secret string) (string, error) { return secret, nil }

func (Plain) Verify(stored, presented string) bool { return stored == presented }

// Bcrypt stores bcrypt hashes.
type Bcrypt struct {
	Cost int
}

func (Bcrypt) Name() string { return "bcrypt" }

func (b Bcrypt) Seal(secret string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (Bcrypt) Verify(stored, presented string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(presented)) == nil
}

// Argon2 stores "argon2id$<salt>$<key>" with hex-encoded salt and key.
type Argon2 struct{}

const (
	argon2Prefix  = "argon2id"
	argon2SaltLen = 16
)

func argon2Key(secret string, salt []byte) []byte {
	return argon2.IDKey([]byte(secret), salt, 1, 64*1024, 4, 32)
}

func (Argon2) Name() string { return "argon2" }

func (Argon2) Seal(secret string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2Key(secret, salt)
	return strings.Join([]string{argon2Prefix, hex.EncodeToString(salt), hex.EncodeToString(key)}, "$"), nil
}

func (Argon2) Verify(stored, presented string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 3 || parts[0] != argon2Prefix {
		return false
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(parts[2])
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(argon2Key(presented, salt), want) == 1
}

// tokensEqual compares session tokens in constant time.
func tokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
