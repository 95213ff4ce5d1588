// Package cryptox hashes and verifies password verifiers.
//
// Two families are understood: bcrypt ($2a$, $2b$, $2y$), which is what the
// legacy store holds, and argon2id in PHC string form, which is what the
// modern store writes. The family is read from the verifier encoding itself.
package cryptox

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
	"golang.org/x/crypto/bcrypt"
)

// Family names a verifier hash family.
type Family string

const (
	FamilyBcrypt   Family = "bcrypt"
	FamilyArgon2id Family = "argon2id"
)

// ErrUnsupportedVerifier is returned for verifiers of an unknown family or
// with a malformed encoding.
var ErrUnsupportedVerifier = errors.New("unsupported password verifier")

// Params are the argon2id cost settings used by HashPassword.
type Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams: 64 MiB, one pass, four lanes.
var DefaultParams = Params{
	Memory:      64 * 1024,
	Time:        1,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

// DetectFamily reads the family from the verifier prefix.
func DetectFamily(verifier string) (Family, error) {
	switch {
	case strings.HasPrefix(verifier, "$2a$"),
		strings.HasPrefix(verifier, "$2b$"),
		strings.HasPrefix(verifier, "$2y$"):
		return FamilyBcrypt, nil
	case strings.HasPrefix(verifier, "$argon2id$"):
		return FamilyArgon2id, nil
	default:
		return "", ErrUnsupportedVerifier
	}
}

// Verify checks password against verifier using the verifier's own family.
// A mismatch is (false, nil); an unreadable verifier is an error.
func Verify(password []byte, verifier string) (bool, error) {
	family, err := DetectFamily(verifier)
	if err != nil {
		return false, err
	}

	switch family {
	case FamilyBcrypt:
		err := bcrypt.CompareHashAndPassword([]byte(verifier), password)
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrUnsupportedVerifier, err)
		}
		return true, nil
	default:
		return verifyArgon2id(password, verifier)
	}
}

// HashPassword produces an argon2id PHC verifier:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func HashPassword(password []byte, p Params) (string, error) {
	salt := make([]byte, p.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey(password, salt, p.Time, p.Memory, p.Parallelism, p.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func verifyArgon2id(password []byte, verifier string) (bool, error) {
	p, salt, want, err := parsePHC(verifier)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey(password, salt, p.Time, p.Memory, p.Parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func parsePHC(s string) (Params, []byte, []byte, error) {
	var p Params

	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != string(FamilyArgon2id) {
		return p, nil, nil, ErrUnsupportedVerifier
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: argon2 version %q", ErrUnsupportedVerifier, parts[2])
	}

	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return p, nil, nil, fmt.Errorf("%w: params %q", ErrUnsupportedVerifier, parts[3])
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 {
			return p, nil, nil, fmt.Errorf("%w: param %s", ErrUnsupportedVerifier, k)
		}
		switch k {
		case "m":
			p.Memory = uint32(n)
		case "t":
			p.Time = uint32(n)
		case "p":
			if n > 255 {
				return p, nil, nil, fmt.Errorf("%w: param p", ErrUnsupportedVerifier)
			}
			p.Parallelism = uint8(n)
		default:
			return p, nil, nil, fmt.Errorf("%w: param %s", ErrUnsupportedVerifier, k)
		}
	}
	if p.Memory == 0 || p.Time == 0 || p.Parallelism == 0 {
		return p, nil, nil, fmt.Errorf("%w: missing params", ErrUnsupportedVerifier)
	}

	salt, err := decodeB64(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, fmt.Errorf("%w: salt", ErrUnsupportedVerifier)
	}
	key, err := decodeB64(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, fmt.Errorf("%w: hash", ErrUnsupportedVerifier)
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))
	return p, salt, key, nil
}

// decodeB64 accepts both padded and unpadded standard base64.
func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}
