package cryptox

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// cheap parameters keep the suite fast
var testParams = Params{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestDetectFamily(t *testing.T) {
	for _, v := range []string{"$2a$10$x", "$2b$12$y", "$2y$04$z"} {
		f, err := DetectFamily(v)
		require.NoError(t, err)
		assert.Equal(t, FamilyBcrypt, f)
	}

	f, err := DetectFamily("$argon2id$v=19$m=1,t=1,p=1$a$b")
	require.NoError(t, err)
	assert.Equal(t, FamilyArgon2id, f)

	for _, v := range []string{"", "plain", "$1$md5", "$argon2i$v=19$"} {
		_, err := DetectFamily(v)
		assert.ErrorIs(t, err, ErrUnsupportedVerifier, v)
	}
}

func TestVerify_Bcrypt(t *testing.T) {
	h, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	ok, err := Verify([]byte("s3cret"), string(h))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify([]byte("wrong"), string(h))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_BcryptMalformed(t *testing.T) {
	_, err := Verify([]byte("x"), "$2b$10$short")
	assert.ErrorIs(t, err, ErrUnsupportedVerifier)
}

func TestHashPassword_RoundTrip(t *testing.T) {
	v, err := HashPassword([]byte("s3cret"), testParams)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(v, "$argon2id$v=19$m=1024,t=1,p=1$"))

	ok, err := Verify([]byte("s3cret"), v)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify([]byte("s3creT"), v)
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := HashPassword([]byte("s3cret"), testParams)
	require.NoError(t, err)
	assert.NotEqual(t, v, other, "salt must differ")
}

func TestVerify_Argon2PaddedEncoding(t *testing.T) {
	// goAuth-style verifiers use padded base64
	v, err := HashPassword([]byte("pw"), testParams)
	require.NoError(t, err)
	parts := strings.Split(v, "$")
	parts[4] += strings.Repeat("=", (4-len(parts[4])%4)%4)
	parts[5] += strings.Repeat("=", (4-len(parts[5])%4)%4)

	ok, err := Verify([]byte("pw"), strings.Join(parts, "$"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_Argon2Malformed(t *testing.T) {
	bad := []string{
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1,x=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$!!$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdA",
	}
	for _, v := range bad {
		_, err := Verify([]byte("pw"), v)
		assert.ErrorIs(t, err, ErrUnsupportedVerifier, v)
	}
}

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(2, testParams)
	pw := []byte("s3cret")

	v, err := h.Hash(context.Background(), pw)
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret"), pw, "caller buffer untouched")

	ok, err := h.Verify(context.Background(), pw, v)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasher_WaitHonoursContext(t *testing.T) {
	h := NewHasher(1, testParams)
	require.NoError(t, h.sem.Acquire(context.Background(), 1))
	defer h.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := h.Hash(ctx, []byte("x"))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	_, err = h.Verify(ctx, []byte("x"), "$2b$04$abc")
	assert.Error(t, err)
}
