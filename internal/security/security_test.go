package security_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatlink/internal/security"
)

func TestTokenService(t *testing.T) {
	svc := security.NewTokenService("secret", time.Hour)

	t.Run("RoundTrip", func(t *testing.T) {
		token, err := svc.CreateForUser("alice")
		require.NoError(t, err)

		sub, err := svc.Subject(token)
		require.NoError(t, err)
		assert.Equal(t, "alice", sub)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := security.NewTokenService("other-secret", time.Hour)
		token, err := other.CreateForUser("alice")
		require.NoError(t, err)

		_, err = svc.Subject(token)
		assert.Error(t, err)
	})

	t.Run("Expired", func(t *testing.T) {
		expired := security.NewTokenService("secret", -time.Minute)
		token, err := expired.CreateForUser("alice")
		require.NoError(t, err)

		_, err = svc.Subject(token)
		assert.Error(t, err)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := svc.Subject("not.a.token")
		assert.Error(t, err)
	})
}

func TestEncryptor(t *testing.T) {
	enc, err := security.NewEncryptor([]byte("any length key works"))
	require.NoError(t, err)

	t.Run("RoundTrip", func(t *testing.T) {
		cipher, err := enc.Encrypt("hello world")
		require.NoError(t, err)
		assert.NotEqual(t, "hello world", cipher)

		plain, err := enc.Decrypt(cipher)
		require.NoError(t, err)
		assert.Equal(t, "hello world", plain)
	})

	t.Run("NonDeterministic", func(t *testing.T) {
		a, err := enc.Encrypt("same body")
		require.NoError(t, err)
		b, err := enc.Encrypt("same body")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("WrongKey", func(t *testing.T) {
		other, err := security.NewEncryptor([]byte("different key"))
		require.NoError(t, err)

		cipher, err := enc.Encrypt("hello")
		require.NoError(t, err)
		_, err = other.Decrypt(cipher)
		assert.Error(t, err)
	})

	t.Run("EmptyKey", func(t *testing.T) {
		_, err := security.NewEncryptor(nil)
		assert.Error(t, err)
	})

	t.Run("MalformedCiphertext", func(t *testing.T) {
		_, err := enc.Decrypt("%%%not-base64%%%")
		assert.Error(t, err)

		_, err = enc.Decrypt("c2hvcnQ=")
		assert.Error(t, err)
	})
}

func TestPasswordHasher(t *testing.T) {
	hasher := security.NewPasswordHasher(4)

	hash, err := hasher.Hash("Password1!")
	require.NoError(t, err)
	assert.NotEqual(t, "Password1!", hash)

	assert.NoError(t, hasher.Verify("Password1!", hash))
	assert.Error(t, hasher.Verify("wrong", hash))
}
