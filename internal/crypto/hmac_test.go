package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	secret := "webhook-secret"
	body := []byte(`{"tx_hash":"0xabc","log_index":3}`)

	sig := SignPayload(secret, body)

	assert.True(t, VerifySignature(secret, body, sig))
	assert.True(t, VerifySignature(secret, body, "sha256="+sig))
	assert.False(t, VerifySignature(secret, body, "deadbeef"))
	assert.False(t, VerifySignature("other-secret", body, sig))
	assert.False(t, VerifySignature(secret, []byte("tampered"), sig))
	assert.False(t, VerifySignature(secret, body, "not hex"))
}

func TestEncryptDecryptSecret(t *testing.T) {
	blob, err := EncryptSecret("super-secret", "password123")
	require.NoError(t, err)

	got, err := DecryptSecret(blob, "password123")
	require.NoError(t, err)
	assert.Equal(t, "super-secret", got)

	_, err = DecryptSecret(blob, "wrong-password")
	assert.Error(t, err)
}

func TestLoadSecretRawTakesPrecedence(t *testing.T) {
	got, err := LoadSecret(SecretConfig{RawSecret: "raw"})
	require.NoError(t, err)
	assert.Equal(t, "raw", got)

	_, err = LoadSecret(SecretConfig{})
	assert.Error(t, err)
}
