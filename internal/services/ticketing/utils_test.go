package ticketing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHmac256(t *testing.T) {
	digest := Hmac256([]byte("payload"), []byte("key"))

	assert.Len(t, digest, 64)
	assert.Equal(t, digest, Hmac256([]byte("payload"), []byte("key")))
	assert.NotEqual(t, digest, Hmac256([]byte("payload"), []byte("other-key")))
	assert.NotEqual(t, digest, Hmac256([]byte("other-payload"), []byte("key")))
}

func TestGenerateAndCompareHash(t *testing.T) {
	hash, err := GenerateHash([]byte("device-secret"))
	require.NoError(t, err)
	assert.NotEqual(t, "device-secret", hash)

	assert.True(t, CompareHash([]byte(hash), []byte("device-secret")))
	assert.False(t, CompareHash([]byte(hash), []byte("wrong-secret")))
}

func TestRandomNumber(t *testing.T) {
	a, err := randomNumber()
	require.NoError(t, err)
	assert.Len(t, a, 18)

	b, err := randomNumber()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
