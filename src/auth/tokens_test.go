package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenHashing(t *testing.T) {
	hashed := HashToken("correct horse battery staple")

	t.Run("round trip through the string form", func(t *testing.T) {
		parsed, err := ParseTokenString(hashed.String())
		assert.Nil(t, err)
		assert.Equal(t, hashed, parsed)
	})

	t.Run("matching token checks out", func(t *testing.T) {
		ok, err := CheckToken("correct horse battery staple", hashed)
		assert.Nil(t, err)
		assert.True(t, ok)
	})

	t.Run("wrong token does not", func(t *testing.T) {
		ok, err := CheckToken("incorrect horse battery staple", hashed)
		assert.Nil(t, err)
		assert.False(t, ok)
	})

	t.Run("garbage strings are rejected", func(t *testing.T) {
		_, err := ParseTokenString("not a token hash")
		assert.NotNil(t, err)

		_, err = ParseTokenString("md5$x$y$z")
		assert.NotNil(t, err)
	})
}

func TestArgon2idConfig(t *testing.T) {
	cfg := Argon2idConfig{Time: 1, Memory: 40 * 1024, Threads: 1, KeyLength: 64}
	parsed, err := ParseArgon2idConfig(cfg.String())
	assert.Nil(t, err)
	assert.Equal(t, cfg, parsed)
}
