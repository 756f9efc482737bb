package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("correct horse battery staple")
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	ok, err := Verify(hash, "correct horse battery staple")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify(hash, "incorrect horse")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestHashIsSalted(t *testing.T) {
	first, err := Hash("same input")
	assert.NoError(t, err)
	second, err := Hash("same input")
	assert.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestVerifyMalformedHash(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=65536,t=2,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$garbage$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=2,p=2$!!!$aGFzaA",
	} {
		ok, err := Verify(encoded, "whatever")
		assert.ErrorIs(t, err, ErrMalformedHash)
		assert.False(t, ok)
	}
}
