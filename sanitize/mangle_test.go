package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoLineBreaksStripsInjectedBreaks(t *testing.T) {
	assert.Equal(t, "alice@example.comforged line", NoLineBreaks("alice@example.com\r\nforged line"))
	assert.Equal(t, "plain", NoLineBreaks("plain"))
	assert.Equal(t, "", NoLineBreaks("\n\r\n"))
}

func TestUserInputStringKeepsKey(t *testing.T) {
	field := UserInputString("email", "a\nb")
	assert.Equal(t, "email", field.Key)
	assert.Equal(t, "ab", field.String)
}
