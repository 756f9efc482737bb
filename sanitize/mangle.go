// Package sanitize guards log output against values an attacker
// controls, most of what guardian logs (emails, addresses) arrives
// straight from the request.
package sanitize

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var breakStripper = strings.NewReplacer("\n", "", "\r", "")

// UserInputString wraps a request supplied value in a zap field with
// line breaks stripped, forged log lines (CWE-117) end up on one line
func UserInputString(key string, value string) zapcore.Field {
	return zap.String(key, NoLineBreaks(value))
}

// NoLineBreaks strips \n and \r from value
func NoLineBreaks(value string) string {
	return breakStripper.Replace(value)
}
