// Package hexlit converts between hex strings and the escaped-byte string
// literals ("\xab\xcd") used in the generated C headers.
package hexlit

import (
	"encoding/hex"
	"strings"

	"github.com/mmozeiko/overflow/vector"
)

// TokenLen is the width of one escaped byte.
const TokenLen = 4

// Encode maps each pair of hex digits to one \xNN token, keeping the digits
// exactly as given ("abcd" -> `\xab\xcd`).
func Encode(s string) (string, error) {
	if len(s)%2 != 0 {
		return "", vector.NewError(vector.KindMalformedInput, "HV-HEX-001", "odd-length hex string")
	}
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return "", vector.NewError(vector.KindMalformedInput, "HV-HEX-002", "invalid hex digit")
		}
	}
	var sb strings.Builder
	sb.Grow(len(s) / 2 * TokenLen)
	for i := 0; i < len(s); i += 2 {
		sb.WriteString(`\x`)
		sb.WriteString(s[i : i+2])
	}
	return sb.String(), nil
}

// EncodeBytes is Encode over the lower-case hex form of b.
func EncodeBytes(b []byte) string {
	// hex.EncodeToString never yields odd or invalid digits.
	out, _ := Encode(hex.EncodeToString(b))
	return out
}

// Decode is the inverse of Encode.
func Decode(lit string) ([]byte, error) {
	if len(lit)%TokenLen != 0 {
		return nil, vector.NewError(vector.KindMalformedInput, "HV-HEX-003", "truncated escape token")
	}
	out := make([]byte, 0, len(lit)/TokenLen)
	for i := 0; i < len(lit); i += TokenLen {
		tok := lit[i : i+TokenLen]
		if tok[0] != '\\' || tok[1] != 'x' {
			return nil, vector.NewError(vector.KindMalformedInput, "HV-HEX-003", "expected \\x escape")
		}
		b, err := hex.DecodeString(tok[2:])
		if err != nil {
			return nil, vector.WrapError(vector.KindMalformedInput, "HV-HEX-002", "invalid hex digit", err)
		}
		out = append(out, b[0])
	}
	return out, nil
}

func isHexDigit(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'A' && c <= 'F':
		return true
	}
	return false
}
