package hexlit

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmozeiko/overflow/vector"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "ab", want: `\xab`},
		{in: "abcd", want: `\xab\xcd`},
		{in: "00ff10", want: `\x00\xff\x10`},
		{in: "DEadBEef", want: `\xDE\xad\xBE\xef`},
	}
	for _, tt := range tests {
		got, err := Encode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.Len(t, got, len(tt.in)/2*TokenLen)
	}
}

func TestEncode_Rejects(t *testing.T) {
	_, err := Encode("abc")
	require.Error(t, err)
	assert.Equal(t, "HV-HEX-001", vector.RuleID(err))

	_, err = Encode("zz")
	require.Error(t, err)
	assert.True(t, vector.IsKind(err, vector.KindMalformedInput))
	assert.Equal(t, "HV-HEX-002", vector.RuleID(err))
}

func TestDecodeEncode_RoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"00",
		"d41d8cd98f00b204e9800998ecf8427e",
		"0123456789abcdefABCDEF",
		"ffffffffffffffff0000000000000000",
	}
	for _, s := range inputs {
		lit, err := Encode(s)
		require.NoError(t, err)
		got, err := Decode(lit)
		require.NoError(t, err)
		want, err := hex.DecodeString(s)
		require.NoError(t, err)
		assert.Equal(t, want, got, s)
	}
}

func TestDecodeEncode_AllBytes(t *testing.T) {
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	got, err := Decode(EncodeBytes(all))
	require.NoError(t, err)
	assert.Equal(t, all, got)
}

func TestDecode_Rejects(t *testing.T) {
	for _, lit := range []string{`\xa`, `\yab`, `abcd`, `\xzz`} {
		_, err := Decode(lit)
		assert.Error(t, err, lit)
	}
}
