package generator

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/mmozeiko/overflow/vector"
)

// checkDigest recomputes the digest of v's message.
func checkDigest(newHash func() hash.Hash, source string, index int, v vector.TestVector) error {
	h := newHash()
	h.Write(v.Message)
	sum := h.Sum(nil)
	if !bytes.Equal(sum, v.Digest) {
		return vector.NewError(vector.KindVerify, "HV-VER-001", fmt.Sprintf(
			"%s record %d: digest %s does not match message digest %s",
			source, index, hex.EncodeToString(v.Digest), hex.EncodeToString(sum)))
	}
	return nil
}
