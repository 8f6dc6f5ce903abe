// Package vector defines the hash test vector shared by the extractors and
// the header emitter, and the error taxonomy used across the pipeline.
package vector

// TestVector is one (digest, message) pair.
//
// BitLength is always 8*len(Message). A zero-length message is represented
// by an empty, non-nil Message and BitLength 0.
type TestVector struct {
	Digest    []byte
	Message   []byte
	BitLength int
}

// New builds a TestVector from whole-byte message data.
func New(digest, message []byte) TestVector {
	if message == nil {
		message = []byte{}
	}
	return TestVector{Digest: digest, Message: message, BitLength: 8 * len(message)}
}

// ByteLength is the message length in bytes.
func (v TestVector) ByteLength() int {
	return v.BitLength / 8
}
