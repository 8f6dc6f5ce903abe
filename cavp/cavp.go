// Package cavp parses the NIST CAVP SHA byte-oriented response files
// (SHA*ShortMsg.rsp, SHA*LongMsg.rsp) into test vectors.
//
// A response file is a sequence of "Key = value" lines grouped under
// bracketed section headers:
//
//	# CAVS 11.0
//	[L = 20]
//
//	Len = 0
//	Msg = 00
//	MD = da39a3ee5e6b4b0d3255bfef95601890afd80709
//
// Len is the message length in bits. A zero-length message is written as the
// single sentinel byte "00". The digest line completes a record.
package cavp

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mmozeiko/overflow/vector"
)

const (
	// DefaultDigestKey is the key of the digest field in SHA response files.
	DefaultDigestKey = "MD"

	lengthKey  = "Len"
	messageKey = "Msg"

	// EmptySentinel encodes the zero-length message.
	EmptySentinel = "00"
)

// Option configures a Parser.
type Option func(*Parser)

// WithDigestKey selects the key that carries the expected digest.
func WithDigestKey(key string) Option {
	return func(p *Parser) {
		if key != "" {
			p.digestKey = key
		}
	}
}

// Parser accumulates Len, Msg and digest fields across lines. It emits a
// vector when the digest field arrives and then resets.
type Parser struct {
	digestKey string
	lineNo    int

	hasLength   bool
	inputLength int // bytes
	hasMessage  bool
	inputHex    string
}

// NewParser returns a Parser with an empty record.
func NewParser(opts ...Option) *Parser {
	p := &Parser{digestKey: DefaultDigestKey}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Feed consumes one line. It returns a vector when the line completes a
// record and nil otherwise.
func (p *Parser) Feed(line string) (*vector.TestVector, error) {
	p.lineNo++
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "[") || strings.HasPrefix(line, "#") {
		return nil, nil
	}
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	switch key {
	case lengthKey:
		return nil, p.setLength(value)
	case messageKey:
		return nil, p.setMessage(value)
	case p.digestKey:
		return p.complete(value)
	}
	return nil, nil
}

// Finish reports an error if a record was started but never completed.
func (p *Parser) Finish() error {
	if p.hasLength || p.hasMessage {
		return p.errorf("HV-RSP-007", "incomplete record at end of input")
	}
	return nil
}

func (p *Parser) setLength(value string) error {
	if p.hasLength {
		return p.errorf("HV-RSP-005", "duplicate Len in record")
	}
	bits, err := strconv.Atoi(value)
	if err != nil {
		return p.wrapf("HV-RSP-001", err, "Len is not an integer")
	}
	if bits < 0 || bits%8 != 0 {
		return p.errorf("HV-RSP-001", "Len %d is not a whole number of bytes", bits)
	}
	p.inputLength = bits / 8
	p.hasLength = true
	return nil
}

func (p *Parser) setMessage(value string) error {
	if p.hasMessage {
		return p.errorf("HV-RSP-005", "duplicate Msg in record")
	}
	if !p.hasLength {
		return p.errorf("HV-RSP-002", "Msg before Len")
	}
	if p.inputLength == 0 {
		if value != EmptySentinel {
			return p.errorf("HV-RSP-003", "zero-length Msg must be %q, got %q", EmptySentinel, value)
		}
		value = ""
	} else if len(value) != 2*p.inputLength {
		return p.errorf("HV-RSP-004", "Msg has %d hex digits, Len requires %d", len(value), 2*p.inputLength)
	}
	if _, err := hex.DecodeString(value); err != nil {
		return p.wrapf("HV-HEX-002", err, "Msg is not valid hex")
	}
	p.inputHex = value
	p.hasMessage = true
	return nil
}

func (p *Parser) complete(value string) (*vector.TestVector, error) {
	if !p.hasLength || !p.hasMessage {
		return nil, p.errorf("HV-RSP-006", "%s before Len and Msg", p.digestKey)
	}
	digest, err := hex.DecodeString(value)
	if err != nil {
		return nil, p.wrapf("HV-HEX-002", err, "%s is not valid hex", p.digestKey)
	}
	if len(digest) == 0 {
		return nil, p.errorf("HV-RSP-008", "empty %s", p.digestKey)
	}
	// Validated in setMessage.
	message, _ := hex.DecodeString(p.inputHex)
	if message == nil {
		message = []byte{}
	}
	v := vector.TestVector{
		Digest:    digest,
		Message:   message,
		BitLength: p.inputLength * 8,
	}
	p.reset()
	return &v, nil
}

func (p *Parser) reset() {
	p.hasLength = false
	p.inputLength = 0
	p.hasMessage = false
	p.inputHex = ""
}

func (p *Parser) errorf(ruleID, format string, args ...any) error {
	msg := fmt.Sprintf("line %d: ", p.lineNo) + fmt.Sprintf(format, args...)
	return vector.NewError(vector.KindMalformedInput, ruleID, msg)
}

func (p *Parser) wrapf(ruleID string, cause error, format string, args ...any) error {
	msg := fmt.Sprintf("line %d: ", p.lineNo) + fmt.Sprintf(format, args...)
	return vector.WrapError(vector.KindMalformedInput, ruleID, msg, cause)
}

// Each streams the vectors of one response file to fn in input order.
func Each(r io.Reader, fn func(vector.TestVector) error, opts ...Option) error {
	p := NewParser(opts...)
	reader := bufio.NewReader(r)
	for {
		line, rerr := reader.ReadString('\n')
		if rerr != nil && rerr != io.EOF {
			return vector.WrapError(vector.KindInternal, "HV-RSP-999", "read failure", rerr)
		}
		if line != "" {
			v, err := p.Feed(line)
			if err != nil {
				return err
			}
			if v != nil {
				if err := fn(*v); err != nil {
					return err
				}
			}
		}
		if rerr == io.EOF {
			break
		}
	}
	return p.Finish()
}

// Parse collects every vector of one response file.
func Parse(r io.Reader, opts ...Option) ([]vector.TestVector, error) {
	var out []vector.TestVector
	err := Each(r, func(v vector.TestVector) error {
		out = append(out, v)
		return nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}
