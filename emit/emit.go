// Package emit renders test vectors as C initializer rows:
//
//	{ "\xd4\x1d...", "\x61", 1 },
package emit

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/mmozeiko/overflow/hexlit"
	"github.com/mmozeiko/overflow/vector"
)

// Record renders one vector as a single newline-terminated row.
func Record(v vector.TestVector) string {
	var sb strings.Builder
	sb.Grow(16 + (len(v.Digest)+len(v.Message))*hexlit.TokenLen)
	sb.WriteString(`{ "`)
	sb.WriteString(hexlit.EncodeBytes(v.Digest))
	sb.WriteString(`", "`)
	sb.WriteString(hexlit.EncodeBytes(v.Message))
	sb.WriteString(`", `)
	sb.WriteString(strconv.Itoa(v.ByteLength()))
	sb.WriteString(" },\n")
	return sb.String()
}

// Writer streams rows to a sink. Rows are buffered until Flush.
type Writer struct {
	bw    *bufio.Writer
	count int
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// Write appends one row.
func (w *Writer) Write(v vector.TestVector) error {
	if _, err := w.bw.WriteString(Record(v)); err != nil {
		return vector.WrapError(vector.KindInternal, "HV-EMIT-001", "write record", err)
	}
	w.count++
	return nil
}

// Count is the number of rows written so far.
func (w *Writer) Count() int { return w.count }

// Flush pushes buffered rows to the sink.
func (w *Writer) Flush() error {
	if err := w.bw.Flush(); err != nil {
		return vector.WrapError(vector.KindInternal, "HV-EMIT-001", "flush records", err)
	}
	return nil
}

// Emit writes every vector in order; all rows are in w when it returns nil.
func Emit(w io.Writer, vs []vector.TestVector) error {
	ew := NewWriter(w)
	for _, v := range vs {
		if err := ew.Write(v); err != nil {
			return err
		}
	}
	return ew.Flush()
}
