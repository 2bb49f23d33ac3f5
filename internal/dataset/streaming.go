package dataset

// streaming.go provides the reader chain used by Load:
//
//   - bomReader drops a leading UTF-8 BOM (0xEF 0xBB 0xBF) written by Excel
//   - utf8Validator fails the read at the first byte that is not valid UTF-8
//   - countingReader tracks bytes consumed for logging
//
// wrapForLoad applies them in that order.

import (
	"fmt"
	"io"
	"unicode/utf8"
)

// EncodingError reports undecodable input at a byte offset (after any BOM).
type EncodingError struct {
	Offset int64
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("invalid UTF-8 at byte %d", e.Offset)
}

var utf8BOM = [3]byte{0xEF, 0xBB, 0xBF}

// bomReader skips a UTF-8 BOM at the start of the stream.
type bomReader struct {
	r       io.Reader
	checked bool
	head    []byte // bytes read during the BOM check that are not a BOM
}

func newBOMReader(r io.Reader) *bomReader {
	return &bomReader{r: r}
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		var buf [3]byte
		n, err := io.ReadFull(b.r, buf[:])
		if n == 3 && buf == utf8BOM {
			n = 0
		}
		b.head = append(b.head, buf[:n]...)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return 0, err
		}
	}
	if len(b.head) > 0 {
		n := copy(p, b.head)
		b.head = b.head[n:]
		return n, nil
	}
	return b.r.Read(p)
}

// utf8Validator passes bytes through unchanged and returns an *EncodingError
// at the first invalid sequence. Multi-byte sequences split across reads are
// held back until the rest arrives.
type utf8Validator struct {
	r       io.Reader
	scratch []byte
	buf     []byte // validated bytes not yet handed out
	pending []byte // incomplete sequence at the end of the last chunk
	offset  int64
	err     error
}

func newUTF8Validator(r io.Reader) *utf8Validator {
	return &utf8Validator{
		r:       r,
		scratch: make([]byte, 4096),
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

func (v *utf8Validator) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(v.buf) == 0 {
		if v.err != nil {
			return 0, v.err
		}
		v.fill()
	}
	n := copy(p, v.buf)
	v.buf = v.buf[n:]
	return n, nil
}

func (v *utf8Validator) fill() {
	n := copy(v.scratch, v.pending)
	v.pending = v.pending[:0]

	m, err := v.r.Read(v.scratch[n:])
	data := v.scratch[:n+m]

	valid := len(data)
	if err == nil {
		valid -= incompleteTrailingBytes(data)
	}

	if i := firstInvalid(data[:valid]); i >= 0 {
		v.buf = data[:i]
		v.err = &EncodingError{Offset: v.offset + int64(i)}
		return
	}

	v.pending = append(v.pending, data[valid:]...)
	v.buf = data[:valid]
	v.offset += int64(valid)
	v.err = err
}

// firstInvalid returns the index of the first invalid UTF-8 byte, or -1.
func firstInvalid(data []byte) int {
	if isAllASCII(data) || utf8.Valid(data) {
		return -1
	}
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}

func isAllASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// incompleteTrailingBytes returns how many bytes at the end of data start a
// multi-byte sequence that has not been completed yet.
func incompleteTrailingBytes(data []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b >= 0xC0 {
			if i < runeLen(b) {
				return i
			}
			return 0
		}
		if b&0xC0 != 0x80 {
			return 0
		}
	}
	return 0
}

// runeLen returns the encoded length announced by a UTF-8 lead byte.
func runeLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}

// countingReader counts bytes read through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// wrapForLoad builds the reader chain for parsing a CSV file.
func wrapForLoad(r io.Reader) *countingReader {
	return &countingReader{r: newUTF8Validator(newBOMReader(r))}
}
