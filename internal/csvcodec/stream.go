package csvcodec

// stream.go prepares raw uploads for Decode.
//
// Files exported by spreadsheet tools often carry a UTF-8 byte order mark or
// stray bytes from a legacy code page. The readers here clean those up on
// the fly:
//
//   - BOMSkippingReader: drops a leading UTF-8 BOM (0xEF 0xBB 0xBF)
//   - UTF8Sanitizer: replaces invalid UTF-8 bytes with '?'
//   - CountingReader: counts bytes and enforces an optional size cap
//
// Wrap applies all three in the right order.

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrTooLarge is returned when input exceeds DecodeOptions.MaxBytes.
var ErrTooLarge = errors.New("input too large")

// DecodeReader reads r to the end through Wrap and decodes the result. The
// only errors are read errors from r and ErrTooLarge.
func DecodeReader(r io.Reader, opts DecodeOptions) ([][]string, error) {
	cr := Wrap(r, opts.MaxBytes)
	data, err := io.ReadAll(cr)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return Decode(string(data), opts), nil
}

// Wrap strips a BOM, sanitizes UTF-8 and counts bytes, in that order.
// A positive limit makes the returned reader fail with ErrTooLarge once more
// than limit bytes have been read.
func Wrap(r io.Reader, limit int64) *CountingReader {
	return NewCountingReader(NewUTF8Sanitizer(NewBOMSkippingReader(r)), limit)
}

// UTF8Sanitizer wraps an io.Reader and replaces invalid UTF-8 bytes with '?'.
// A multi-byte sequence split across reads is carried over to the next read
// instead of being treated as invalid. Reads go through an internal buffer,
// so callers may pass a p of any size.
type UTF8Sanitizer struct {
	reader  io.Reader
	chunk   []byte
	pending []byte // incomplete trailing sequence from the last chunk
	out     []byte // sanitized bytes not yet handed out
	err     error
}

const sanitizerChunk = 4096

// NewUTF8Sanitizer creates a sanitizing reader.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{
		reader: r,
		chunk:  make([]byte, sanitizerChunk),
	}
}

// Read implements io.Reader.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		s.fill()
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// fill reads one chunk from the underlying reader into out. Any read error
// ends the stream, so a held back sequence is flushed as is.
func (s *UTF8Sanitizer) fill() {
	n, err := s.reader.Read(s.chunk)
	s.err = err

	data := make([]byte, 0, len(s.pending)+n)
	data = append(data, s.pending...)
	data = append(data, s.chunk[:n]...)
	s.pending = s.pending[:0]

	if isASCII(data) {
		s.out = data
		return
	}
	s.out = data[:s.sanitize(data, err != nil)]
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// sanitize rewrites data in place and returns the number of bytes to hand
// out. Unless atEOF, an incomplete trailing sequence is held back in pending.
func (s *UTF8Sanitizer) sanitize(data []byte, atEOF bool) int {
	if utf8.Valid(data) {
		if !atEOF {
			if k := incompleteTail(data); k > 0 {
				s.pending = append(s.pending, data[len(data)-k:]...)
				return len(data) - k
			}
		}
		return len(data)
	}

	write := 0
	for read := 0; read < len(data); {
		if !atEOF && !utf8.FullRune(data[read:]) && len(data)-read < utf8.UTFMax {
			s.pending = append(s.pending, data[read:]...)
			return write
		}

		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

// incompleteTail returns how many trailing bytes start a multi-byte sequence
// that has not been fully read yet.
func incompleteTail(data []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b >= 0xC0 {
			if i < seqLen(b) {
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

func seqLen(b byte) int {
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

// BOMSkippingReader wraps an io.Reader and drops a leading UTF-8 BOM.
type BOMSkippingReader struct {
	reader  io.Reader
	checked bool
	head    []byte
}

// NewBOMSkippingReader creates a BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{reader: r}
}

// Read implements io.Reader.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true

		buf := make([]byte, 3)
		n, err := io.ReadFull(r.reader, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return 0, err
		}
		if n == 3 && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF {
			n = 0
		}
		r.head = buf[:n]
	}

	if len(r.head) > 0 {
		n := copy(p, r.head)
		r.head = r.head[n:]
		return n, nil
	}

	return r.reader.Read(p)
}

// CountingReader wraps an io.Reader, counting bytes read and enforcing an
// optional limit.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Limit     int64
}

// NewCountingReader creates a counting reader. A limit of zero disables the cap.
func NewCountingReader(r io.Reader, limit int64) *CountingReader {
	return &CountingReader{reader: r, Limit: limit}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	if r.Limit > 0 && r.BytesRead > r.Limit {
		return n, ErrTooLarge
	}
	return n, err
}
