package core

// streaming.go turns an uploaded file into import text.
//
// The reader chain is:
//
//   - size limit on the raw bytes (ErrFileTooLarge)
//   - legacy charset decoding through golang.org/x/text when an encoding
//     other than UTF-8 is requested
//   - BOMSkippingReader to drop the UTF-8 byte-order mark
//   - StreamingUTF8Sanitizer when lenient decoding is enabled
//
// Without lenient decoding invalid UTF-8 is reported as ErrFileUnreadable.

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// DecodeOptions controls how Decode interprets file bytes.
type DecodeOptions struct {
	Encoding string // WHATWG label such as "utf-8", "windows-1252", "gbk"
	MaxSize  int64  // Raw byte limit; 0 disables the check
	Lenient  bool   // Replace invalid UTF-8 with '?' instead of failing
}

// Decode reads r to the end and returns its text. Failures are *ImportError
// values whose Reason tells the caller what was wrong with the file.
func Decode(r io.Reader, opts DecodeOptions) (string, error) {
	if opts.MaxSize > 0 {
		r = &limitedReader{r: r, remaining: opts.MaxSize}
	}

	utf8Input := isUTF8Label(opts.Encoding)
	if !utf8Input {
		enc, err := htmlindex.Get(opts.Encoding)
		if err != nil {
			return "", unreadable(fmt.Sprintf("unsupported encoding %q", opts.Encoding))
		}
		r = transform.NewReader(r, enc.NewDecoder())
	}

	r = NewBOMSkippingReader(r)
	if opts.Lenient && utf8Input {
		r = NewStreamingUTF8Sanitizer(r)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return "", &ImportError{Err: ErrFileTooLarge, Reason: fmt.Sprintf("limit is %d bytes", opts.MaxSize)}
		}
		return "", unreadable(err.Error())
	}
	if !utf8.Valid(data) {
		return "", unreadable("file is not valid UTF-8 text")
	}
	return string(data), nil
}

func unreadable(reason string) error {
	return &ImportError{Err: ErrFileUnreadable, Reason: reason}
}

func isUTF8Label(label string) bool {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8", "unicode-1-1-utf-8":
		return true
	}
	return false
}

// limitedReader fails with ErrFileTooLarge once more than remaining bytes
// are read, unlike io.LimitReader which stops silently.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrFileTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrFileTooLarge
	}
	return n, err
}

// StreamingUTF8Sanitizer wraps an io.Reader and replaces invalid UTF-8 bytes
// with '?' on the fly, carrying incomplete trailing sequences between reads.
type StreamingUTF8Sanitizer struct {
	reader io.Reader

	// Leftover bytes from previous read that may form a multi-byte sequence
	pending []byte
}

func NewStreamingUTF8Sanitizer(r io.Reader) *StreamingUTF8Sanitizer {
	return &StreamingUTF8Sanitizer{
		reader:  r,
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

// Read implements io.Reader.
func (s *StreamingUTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := 0
	if len(s.pending) > 0 {
		offset = copy(p, s.pending)
		s.pending = s.pending[:0]
	}

	n, err := s.reader.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	if isAllASCII(p[:n]) {
		return n, err
	}
	return s.sanitize(p[:n], err == io.EOF), err
}

func isAllASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}

// sanitize rewrites data in place and returns the number of bytes to emit.
// Unless atEOF, an incomplete sequence at the end is kept for the next read.
func (s *StreamingUTF8Sanitizer) sanitize(data []byte, atEOF bool) int {
	if utf8.Valid(data) {
		if !atEOF {
			if trailing := incompleteTrailingBytes(data); trailing > 0 {
				s.pending = append(s.pending, data[len(data)-trailing:]...)
				return len(data) - trailing
			}
		}
		return len(data)
	}

	write := 0
	for read := 0; read < len(data); {
		r, size := utf8.DecodeRune(data[read:])

		if !atEOF && read+size >= len(data) && isIncompleteRune(data[read:]) {
			s.pending = append(s.pending, data[read:]...)
			return write
		}

		if r == utf8.RuneError && size == 1 {
			// '?' keeps the output no longer than the input.
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

// incompleteTrailingBytes returns how many bytes at the end of data start a
// multi-byte sequence that is not yet complete.
func incompleteTrailingBytes(data []byte) int {
	for i := 1; i <= 3 && i <= len(data); i++ {
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

// runeLen returns the expected length of a UTF-8 sequence starting with b.
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

func isIncompleteRune(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	return runeLen(data[0]) > len(data)
}

// BOMSkippingReader drops a leading UTF-8 BOM (0xEF 0xBB 0xBF).
type BOMSkippingReader struct {
	reader  io.Reader
	checked bool
	buf     [3]byte
	pending []byte
}

func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{reader: r}
}

// Read implements io.Reader.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true

		n, err := io.ReadFull(r.reader, r.buf[:])
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if err != nil && err != io.EOF {
			return 0, err
		}

		if !(n == 3 && r.buf[0] == 0xEF && r.buf[1] == 0xBB && r.buf[2] == 0xBF) {
			r.pending = r.buf[:n]
		}
		if err == io.EOF {
			copied := copy(p, r.pending)
			r.pending = r.pending[copied:]
			if len(r.pending) > 0 {
				return copied, nil
			}
			return copied, io.EOF
		}
	}

	if len(r.pending) > 0 {
		copied := copy(p, r.pending)
		r.pending = r.pending[copied:]
		return copied, nil
	}
	return r.reader.Read(p)
}
