package classify

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Kind is the destination class of a source file: text files belong in
// version control, binary files in the remote blob store.
type Kind int

const (
	Text Kind = iota
	Binary
)

func (k Kind) String() string {
	if k == Binary {
		return "binary"
	}
	return "text"
}

// sniffLen bounds how much of a file is inspected for classification.
const sniffLen = 8000

// maxNonTextRatio is the fraction of control bytes above which content
// is considered binary even without a NUL byte.
const maxNonTextRatio = 0.30

// File classifies the file at path by content, never by extension.
// Zero-length files are text. A missing file surfaces fs.ErrNotExist
// through the returned error.
func File(path string) (Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return Text, err
	}
	defer func() {
		_ = f.Close()
	}()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return Text, fmt.Errorf("read %s: %w", path, err)
	}

	return Bytes(buf[:n]), nil
}

// Bytes classifies raw content. A NUL byte always means binary; otherwise
// content is binary when control characters outweigh maxNonTextRatio.
// High-bit bytes are treated as text so UTF-8 sources classify correctly.
func Bytes(b []byte) Kind {
	if len(b) == 0 {
		return Text
	}
	if bytes.IndexByte(b, 0) >= 0 {
		return Binary
	}

	nonText := 0
	for _, c := range b {
		switch {
		case c == '\n', c == '\r', c == '\t', c == '\f', c == '\b':
			// common whitespace and control characters found in text
		case c < 0x20 || c == 0x7f:
			nonText++
		}
	}

	if float64(nonText) > float64(len(b))*maxNonTextRatio {
		return Binary
	}
	return Text
}
