package remote

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

var gzipMagic = []byte{0x1f, 0x8b}

// maxDecodedSize caps decompressed log size.
const maxDecodedSize = 256 << 20

// Text returns data as a string, inflating it first when it is gzip encoded.
// Rotated server logs are frequently archived as .gz.
func Text(data []byte) (string, error) {
	if !bytes.HasPrefix(data, gzipMagic) {
		return string(data), nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open gzip: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, maxDecodedSize))
	if err != nil {
		return "", fmt.Errorf("inflate gzip: %w", err)
	}
	return string(out), nil
}
