package exr

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// ErrCorruptChunk indicates a chunk does not decompress to the expected
// size
var ErrCorruptChunk = errors.New("corrupt chunk")

// Compression is the chunk compression method.
type Compression uint8

// Compression methods. Only NONE, RLE, ZIPS and ZIP are decoded.
const (
	CompressionNone Compression = iota
	CompressionRLE
	CompressionZIPS
	CompressionZIP
	CompressionPIZ
	CompressionPXR24
	CompressionB44
	CompressionB44A
	CompressionDWAA
	CompressionDWAB
)

var compressionNames = [...]string{"none", "rle", "zips", "zip", "piz", "pxr24", "b44", "b44a", "dwaa", "dwab"}

func (c Compression) String() string {
	if int(c) < len(compressionNames) {
		return compressionNames[c]
	}
	return fmt.Sprintf("compression(%d)", c)
}

// ParseCompression parses a compression name.
func ParseCompression(s string) (Compression, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range compressionNames {
		if name == s {
			return Compression(i), nil
		}
	}
	return 0, fmt.Errorf("unknown compression %q", s)
}

// Supported reports whether chunks using c can be read and written.
func (c Compression) Supported() bool {
	return c <= CompressionZIP
}

// LinesPerChunk returns the number of scanlines stored in one chunk.
func (c Compression) LinesPerChunk() int {
	switch c {
	case CompressionZIP, CompressionPXR24:
		return 16
	case CompressionPIZ, CompressionB44, CompressionB44A, CompressionDWAA:
		return 32
	case CompressionDWAB:
		return 256
	}
	return 1
}

// compressChunk packs raw chunk data. The caller stores raw instead when
// the result is not smaller.
func compressChunk(c Compression, raw []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return raw, nil
	case CompressionRLE:
		return rleEncode(predict(raw)), nil
	case CompressionZIPS, CompressionZIP:
		var buf bytes.Buffer
		zw, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if _, err := zw.Write(predict(raw)); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("compression %s is not supported", c)
}

// decompressChunk unpacks chunk data to exactly rawSize bytes. Data that is
// already rawSize bytes long was stored uncompressed.
func decompressChunk(c Compression, data []byte, rawSize int) ([]byte, error) {
	if len(data) == rawSize {
		return data, nil
	}
	if len(data) > rawSize {
		return nil, fmt.Errorf("%w: %d bytes for %d", ErrCorruptChunk, len(data), rawSize)
	}
	switch c {
	case CompressionRLE:
		out, err := rleDecode(data, rawSize)
		if err != nil {
			return nil, err
		}
		return unpredict(out), nil
	case CompressionZIPS, CompressionZIP:
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptChunk, err)
		}
		defer zr.Close()
		out := make([]byte, rawSize)
		if _, err := io.ReadFull(zr, out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptChunk, err)
		}
		return unpredict(out), nil
	}
	return nil, fmt.Errorf("%w: %d bytes for %d", ErrCorruptChunk, len(data), rawSize)
}

// predict splits even and odd bytes into two halves, then replaces every
// byte with its difference to the previous one.
func predict(raw []byte) []byte {
	out := make([]byte, len(raw))
	half := (len(raw) + 1) / 2
	for i, v := range raw {
		if i%2 == 0 {
			out[i/2] = v
		} else {
			out[half+i/2] = v
		}
	}
	for i := len(out) - 1; i > 0; i-- {
		out[i] = out[i] - out[i-1] + 128
	}
	return out
}

// unpredict reverses predict. It modifies b.
func unpredict(b []byte) []byte {
	for i := 1; i < len(b); i++ {
		b[i] = b[i-1] + b[i] - 128
	}
	out := make([]byte, len(b))
	half := (len(b) + 1) / 2
	for i := range out {
		if i%2 == 0 {
			out[i] = b[i/2]
		} else {
			out[i] = b[half+i/2]
		}
	}
	return out
}

const (
	minRunLength = 3
	maxRunLength = 127
)

// rleEncode stores runs as a count byte n >= 0 followed by the value
// repeated n+1 times, and literals as -n followed by n bytes.
func rleEncode(in []byte) []byte {
	out := make([]byte, 0, len(in))
	for start := 0; start < len(in); {
		end := start + 1
		for end < len(in) && in[end] == in[start] && end-start-1 < maxRunLength {
			end++
		}
		if end-start >= minRunLength {
			out = append(out, byte(end-start-1), in[start])
			start = end
			continue
		}
		for end < len(in) &&
			(end+1 >= len(in) || in[end] != in[end+1] || end+2 >= len(in) || in[end+1] != in[end+2]) &&
			end-start < maxRunLength {
			end++
		}
		out = append(out, byte(int8(start-end)))
		out = append(out, in[start:end]...)
		start = end
	}
	return out
}

func rleDecode(in []byte, rawSize int) ([]byte, error) {
	out := make([]byte, 0, rawSize)
	for len(in) > 0 {
		n := int(int8(in[0]))
		in = in[1:]
		if n < 0 {
			n = -n
			if len(in) < n || len(out)+n > rawSize {
				return nil, fmt.Errorf("%w: literal overruns chunk", ErrCorruptChunk)
			}
			out = append(out, in[:n]...)
			in = in[n:]
			continue
		}
		if len(in) == 0 || len(out)+n+1 > rawSize {
			return nil, fmt.Errorf("%w: run overruns chunk", ErrCorruptChunk)
		}
		for i := 0; i <= n; i++ {
			out = append(out, in[0])
		}
		in = in[1:]
	}
	if len(out) != rawSize {
		return nil, fmt.Errorf("%w: %d bytes for %d", ErrCorruptChunk, len(out), rawSize)
	}
	return out, nil
}
