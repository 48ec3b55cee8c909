package imageio

import (
	"path/filepath"
	"strings"

	"github.com/opd-ai/djv/fileinfo"
	"github.com/opd-ai/djv/pixel"
)

// Capabilities describe how a plugin stores frames.
type Capabilities struct {
	// RandomAccess readers decode any frame without reading its
	// predecessors.
	RandomAccess bool
	// OneShot plugins store every frame in a single container file.
	OneShot bool
	// Seekable writers rewrite header fields after the payload.
	Seekable bool
}

// Reader decodes frames from an opened file or sequence.
type Reader interface {
	// ReadFrame decodes one frame. It may be called again after a failure.
	ReadFrame(FrameInfo) (*pixel.Image, error)
	Close() error
}

// Writer encodes frames into an opened file or sequence.
type Writer interface {
	// WriteFrame stores one frame. Frames must arrive in increasing order.
	WriteFrame(*pixel.Image, FrameInfo) error
	// Close finalizes the output. Only the first call has an effect.
	Close() error
}

// Plugin is a codec for one family of file formats.
type Plugin interface {
	Name() string
	Extensions() []string
	Capabilities() Capabilities
	// Probe reports whether the plugin handles path. It only looks at
	// the name.
	Probe(path string) bool
	OpenRead(fi fileinfo.FileInfo) (Reader, Info, error)
	OpenWrite(fi fileinfo.FileInfo, info Info) (Writer, error)
}

// OptionSetter is implemented by plugins with configurable behaviour.
type OptionSetter interface {
	SetOption(name, value string) error
	OptionNames() []string
}

// TypeMapper is implemented by plugins that store a restricted set of
// pixel types. WriteType returns the stored type for every input type.
type TypeMapper interface {
	WriteType(pixel.Type) pixel.Type
}

// HasExtension reports whether the lowercase extension of path is one of
// exts.
func HasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}

// WriteType returns the pixel type plugin p stores for t.
func WriteType(p Plugin, t pixel.Type) pixel.Type {
	if m, ok := p.(TypeMapper); ok {
		return m.WriteType(t)
	}
	return t
}
