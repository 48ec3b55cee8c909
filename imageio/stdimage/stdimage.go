// Package stdimage adapts Go image codecs to the plugin interface: PNG and
// JPEG from the standard library, TIFF and BMP from golang.org/x/image.
package stdimage

import (
	"bufio"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/opd-ai/djv/fileinfo"
	"github.com/opd-ai/djv/imageio"
	"github.com/opd-ai/djv/pixel"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// DefaultJPEGQuality is the JPEG quality used unless configured.
const DefaultJPEGQuality = 90

// Options configure encoding. Each format reads only its own fields.
type Options struct {
	JPEGQuality     int
	TIFFCompression tiff.CompressionType
}

// DefaultOptions returns quality 90 JPEG and uncompressed TIFF.
func DefaultOptions() Options {
	return Options{JPEGQuality: DefaultJPEGQuality, TIFFCompression: tiff.Uncompressed}
}

// format describes one Go codec.
type format struct {
	name    string
	exts    []string
	decode  func(io.Reader) (image.Image, error)
	encode  func(io.Writer, image.Image, Options) error
	stored  map[pixel.Type]pixel.Type
	options map[string]func(*Options, string) error
}

// deepTypes keeps 16 bit luminance and colour, with or without alpha.
var deepTypes = map[pixel.Type]pixel.Type{
	pixel.LU8:     pixel.LU8,
	pixel.LU16:    pixel.LU16,
	pixel.LF16:    pixel.LU16,
	pixel.LF32:    pixel.LU16,
	pixel.LAU8:    pixel.RGBAU8,
	pixel.LAU16:   pixel.RGBAU16,
	pixel.LAF16:   pixel.RGBAU16,
	pixel.LAF32:   pixel.RGBAU16,
	pixel.RGBU8:   pixel.RGBU8,
	pixel.RGBU10:  pixel.RGBU16,
	pixel.RGBU16:  pixel.RGBU16,
	pixel.RGBF16:  pixel.RGBU16,
	pixel.RGBF32:  pixel.RGBU16,
	pixel.RGBAU8:  pixel.RGBAU8,
	pixel.RGBAU16: pixel.RGBAU16,
	pixel.RGBAF16: pixel.RGBAU16,
	pixel.RGBAF32: pixel.RGBAU16,
}

// jpegTypes stores 8 bit luminance or colour.
var jpegTypes = map[pixel.Type]pixel.Type{
	pixel.LU8:     pixel.LU8,
	pixel.LU16:    pixel.LU8,
	pixel.LF16:    pixel.LU8,
	pixel.LF32:    pixel.LU8,
	pixel.LAU8:    pixel.LU8,
	pixel.LAU16:   pixel.LU8,
	pixel.LAF16:   pixel.LU8,
	pixel.LAF32:   pixel.LU8,
	pixel.RGBU8:   pixel.RGBU8,
	pixel.RGBU10:  pixel.RGBU8,
	pixel.RGBU16:  pixel.RGBU8,
	pixel.RGBF16:  pixel.RGBU8,
	pixel.RGBF32:  pixel.RGBU8,
	pixel.RGBAU8:  pixel.RGBU8,
	pixel.RGBAU16: pixel.RGBU8,
	pixel.RGBAF16: pixel.RGBU8,
	pixel.RGBAF32: pixel.RGBU8,
}

// bmpTypes stores 8 bit colour. Luminance is expanded to RGB.
var bmpTypes = map[pixel.Type]pixel.Type{
	pixel.LU8:     pixel.RGBU8,
	pixel.LU16:    pixel.RGBU8,
	pixel.LF16:    pixel.RGBU8,
	pixel.LF32:    pixel.RGBU8,
	pixel.LAU8:    pixel.RGBAU8,
	pixel.LAU16:   pixel.RGBAU8,
	pixel.LAF16:   pixel.RGBAU8,
	pixel.LAF32:   pixel.RGBAU8,
	pixel.RGBU8:   pixel.RGBU8,
	pixel.RGBU10:  pixel.RGBU8,
	pixel.RGBU16:  pixel.RGBU8,
	pixel.RGBF16:  pixel.RGBU8,
	pixel.RGBF32:  pixel.RGBU8,
	pixel.RGBAU8:  pixel.RGBAU8,
	pixel.RGBAU16: pixel.RGBAU8,
	pixel.RGBAF16: pixel.RGBAU8,
	pixel.RGBAF32: pixel.RGBAU8,
}

func setJPEGQuality(o *Options, value string) error {
	q, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || q < 1 || q > 100 {
		return fmt.Errorf("%w: quality %q (1-100)", imageio.ErrInvalidOption, value)
	}
	o.JPEGQuality = q
	return nil
}

var tiffCompressions = map[string]tiff.CompressionType{
	"none":    tiff.Uncompressed,
	"deflate": tiff.Deflate,
}

func setTIFFCompression(o *Options, value string) error {
	c, ok := tiffCompressions[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return fmt.Errorf("%w: compression %q (none, deflate)", imageio.ErrInvalidOption, value)
	}
	o.TIFFCompression = c
	return nil
}

var pngFormat = format{
	name:   "png",
	exts:   []string{".png"},
	decode: png.Decode,
	encode: func(w io.Writer, m image.Image, _ Options) error {
		enc := png.Encoder{CompressionLevel: png.DefaultCompression}
		return enc.Encode(w, m)
	},
	stored: deepTypes,
}

var jpegFormat = format{
	name:   "jpeg",
	exts:   []string{".jpg", ".jpeg", ".jfif"},
	decode: jpeg.Decode,
	encode: func(w io.Writer, m image.Image, o Options) error {
		return jpeg.Encode(w, m, &jpeg.Options{Quality: o.JPEGQuality})
	},
	stored:  jpegTypes,
	options: map[string]func(*Options, string) error{"quality": setJPEGQuality},
}

var tiffFormat = format{
	name:   "tiff",
	exts:   []string{".tif", ".tiff"},
	decode: tiff.Decode,
	encode: func(w io.Writer, m image.Image, o Options) error {
		return tiff.Encode(w, m, &tiff.Options{Compression: o.TIFFCompression, Predictor: o.TIFFCompression == tiff.Deflate})
	},
	stored:  deepTypes,
	options: map[string]func(*Options, string) error{"compression": setTIFFCompression},
}

var bmpFormat = format{
	name:   "bmp",
	exts:   []string{".bmp"},
	decode: bmp.Decode,
	encode: func(w io.Writer, m image.Image, _ Options) error {
		return bmp.Encode(w, m)
	},
	stored: bmpTypes,
}

// Plugin is a codec plugin backed by one Go image format.
type Plugin struct {
	format format
	mu     sync.RWMutex
	opts   Options
}

func newPlugin(f format) *Plugin {
	return &Plugin{format: f, opts: DefaultOptions()}
}

// NewPNG returns the PNG plugin.
func NewPNG() *Plugin { return newPlugin(pngFormat) }

// NewJPEG returns the JPEG plugin. It accepts the option "quality".
func NewJPEG() *Plugin { return newPlugin(jpegFormat) }

// NewTIFF returns the TIFF plugin. It accepts the option "compression".
func NewTIFF() *Plugin { return newPlugin(tiffFormat) }

// NewBMP returns the BMP plugin.
func NewBMP() *Plugin { return newPlugin(bmpFormat) }

// Plugins returns every format in this package.
func Plugins() []imageio.Plugin {
	return []imageio.Plugin{NewPNG(), NewJPEG(), NewTIFF(), NewBMP()}
}

func (p *Plugin) Name() string         { return p.format.name }
func (p *Plugin) Extensions() []string { return p.format.exts }

func (p *Plugin) Capabilities() imageio.Capabilities {
	return imageio.Capabilities{RandomAccess: true}
}

func (p *Plugin) Probe(path string) bool {
	return imageio.HasExtension(path, p.format.exts)
}

// Options returns a copy of the current options.
func (p *Plugin) Options() Options {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.opts
}

func (p *Plugin) OpenRead(fi fileinfo.FileInfo) (imageio.Reader, imageio.Info, error) {
	return imageio.NewSequenceReader(fi, &codec{format: &p.format})
}

func (p *Plugin) OpenWrite(fi fileinfo.FileInfo, info imageio.Info) (imageio.Writer, error) {
	return imageio.NewSequenceWriter(fi, &codec{format: &p.format, opts: p.Options()}), nil
}

// SetOption implements imageio.OptionSetter.
func (p *Plugin) SetOption(name, value string) error {
	set, ok := p.format.options[name]
	if !ok {
		return fmt.Errorf("%w: %s_%s", imageio.ErrUnknownOption, p.format.name, name)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return set(&p.opts, value)
}

// OptionNames implements imageio.OptionSetter.
func (p *Plugin) OptionNames() []string {
	var names []string
	for name := range p.format.options {
		names = append(names, name)
	}
	return names
}

// WriteType implements imageio.TypeMapper.
func (p *Plugin) WriteType(t pixel.Type) pixel.Type {
	if s, ok := p.format.stored[t]; ok {
		return s
	}
	return pixel.RGBAU8
}

type codec struct {
	format *format
	opts   Options
}

// DecodeInfo decodes the whole image. Colour models alone do not tell
// whether an image is opaque.
func (c *codec) DecodeInfo(path string) (imageio.Info, error) {
	img, err := c.decodeFile(path, "open")
	if err != nil {
		return imageio.Info{}, err
	}
	return imageio.NewInfo(path, img.Info), nil
}

func (c *codec) Decode(path string) (*pixel.Image, error) {
	return c.decodeFile(path, "read")
}

func (c *codec) decodeFile(path, op string) (*pixel.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, imageio.NewError(op, path, err)
	}
	defer f.Close()
	m, err := c.format.decode(bufio.NewReader(f))
	if err != nil {
		return nil, imageio.NewError(op, path, fmt.Errorf("%w: %v", imageio.ErrUnsupportedFile, err))
	}
	return ToPixel(m), nil
}

func (c *codec) Encode(path string, img *pixel.Image) error {
	t, ok := c.format.stored[img.Type]
	if !ok {
		t = pixel.RGBAU8
	}
	f, err := os.Create(path)
	if err != nil {
		return imageio.NewError("write", path, err)
	}
	bw := bufio.NewWriter(f)
	err = c.format.encode(bw, FromPixel(img, t), c.opts)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return imageio.NewError("write", path, err)
	}
	return nil
}
