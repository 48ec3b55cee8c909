package dpx

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/opd-ai/djv/fileinfo"
	"github.com/opd-ai/djv/imageio"
	"github.com/opd-ai/djv/pixel"
	"github.com/opd-ai/djv/sequence"
	"github.com/sirupsen/logrus"
)

// PluginName is the registry name and option prefix.
const PluginName = "dpx"

// InputProfile selects the colour profile attached to decoded images.
type InputProfile int

// Input profiles.
const (
	// InputAuto uses film print when the transfer characteristic says so.
	InputAuto InputProfile = iota
	InputRaw
	InputFilmPrint
)

var inputProfileLabels = map[InputProfile]string{
	InputAuto:      "auto",
	InputRaw:       "raw",
	InputFilmPrint: "film_print",
}

func (p InputProfile) String() string {
	return inputProfileLabels[p]
}

// TypeOption selects the stored pixel type.
type TypeOption int

// Type options.
const (
	TypeAuto TypeOption = iota
	// TypeU10 stores every image as 10 bit RGB.
	TypeU10
)

// EndianOption selects the byte order of written files.
type EndianOption int

// Endian options.
const (
	// EndianAuto uses the byte order of the machine.
	EndianAuto EndianOption = iota
	EndianMSB
	EndianLSB
)

// Options configure the codec.
type Options struct {
	InputColorProfile  InputProfile
	InputFilmPrint     pixel.FilmPrint
	OutputColorProfile pixel.ProfileType
	OutputFilmPrint    pixel.FilmPrint
	Version            Version
	Type               TypeOption
	Endian             EndianOption
}

// DefaultOptions returns version 2.0 big endian output with automatic input
// profile detection.
func DefaultOptions() Options {
	return Options{
		InputColorProfile:  InputAuto,
		InputFilmPrint:     pixel.DefaultFilmPrint,
		OutputColorProfile: pixel.ProfileRaw,
		OutputFilmPrint:    pixel.DefaultFilmPrint,
		Version:            Version2_0,
		Type:               TypeAuto,
		Endian:             EndianMSB,
	}
}

func (o Options) endian() pixel.Endian {
	switch o.Endian {
	case EndianMSB:
		return pixel.EndianMSB
	case EndianLSB:
		return pixel.EndianLSB
	}
	return pixel.NativeEndian()
}

// storedTypes maps every pixel type to the type written in TypeAuto mode.
var storedTypes = map[pixel.Type]pixel.Type{
	pixel.LU8:     pixel.LU8,
	pixel.LU16:    pixel.LU16,
	pixel.LF16:    pixel.LU16,
	pixel.LF32:    pixel.LU16,
	pixel.LAU8:    pixel.RGBAU8,
	pixel.LAU16:   pixel.RGBAU16,
	pixel.LAF16:   pixel.RGBAU16,
	pixel.LAF32:   pixel.RGBAU16,
	pixel.RGBU8:   pixel.RGBU8,
	pixel.RGBU10:  pixel.RGBU10,
	pixel.RGBU16:  pixel.RGBU16,
	pixel.RGBF16:  pixel.RGBU16,
	pixel.RGBF32:  pixel.RGBU16,
	pixel.RGBAU8:  pixel.RGBAU8,
	pixel.RGBAU16: pixel.RGBAU16,
	pixel.RGBAF16: pixel.RGBAU16,
	pixel.RGBAF32: pixel.RGBAU16,
}

func (o Options) writeType(t pixel.Type) pixel.Type {
	if o.Type == TypeU10 {
		return pixel.RGBU10
	}
	if s, ok := storedTypes[t]; ok {
		return s
	}
	return pixel.RGBU16
}

var optionNames = []string{
	"input_color_profile",
	"input_film_print",
	"output_color_profile",
	"output_film_print",
	"version",
	"type",
	"endian",
}

// Set parses one named option.
func (o *Options) Set(name, value string) error {
	value = strings.ToLower(strings.TrimSpace(value))
	bad := func() error {
		return fmt.Errorf("%w: %s %q", imageio.ErrInvalidOption, name, value)
	}
	switch name {
	case "input_color_profile":
		switch value {
		case "auto":
			o.InputColorProfile = InputAuto
		case "raw":
			o.InputColorProfile = InputRaw
		case "film_print":
			o.InputColorProfile = InputFilmPrint
		default:
			return bad()
		}
	case "output_color_profile":
		switch value {
		case "raw":
			o.OutputColorProfile = pixel.ProfileRaw
		case "film_print":
			o.OutputColorProfile = pixel.ProfileFilmPrint
		default:
			return bad()
		}
	case "input_film_print", "output_film_print":
		fp, err := parseFilmPrint(value)
		if err != nil {
			return bad()
		}
		if name == "input_film_print" {
			o.InputFilmPrint = fp
		} else {
			o.OutputFilmPrint = fp
		}
	case "version":
		v, err := ParseVersion(value)
		if err != nil {
			return bad()
		}
		o.Version = v
	case "type":
		switch value {
		case "auto":
			o.Type = TypeAuto
		case "u10":
			o.Type = TypeU10
		default:
			return bad()
		}
	case "endian":
		switch value {
		case "auto":
			o.Endian = EndianAuto
		case "msb":
			o.Endian = EndianMSB
		case "lsb":
			o.Endian = EndianLSB
		default:
			return bad()
		}
	default:
		return fmt.Errorf("%w: %s", imageio.ErrUnknownOption, name)
	}
	return nil
}

// parseFilmPrint parses "black white gamma".
func parseFilmPrint(s string) (pixel.FilmPrint, error) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return pixel.FilmPrint{}, fmt.Errorf("want black white gamma, got %q", s)
	}
	black, err := strconv.Atoi(parts[0])
	if err != nil {
		return pixel.FilmPrint{}, err
	}
	white, err := strconv.Atoi(parts[1])
	if err != nil {
		return pixel.FilmPrint{}, err
	}
	gamma, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || gamma <= 0 || white <= black {
		return pixel.FilmPrint{}, fmt.Errorf("invalid film print %q", s)
	}
	return pixel.FilmPrint{Black: black, White: white, Gamma: gamma}, nil
}

// Plugin is the DPX codec plugin.
type Plugin struct {
	mu   sync.RWMutex
	opts Options
}

// NewPlugin creates a plugin with DefaultOptions.
func NewPlugin() *Plugin {
	return NewPluginWithOptions(DefaultOptions())
}

// NewPluginWithOptions creates a plugin with opts.
func NewPluginWithOptions(opts Options) *Plugin {
	return &Plugin{opts: opts}
}

// Options returns a copy of the current options.
func (p *Plugin) Options() Options {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.opts
}

func (p *Plugin) Name() string         { return PluginName }
func (p *Plugin) Extensions() []string { return []string{".dpx"} }

func (p *Plugin) Capabilities() imageio.Capabilities {
	return imageio.Capabilities{RandomAccess: true, Seekable: true}
}

func (p *Plugin) Probe(path string) bool {
	return imageio.HasExtension(path, p.Extensions())
}

// OpenRead opens a file or sequence. The options in effect are captured.
func (p *Plugin) OpenRead(fi fileinfo.FileInfo) (imageio.Reader, imageio.Info, error) {
	return imageio.NewSequenceReader(fi, &codec{opts: p.Options()})
}

// OpenWrite opens a file or sequence for writing.
func (p *Plugin) OpenWrite(fi fileinfo.FileInfo, info imageio.Info) (imageio.Writer, error) {
	c := &codec{opts: p.Options(), speed: info.Sequence.Speed}
	logrus.WithFields(logrus.Fields{
		"function": "Plugin.OpenWrite",
		"file":     fi.Path(),
		"version":  c.opts.Version.String(),
		"endian":   c.opts.endian().String(),
	}).Debug("Opening DPX output")
	return imageio.NewSequenceWriter(fi, c), nil
}

// SetOption implements imageio.OptionSetter.
func (p *Plugin) SetOption(name, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opts.Set(name, value)
}

// OptionNames implements imageio.OptionSetter.
func (p *Plugin) OptionNames() []string {
	return append([]string(nil), optionNames...)
}

// WriteType implements imageio.TypeMapper.
func (p *Plugin) WriteType(t pixel.Type) pixel.Type {
	return p.Options().writeType(t)
}

// codec decodes and encodes single DPX files.
type codec struct {
	opts  Options
	speed sequence.Speed
}

// decoded holds a parsed header and what was derived from it.
type decoded struct {
	header  *Header
	order   binary.ByteOrder
	version Version
	profile pixel.ColorProfile
	layout  pixel.Info
}

func (c *codec) readHeader(r io.Reader, size int64) (*decoded, error) {
	hr := newHeaderReader(r, c.opts.InputColorProfile, c.opts.InputFilmPrint)
	if err := hr.run(); err != nil {
		return nil, err
	}
	layout, err := hr.header.PixelInfo(hr.order)
	if err != nil {
		return nil, err
	}
	offset := int64(hr.header.File.ImageOffset)
	if !validU32(hr.header.File.ImageOffset) || offset < HeaderSize {
		offset = HeaderSize
	}
	if int64(layout.DataByteCount()) > size-offset {
		return nil, fmt.Errorf("%w: %d bytes of image data expected, %d available",
			imageio.ErrIncompleteFile, layout.DataByteCount(), size-offset)
	}
	return &decoded{
		header:  &hr.header,
		order:   hr.order,
		version: hr.version,
		profile: hr.profile,
		layout:  layout,
	}, nil
}

func (d *decoded) tags() pixel.Tags {
	tags := d.header.Tags()
	elem := d.header.Image.Elem[0]
	if validU8(elem.Colorimetric) {
		if name := d.version.Colorimetric(elem.Colorimetric); name != "" {
			tags[TagColorimetric] = name
		}
	}
	return tags
}

func (c *codec) open(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, st.Size(), nil
}

func (c *codec) DecodeInfo(path string) (imageio.Info, error) {
	f, size, err := c.open(path)
	if err != nil {
		return imageio.Info{}, imageio.NewError("open", path, err)
	}
	defer f.Close()

	d, err := c.readHeader(f, size)
	if err != nil {
		return imageio.Info{}, imageio.NewError("open", path, err)
	}
	info := imageio.NewInfo(path, d.layout)
	info.Tags = d.tags()
	if speed, ok := d.header.Speed(); ok {
		info.Sequence.Speed = speed
	}
	return info, nil
}

func (c *codec) Decode(path string) (*pixel.Image, error) {
	f, size, err := c.open(path)
	if err != nil {
		return nil, imageio.NewError("read", path, err)
	}
	defer f.Close()

	d, err := c.readHeader(f, size)
	if err != nil {
		return nil, imageio.NewError("read", path, err)
	}
	offset := int64(d.header.File.ImageOffset)
	if !validU32(d.header.File.ImageOffset) || offset < HeaderSize {
		offset = HeaderSize
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, imageio.NewError("read", path, err)
	}
	img := pixel.NewImage(d.layout)
	if _, err := io.ReadFull(f, img.Data); err != nil {
		return nil, imageio.NewError("read", path, fmt.Errorf("%w: %v", imageio.ErrIncompleteFile, err))
	}
	img.ColorProfile = d.profile
	img.Tags = d.tags()
	return img, nil
}

func (c *codec) Encode(path string, img *pixel.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return imageio.NewError("write", path, err)
	}
	err = c.encode(f, filepath.Base(path), img)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return imageio.NewError("write", path, err)
	}
	return nil
}

// encode writes the header, the image data, then patches the file size.
func (c *codec) encode(w io.Writer, name string, img *pixel.Image) error {
	ws, ok := w.(io.WriteSeeker)
	if !ok {
		return imageio.ErrNotSeekable
	}
	out := c.stored(img)
	h := newWriteHeader(name, out.Info, c.opts, img.Tags, c.speed)
	order := out.Endian.ByteOrder()
	if err := WriteHeader(ws, h, order); err != nil {
		return err
	}
	if _, err := ws.Write(out.Data); err != nil {
		return err
	}
	return Finish(ws, order)
}

// stored converts img to the layout written to disk.
func (c *codec) stored(img *pixel.Image) *pixel.Image {
	info := pixel.Info{
		Name:   img.Name,
		Size:   img.Size,
		Type:   c.opts.writeType(img.Type),
		Mirror: img.Mirror,
		Endian: c.opts.endian(),
		Align:  1,
	}
	if info.Type == pixel.RGBU10 {
		info.Align = 4
	}
	out := pixel.NewImage(info)
	out.Tags = img.Tags

	if c.opts.OutputColorProfile == pixel.ProfileFilmPrint && img.ColorProfile.IsRaw() {
		lut := c.opts.OutputFilmPrint.FromLinearLUT()
		for y := 0; y < img.Size.H; y++ {
			for x := 0; x < img.Size.W; x++ {
				col := img.Pixel(x, y)
				for i := 0; i < 3; i++ {
					col[i] = pixel.LookupLUT(lut, col[i])
				}
				out.SetPixel(x, y, col)
			}
		}
		out.ColorProfile = pixel.ColorProfile{Type: pixel.ProfileFilmPrint, FilmPrint: c.opts.OutputFilmPrint}
		return out
	}
	// Sizes always match.
	_ = pixel.Convert(img, out)
	out.ColorProfile = img.ColorProfile
	return out
}
