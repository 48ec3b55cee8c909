package dpx

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/opd-ai/djv/fileinfo"
	"github.com/opd-ai/djv/imageio"
	"github.com/opd-ai/djv/pixel"
	"github.com/sirupsen/logrus"
)

// CineonPluginName is the registry name and option prefix of the Cineon
// plugin.
const CineonPluginName = "cineon"

var cineonOptionNames = []string{
	"input_color_profile",
	"input_film_print",
	"output_color_profile",
	"output_film_print",
}

// DefaultCineonOptions returns big endian 10 bit output converted to film
// print density.
func DefaultCineonOptions() Options {
	opts := DefaultOptions()
	opts.OutputColorProfile = pixel.ProfileFilmPrint
	opts.Type = TypeU10
	opts.Endian = EndianMSB
	return opts
}

// CineonPlugin is the Cineon codec plugin. It shares the DPX options but
// always writes 10 bit RGB in big endian order.
type CineonPlugin struct {
	mu   sync.RWMutex
	opts Options
}

// NewCineonPlugin creates a plugin with DefaultCineonOptions.
func NewCineonPlugin() *CineonPlugin {
	return &CineonPlugin{opts: DefaultCineonOptions()}
}

// Options returns a copy of the current options.
func (p *CineonPlugin) Options() Options {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.opts
}

func (p *CineonPlugin) Name() string         { return CineonPluginName }
func (p *CineonPlugin) Extensions() []string { return []string{".cin"} }

func (p *CineonPlugin) Capabilities() imageio.Capabilities {
	return imageio.Capabilities{RandomAccess: true, Seekable: true}
}

func (p *CineonPlugin) Probe(path string) bool {
	return imageio.HasExtension(path, p.Extensions())
}

// OpenRead opens a file or sequence. The options in effect are captured.
func (p *CineonPlugin) OpenRead(fi fileinfo.FileInfo) (imageio.Reader, imageio.Info, error) {
	return imageio.NewSequenceReader(fi, &cineonCodec{codec{opts: p.Options()}})
}

// OpenWrite opens a file or sequence for writing.
func (p *CineonPlugin) OpenWrite(fi fileinfo.FileInfo, info imageio.Info) (imageio.Writer, error) {
	c := &cineonCodec{codec{opts: p.Options(), speed: info.Sequence.Speed}}
	logrus.WithFields(logrus.Fields{
		"function": "CineonPlugin.OpenWrite",
		"file":     fi.Path(),
		"profile":  c.opts.OutputColorProfile.String(),
	}).Debug("Opening Cineon output")
	return imageio.NewSequenceWriter(fi, c), nil
}

// SetOption implements imageio.OptionSetter. The DPX version, type and
// endian options are fixed for Cineon.
func (p *CineonPlugin) SetOption(name, value string) error {
	known := false
	for _, n := range cineonOptionNames {
		known = known || n == name
	}
	if !known {
		return fmt.Errorf("%w: %s", imageio.ErrUnknownOption, name)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opts.Set(name, value)
}

// OptionNames implements imageio.OptionSetter.
func (p *CineonPlugin) OptionNames() []string {
	return append([]string(nil), cineonOptionNames...)
}

// WriteType implements imageio.TypeMapper.
func (p *CineonPlugin) WriteType(pixel.Type) pixel.Type {
	return pixel.RGBU10
}

// cineonCodec decodes and encodes single Cineon files with the DPX codec's
// options and output conversion.
type cineonCodec struct {
	codec
}

type cineonDecoded struct {
	header  *CineonHeader
	profile pixel.ColorProfile
	layout  pixel.Info
	offset  int64
}

func (c *cineonCodec) readHeader(r io.Reader, size int64) (*cineonDecoded, error) {
	cr := &cineonReader{r: r, input: c.opts.InputColorProfile, filmPrint: c.opts.InputFilmPrint}
	if err := runStates(cr); err != nil {
		return nil, err
	}
	layout, err := cr.header.PixelInfo(cr.order)
	if err != nil {
		return nil, err
	}
	offset := int64(cr.header.File.ImageOffset)
	if !validU32(cr.header.File.ImageOffset) || offset < HeaderSize {
		offset = HeaderSize
	}
	if int64(layout.DataByteCount()) > size-offset {
		return nil, fmt.Errorf("%w: %d bytes of image data expected, %d available",
			imageio.ErrIncompleteFile, layout.DataByteCount(), size-offset)
	}
	return &cineonDecoded{header: &cr.header, profile: cr.profile, layout: layout, offset: offset}, nil
}

func (c *cineonCodec) DecodeInfo(path string) (imageio.Info, error) {
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
	info.Tags = d.header.Tags()
	if speed, ok := d.header.Speed(); ok {
		info.Sequence.Speed = speed
	}
	return info, nil
}

func (c *cineonCodec) Decode(path string) (*pixel.Image, error) {
	f, size, err := c.open(path)
	if err != nil {
		return nil, imageio.NewError("read", path, err)
	}
	defer f.Close()

	d, err := c.readHeader(f, size)
	if err != nil {
		return nil, imageio.NewError("read", path, err)
	}
	if _, err := f.Seek(d.offset, io.SeekStart); err != nil {
		return nil, imageio.NewError("read", path, err)
	}
	img := pixel.NewImage(d.layout)
	if _, err := io.ReadFull(f, img.Data); err != nil {
		return nil, imageio.NewError("read", path, fmt.Errorf("%w: %v", imageio.ErrIncompleteFile, err))
	}
	img.ColorProfile = d.profile
	img.Tags = d.header.Tags()
	return img, nil
}

func (c *cineonCodec) Encode(path string, img *pixel.Image) error {
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

func (c *cineonCodec) encode(w io.Writer, name string, img *pixel.Image) error {
	ws, ok := w.(io.WriteSeeker)
	if !ok {
		return imageio.ErrNotSeekable
	}
	out := c.stored(img)
	h := newCineonWriteHeader(name, out.Info, img.Tags, c.speed)
	if err := WriteCineonHeader(ws, h, binary.BigEndian); err != nil {
		return err
	}
	if _, err := ws.Write(out.Data); err != nil {
		return err
	}
	return patchSize(ws, binary.BigEndian, cineonSizeFieldOffset)
}
