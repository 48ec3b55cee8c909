// Package ppm reads and writes NetPBM grey (PGM) and colour (PPM) images.
//
// Binary (P5, P6) and ASCII (P2, P3) variants are supported with 8 or 16
// bit samples. Sixteen bit samples are stored most significant byte first.
package ppm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/opd-ai/djv/fileinfo"
	"github.com/opd-ai/djv/imageio"
	"github.com/opd-ai/djv/pixel"
)

// PluginName is the registry name and option prefix.
const PluginName = "ppm"

// Data selects how samples are written.
type Data int

// Data encodings.
const (
	DataBinary Data = iota
	DataASCII
)

func (d Data) String() string {
	if d == DataASCII {
		return "ascii"
	}
	return "binary"
}

// Options configure the codec.
type Options struct {
	Data Data
}

// DefaultOptions writes binary files.
func DefaultOptions() Options {
	return Options{Data: DataBinary}
}

// Plugin is the NetPBM codec plugin.
type Plugin struct {
	mu   sync.RWMutex
	opts Options
}

// NewPlugin creates a plugin with DefaultOptions.
func NewPlugin() *Plugin {
	return &Plugin{opts: DefaultOptions()}
}

func (p *Plugin) Name() string         { return PluginName }
func (p *Plugin) Extensions() []string { return []string{".ppm", ".pgm", ".pnm"} }

func (p *Plugin) Capabilities() imageio.Capabilities {
	return imageio.Capabilities{RandomAccess: true}
}

func (p *Plugin) Probe(path string) bool {
	return imageio.HasExtension(path, p.Extensions())
}

func (p *Plugin) options() Options {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.opts
}

func (p *Plugin) OpenRead(fi fileinfo.FileInfo) (imageio.Reader, imageio.Info, error) {
	return imageio.NewSequenceReader(fi, codec{})
}

func (p *Plugin) OpenWrite(fi fileinfo.FileInfo, info imageio.Info) (imageio.Writer, error) {
	return imageio.NewSequenceWriter(fi, codec{opts: p.options()}), nil
}

// SetOption accepts "data" with the values "binary" or "ascii".
func (p *Plugin) SetOption(name, value string) error {
	if name != "data" {
		return fmt.Errorf("%w: %s", imageio.ErrUnknownOption, name)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "binary":
		p.opts.Data = DataBinary
	case "ascii":
		p.opts.Data = DataASCII
	default:
		return fmt.Errorf("%w: data %q", imageio.ErrInvalidOption, value)
	}
	return nil
}

func (p *Plugin) OptionNames() []string { return []string{"data"} }

// WriteType stores luminance or RGB at 8 or 16 bits. Alpha is dropped.
func (p *Plugin) WriteType(t pixel.Type) pixel.Type {
	return storedType(t)
}

func storedType(t pixel.Type) pixel.Type {
	bits := 16
	if t.BitDepth() == 8 && !t.IsFloat() {
		bits = 8
	}
	if t.Channels() <= 2 {
		return pixel.IntType(1, bits)
	}
	return pixel.IntType(3, bits)
}

type header struct {
	ascii    bool
	channels int
	size     pixel.Size
	maxVal   int
}

func (h header) pixelType() pixel.Type {
	bits := 8
	if h.maxVal > 255 {
		bits = 16
	}
	return pixel.IntType(h.channels, bits)
}

// tokenReader splits the header into whitespace separated tokens and skips
// comments.
type tokenReader struct {
	r *bufio.Reader
}

func (t tokenReader) next() (string, error) {
	var sb strings.Builder
	for {
		c, err := t.r.ReadByte()
		if err != nil {
			if err == io.EOF && sb.Len() > 0 {
				return sb.String(), nil
			}
			return "", err
		}
		switch {
		case c == '#' && sb.Len() == 0:
			if _, err := t.r.ReadString('\n'); err != nil {
				return "", err
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if sb.Len() > 0 {
				return sb.String(), nil
			}
		default:
			sb.WriteByte(c)
		}
	}
}

func (t tokenReader) int() (int, error) {
	s, err := t.next()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

func readHeader(r *bufio.Reader) (header, error) {
	var magic [2]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return header{}, fmt.Errorf("%w: %v", imageio.ErrIncompleteFile, err)
	}
	var h header
	switch string(magic[:]) {
	case "P2":
		h = header{ascii: true, channels: 1}
	case "P3":
		h = header{ascii: true, channels: 3}
	case "P5":
		h = header{channels: 1}
	case "P6":
		h = header{channels: 3}
	case "P1", "P4":
		return header{}, fmt.Errorf("%w: bitmap", imageio.ErrUnsupportedFile)
	default:
		return header{}, fmt.Errorf("%w: %q", imageio.ErrBadMagic, magic[:])
	}

	tr := tokenReader{r}
	var fields [3]int
	for i := range fields {
		v, err := tr.int()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return header{}, fmt.Errorf("%w: header", imageio.ErrIncompleteFile)
			}
			return header{}, fmt.Errorf("%w: %v", imageio.ErrUnsupportedFile, err)
		}
		fields[i] = v
	}
	h.size = pixel.Size{W: fields[0], H: fields[1]}
	h.maxVal = fields[2]
	if !h.size.IsValid() || h.maxVal <= 0 || h.maxVal > 65535 {
		return header{}, fmt.Errorf("%w: %s max %d", imageio.ErrUnsupportedFile, h.size, h.maxVal)
	}
	return h, nil
}

func (h header) info() pixel.Info {
	info := pixel.NewInfo(h.size, h.pixelType())
	info.Endian = pixel.EndianMSB
	return info
}

// codec handles single files.
type codec struct {
	opts Options
}

func (codec) DecodeInfo(path string) (imageio.Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return imageio.Info{}, imageio.NewError("open", path, err)
	}
	defer f.Close()
	h, err := readHeader(bufio.NewReader(f))
	if err != nil {
		return imageio.Info{}, imageio.NewError("open", path, err)
	}
	return imageio.NewInfo(path, h.info()), nil
}

func (codec) Decode(path string) (*pixel.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, imageio.NewError("read", path, err)
	}
	defer f.Close()
	img, err := decode(bufio.NewReader(f))
	if err != nil {
		return nil, imageio.NewError("read", path, err)
	}
	return img, nil
}

func decode(r *bufio.Reader) (*pixel.Image, error) {
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	img := pixel.NewImage(h.info())
	bytesPerSample := 1
	if h.maxVal > 255 {
		bytesPerSample = 2
	}
	samples := len(img.Data) / bytesPerSample
	full := 255
	if bytesPerSample == 2 {
		full = 65535
	}

	if h.ascii {
		tr := tokenReader{r}
		for i := 0; i < samples; i++ {
			v, err := tr.int()
			if err != nil {
				return nil, fmt.Errorf("%w: sample %d: %v", imageio.ErrIncompleteFile, i, err)
			}
			putSample(img.Data, i, bytesPerSample, scale(v, h.maxVal, full))
		}
		return img, nil
	}

	if _, err := io.ReadFull(r, img.Data); err != nil {
		return nil, fmt.Errorf("%w: %v", imageio.ErrIncompleteFile, err)
	}
	if h.maxVal != full {
		for i := 0; i < samples; i++ {
			putSample(img.Data, i, bytesPerSample, scale(getSample(img.Data, i, bytesPerSample), h.maxVal, full))
		}
	}
	return img, nil
}

func scale(v, maxVal, full int) int {
	if v > maxVal {
		v = maxVal
	}
	if maxVal == full {
		return v
	}
	return (v*full + maxVal/2) / maxVal
}

func getSample(data []byte, i, size int) int {
	if size == 1 {
		return int(data[i])
	}
	return int(data[2*i])<<8 | int(data[2*i+1])
}

func putSample(data []byte, i, size, v int) {
	if size == 1 {
		data[i] = byte(v)
		return
	}
	data[2*i] = byte(v >> 8)
	data[2*i+1] = byte(v)
}

func (c codec) Encode(path string, img *pixel.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return imageio.NewError("write", path, err)
	}
	err = c.encode(f, img)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return imageio.NewError("write", path, err)
	}
	return nil
}

func (c codec) encode(w io.Writer, img *pixel.Image) error {
	t := storedType(img.Type)
	info := pixel.NewInfo(img.Size, t)
	info.Endian = pixel.EndianMSB
	out := imageio.Stored(img, info)

	magic := "P5"
	switch {
	case c.opts.Data == DataASCII && t.Channels() == 3:
		magic = "P3"
	case c.opts.Data == DataASCII:
		magic = "P2"
	case t.Channels() == 3:
		magic = "P6"
	}
	maxVal := 255
	size := 1
	if t.BitDepth() == 16 {
		maxVal = 65535
		size = 2
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n%d %d\n%d\n", magic, info.Size.W, info.Size.H, maxVal)
	if c.opts.Data == DataBinary {
		if _, err := bw.Write(out.Data); err != nil {
			return err
		}
		return bw.Flush()
	}
	perRow := info.Size.W * t.Channels()
	for i := 0; i < len(out.Data)/size; i++ {
		sep := byte(' ')
		if (i+1)%perRow == 0 {
			sep = '\n'
		}
		bw.WriteString(strconv.Itoa(getSample(out.Data, i, size)))
		bw.WriteByte(sep)
	}
	return bw.Flush()
}
