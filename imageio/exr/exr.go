package exr

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	openexr "github.com/mrjoshuak/go-openexr/exr"
	"github.com/opd-ai/djv/fileinfo"
	"github.com/opd-ai/djv/imageio"
	"github.com/opd-ai/djv/pixel"
	"github.com/opd-ai/djv/sequence"
	"github.com/sirupsen/logrus"
	"github.com/x448/float16"
)

// PluginName is the registry name and option prefix.
const PluginName = "exr"

// TagChromaticities holds the eight primaries and white point coordinates
// as "rx ry gx gy bx by wx wy".
const TagChromaticities = "Chromaticities"

// Options configure the codec.
type Options struct {
	Compression Compression
}

// DefaultOptions writes ZIP compressed files.
func DefaultOptions() Options {
	return Options{Compression: CompressionZIP}
}

var optionNames = []string{"compression"}

// Set parses one named option.
func (o *Options) Set(name, value string) error {
	switch name {
	case "compression":
		c, err := ParseCompression(value)
		if err != nil || !c.Supported() {
			return fmt.Errorf("%w: %s %q", imageio.ErrInvalidOption, name, value)
		}
		o.Compression = c
	default:
		return fmt.Errorf("%w: %s", imageio.ErrUnknownOption, name)
	}
	return nil
}

// Plugin is the OpenEXR codec plugin.
type Plugin struct {
	mu   sync.RWMutex
	opts Options
}

// NewPlugin creates a plugin with DefaultOptions.
func NewPlugin() *Plugin {
	return &Plugin{opts: DefaultOptions()}
}

// Options returns a copy of the current options.
func (p *Plugin) Options() Options {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.opts
}

func (p *Plugin) Name() string         { return PluginName }
func (p *Plugin) Extensions() []string { return []string{".exr"} }

func (p *Plugin) Capabilities() imageio.Capabilities {
	return imageio.Capabilities{RandomAccess: true}
}

func (p *Plugin) Probe(path string) bool {
	return imageio.HasExtension(path, p.Extensions())
}

// OpenRead opens a file or sequence. Every part and channel group of the
// first frame is listed as a layer.
func (p *Plugin) OpenRead(fi fileinfo.FileInfo) (imageio.Reader, imageio.Info, error) {
	return imageio.NewSequenceReader(fi, &codec{opts: p.Options()})
}

// OpenWrite opens a file or sequence for writing.
func (p *Plugin) OpenWrite(fi fileinfo.FileInfo, info imageio.Info) (imageio.Writer, error) {
	c := &codec{opts: p.Options(), speed: info.Sequence.Speed}
	logrus.WithFields(logrus.Fields{
		"function":    "Plugin.OpenWrite",
		"file":        fi.Path(),
		"compression": c.opts.Compression.String(),
	}).Debug("Opening EXR output")
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

// WriteType implements imageio.TypeMapper. Float types are stored as they
// are and integer types as half floats with the same channels.
func (p *Plugin) WriteType(t pixel.Type) pixel.Type {
	return writeType(t)
}

func writeType(t pixel.Type) pixel.Type {
	if t.IsFloat() {
		return t
	}
	if w := pixel.FloatType(t.Channels(), 16); w != pixel.TypeNone {
		return w
	}
	return pixel.RGBAF16
}

// codec decodes and encodes single files.
type codec struct {
	opts  Options
	speed sequence.Speed
}

// file is a parsed file held in memory.
type file struct {
	data    []byte
	headers []*Header
	multi   bool
	offsets [][]uint64
	layers  []Layer
}

// parseFile decodes the headers and offset tables of data.
func parseFile(data []byte) (*file, error) {
	br := bytes.NewReader(data)
	r := bufio.NewReader(br)
	headers, multi, err := ReadHeaders(r)
	if err != nil {
		return nil, err
	}
	f := &file{data: data, headers: headers, multi: multi, layers: Layers(headers)}
	if len(f.layers) == 0 {
		return nil, fmt.Errorf("%w: no readable channels", imageio.ErrUnsupportedFile)
	}
	pos := len(data) - br.Len() - r.Buffered()
	for _, h := range headers {
		n := h.chunks()
		if n < 0 || n > (len(data)-pos)/8 {
			return nil, fmt.Errorf("%w: offset table of %d entries", imageio.ErrIncompleteFile, n)
		}
		table := make([]uint64, n)
		for i := range table {
			table[i] = binary.LittleEndian.Uint64(data[pos:])
			pos += 8
		}
		f.offsets = append(f.offsets, table)
	}
	return f, nil
}

// readHead reads the file up to and including its headers.
func readHead(path string) (*file, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	headers, multi, err := ReadHeaders(bufio.NewReader(fh))
	if err != nil {
		return nil, err
	}
	f := &file{headers: headers, multi: multi, layers: Layers(headers)}
	if len(f.layers) == 0 {
		return nil, fmt.Errorf("%w: no readable channels", imageio.ErrUnsupportedFile)
	}
	return f, nil
}

// chunk returns the first scanline and the payload of the chunk at off.
func (f *file) chunk(part int, off uint64) (int32, []byte, error) {
	if off == 0 || off >= uint64(len(f.data)) {
		return 0, nil, fmt.Errorf("%w: chunk offset %d", imageio.ErrIncompleteFile, off)
	}
	b := f.data[off:]
	if f.multi {
		if len(b) < 4 {
			return 0, nil, imageio.ErrIncompleteFile
		}
		if p := int32(binary.LittleEndian.Uint32(b)); int(p) != part {
			return 0, nil, fmt.Errorf("%w: chunk of part %d in table of part %d", ErrCorruptChunk, p, part)
		}
		b = b[4:]
	}
	if len(b) < 8 {
		return 0, nil, imageio.ErrIncompleteFile
	}
	y := int32(binary.LittleEndian.Uint32(b))
	size := binary.LittleEndian.Uint32(b[4:])
	b = b[8:]
	if uint64(size) > uint64(len(b)) {
		return 0, nil, fmt.Errorf("%w: chunk of %d bytes", imageio.ErrIncompleteFile, size)
	}
	return y, b[:size], nil
}

// readLayer decodes every chunk of the layer's part and copies the layer's
// channels into an image. Chunks are decoded on the shared thread pool.
func (f *file) readLayer(l Layer) (*pixel.Image, error) {
	h := f.headers[l.Part]
	if !h.Compression.Supported() {
		return nil, fmt.Errorf("%w: %s compression", imageio.ErrUnsupportedFile, h.Compression)
	}
	img := pixel.NewImage(l.Info)
	slot := make([]int, len(h.Channels))
	for i := range slot {
		slot[i] = -1
	}
	for s, c := range l.Channels {
		slot[c] = s
	}

	table := f.offsets[l.Part]
	errs := make([]error, len(table))
	pool := imageio.AcquireThreadPool(0)
	defer pool.Release()
	pool.Rows(len(table), func(c0, c1 int) {
		for c := c0; c < c1; c++ {
			errs[c] = f.readChunk(h, l, img, slot, table[c])
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return img, nil
}

func (f *file) readChunk(h *Header, l Layer, img *pixel.Image, slot []int, off uint64) error {
	y, data, err := f.chunk(l.Part, off)
	if err != nil {
		return err
	}
	top := y - h.DataWindow.Min.Y
	if top < 0 || int(top) >= h.Height() {
		return fmt.Errorf("%w: scanline %d outside data window", ErrCorruptChunk, y)
	}
	n := min(h.Compression.LinesPerChunk(), h.Height()-int(top))
	raw, err := decompressChunk(h.Compression, data, h.rawSize(y, n))
	if err != nil {
		return fmt.Errorf("scanline %d: %w", y, err)
	}

	width := h.Width()
	step := l.Info.Type.BitDepth() / 8
	px := l.Info.Type.ByteCount()
	pos := 0
	for i := 0; i < n; i++ {
		row := img.Scanline(int(top) + i)
		for ci, c := range h.Channels {
			size := c.Type.size()
			count := c.samples(y+int32(i), h.DataWindow)
			seg := raw[pos : pos+count*size]
			pos += count * size
			s := slot[ci]
			if s < 0 {
				continue
			}
			for x := 0; x < width; x++ {
				putSample(row[x*px+s*step:], seg[x*size:], c.Type, step)
			}
		}
	}
	return nil
}

// putSample stores one little endian sample as a step byte float.
func putSample(dst, src []byte, t PixelType, step int) {
	if step == 2 {
		copy(dst[:2], src[:2])
		return
	}
	switch t {
	case PixelHalf:
		v := float16.Frombits(binary.LittleEndian.Uint16(src)).Float32()
		binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
	case PixelUint:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(binary.LittleEndian.Uint32(src))))
	default:
		copy(dst[:4], src[:4])
	}
}

// tags maps the standard attributes of the first part to image tags.
func (f *file) tags() pixel.Tags {
	h := f.headers[0]
	tags := pixel.Tags{}
	if h.Owner != "" {
		tags[pixel.TagCreator] = h.Owner
	}
	if h.Comments != "" {
		tags[pixel.TagDescription] = h.Comments
	}
	if h.CapDate != "" {
		tags[pixel.TagTime] = h.CapDate
	}
	if h.UTCOffset != nil {
		tags[pixel.TagUTCOffset] = strconv.FormatFloat(float64(*h.UTCOffset), 'g', -1, 32)
	}
	if tc := h.TimeCode; tc != nil {
		tags[pixel.TagTimecode] = sequence.TimecodeToString(
			sequence.TimeToTimecode(tc.Hours(), tc.Minutes(), tc.Seconds(), tc.Frame()))
	}
	if k := h.KeyCode; k != nil {
		tags[pixel.TagKeycode] = sequence.KeycodeToString(sequence.Keycode{
			ID: int(k.FilmMfcCode), Type: int(k.FilmType), Prefix: int(k.Prefix),
			Count: int(k.Count), Offset: int(k.PerfOffset),
		})
	}
	if c := h.Chromaticities; c != nil {
		tags[TagChromaticities] = formatChromaticities(*c)
	}
	return tags
}

func (f *file) speed() (sequence.Speed, bool) {
	r := f.headers[0].FramesPerSecond
	if r == nil || r.Num <= 0 || r.Denom == 0 || r.Denom > math.MaxInt32 {
		return sequence.Speed{}, false
	}
	return sequence.NewSpeed(int(r.Num), int(r.Denom)), true
}

func formatChromaticities(c openexr.Chromaticities) string {
	values := []float32{c.RedX, c.RedY, c.GreenX, c.GreenY, c.BlueX, c.BlueY, c.WhiteX, c.WhiteY}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return strings.Join(parts, " ")
}

func parseChromaticities(s string) (openexr.Chromaticities, error) {
	parts := strings.Fields(s)
	if len(parts) != 8 {
		return openexr.Chromaticities{}, fmt.Errorf("want 8 values, got %d", len(parts))
	}
	var v [8]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 32)
		if err != nil {
			return openexr.Chromaticities{}, err
		}
		v[i] = float32(f)
	}
	return openexr.Chromaticities{
		RedX: v[0], RedY: v[1], GreenX: v[2], GreenY: v[3],
		BlueX: v[4], BlueY: v[5], WhiteX: v[6], WhiteY: v[7],
	}, nil
}

func (c *codec) DecodeInfo(path string) (imageio.Info, error) {
	f, err := readHead(path)
	if err != nil {
		return imageio.Info{}, imageio.NewError("open", path, err)
	}
	info := imageio.NewInfo(path, f.layers[0].Info)
	info.Layers = info.Layers[:0]
	for _, l := range f.layers {
		info.Layers = append(info.Layers, l.Info)
	}
	info.Tags = f.tags()
	if speed, ok := f.speed(); ok {
		info.Sequence.Speed = speed
	}
	return info, nil
}

func (c *codec) Decode(path string) (*pixel.Image, error) {
	return c.DecodeLayer(path, 0)
}

// DecodeLayer implements imageio.LayerDecoder.
func (c *codec) DecodeLayer(path string, layer int) (*pixel.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, imageio.NewError("read", path, err)
	}
	f, err := parseFile(data)
	if err != nil {
		return nil, imageio.NewError("read", path, err)
	}
	layer = min(max(layer, 0), len(f.layers)-1)
	img, err := f.readLayer(f.layers[layer])
	if err != nil {
		return nil, imageio.NewError("read", path, err)
	}
	img.Tags = f.tags()

	logrus.WithFields(logrus.Fields{
		"function": "codec.DecodeLayer",
		"file":     path,
		"layer":    img.Name,
		"type":     img.Type.String(),
	}).Debug("Decoded EXR layer")
	return img, nil
}

func (c *codec) Encode(path string, img *pixel.Image) error {
	data, err := c.encode(img)
	if err != nil {
		return imageio.NewError("write", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return imageio.NewError("write", path, err)
	}
	return nil
}

// encode stores img as a single part scanline file.
func (c *codec) encode(img *pixel.Image) ([]byte, error) {
	out := imageio.Stored(img, pixel.Info{
		Name:   img.Name,
		Type:   writeType(img.Type),
		Endian: pixel.EndianLSB,
		Align:  1,
	})
	h, slot := imageHeader(out, c.opts.Compression)
	c.setAttributes(h, img.Tags)
	chunks, err := encodeChunks(h, out, slot)
	if err != nil {
		return nil, err
	}
	return assemble([]*Header{h}, [][][]byte{chunks})
}

// imageHeader describes a little endian F16 or F32 image. slot maps each
// channel of the header to its index within a pixel.
func imageHeader(img *pixel.Image, compression Compression) (*Header, []int) {
	h := NewHeader(img.Size.W, img.Size.H, compression)
	kind := PixelFloat
	if img.Type.BitDepth() == 16 {
		kind = PixelHalf
	}
	names := writeChannels(img.Type.Channels())
	for _, n := range names {
		h.Channels = append(h.Channels, Channel{Name: n, Type: kind, XSampling: 1, YSampling: 1})
	}
	h.Channels = sortedChannels(h.Channels)
	slot := make([]int, len(h.Channels))
	for i, ch := range h.Channels {
		for s, n := range names {
			if n == ch.Name {
				slot[i] = s
			}
		}
	}
	return h, slot
}

// encodeChunks packs the scanlines of img into chunks on the shared
// thread pool. Each chunk starts with its first scanline and size.
func encodeChunks(h *Header, img *pixel.Image, slot []int) ([][]byte, error) {
	lines := h.Compression.LinesPerChunk()
	chunks := make([][]byte, h.chunks())
	errs := make([]error, len(chunks))
	step := img.Type.BitDepth() / 8
	px := img.Type.ByteCount()
	width := img.Size.W

	pool := imageio.AcquireThreadPool(0)
	defer pool.Release()
	pool.Rows(len(chunks), func(c0, c1 int) {
		for ci := c0; ci < c1; ci++ {
			y0 := ci * lines
			n := min(lines, img.Size.H-y0)
			raw := make([]byte, 0, n*width*px)
			for y := y0; y < y0+n; y++ {
				row := img.Scanline(y)
				for _, s := range slot {
					for x := 0; x < width; x++ {
						off := x*px + s*step
						raw = append(raw, row[off:off+step]...)
					}
				}
			}
			data, err := compressChunk(h.Compression, raw)
			if err != nil {
				errs[ci] = err
				continue
			}
			if len(data) >= len(raw) {
				data = raw
			}
			chunk := binary.LittleEndian.AppendUint32(nil, uint32(h.DataWindow.Min.Y+int32(y0)))
			chunk = binary.LittleEndian.AppendUint32(chunk, uint32(len(data)))
			chunks[ci] = append(chunk, data...)
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return chunks, nil
}

// assemble writes the headers, one offset table per part and the chunks of
// every part in order. Chunks of multi-part files are prefixed with their
// part number.
func assemble(headers []*Header, parts [][][]byte) ([]byte, error) {
	buf, err := AppendHeaders(nil, headers)
	if err != nil {
		return nil, err
	}
	multi := len(headers) > 1
	prefix := 0
	if multi {
		prefix = 4
	}
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	pos := uint64(len(buf) + 8*total)
	for _, p := range parts {
		for _, ch := range p {
			buf = binary.LittleEndian.AppendUint64(buf, pos)
			pos += uint64(prefix + len(ch))
		}
	}
	for i, p := range parts {
		for _, ch := range p {
			if multi {
				buf = binary.LittleEndian.AppendUint32(buf, uint32(i))
			}
			buf = append(buf, ch...)
		}
	}
	return buf, nil
}

// setAttributes stores tags and the sequence speed as header attributes.
// Values that do not parse are logged and skipped.
func (c *codec) setAttributes(h *Header, tags pixel.Tags) {
	warn := func(tag, value string, err error) {
		logrus.WithFields(logrus.Fields{
			"function": "codec.setAttributes",
			"tag":      tag,
			"value":    value,
			"error":    err.Error(),
		}).Warn("Ignoring tag")
	}
	h.Owner = tags.Get(pixel.TagCreator)
	h.Comments = tags.Get(pixel.TagDescription)
	h.CapDate = tags.Get(pixel.TagTime)
	if v, ok := tags[pixel.TagUTCOffset]; ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 32); err != nil {
			warn(pixel.TagUTCOffset, v, err)
		} else {
			off := float32(f)
			h.UTCOffset = &off
		}
	}
	if v, ok := tags[pixel.TagTimecode]; ok {
		if err := setTimeCode(h, v); err != nil {
			warn(pixel.TagTimecode, v, err)
		}
	}
	if v, ok := tags[pixel.TagKeycode]; ok {
		if k, err := sequence.StringToKeycode(v); err != nil {
			warn(pixel.TagKeycode, v, err)
		} else {
			h.KeyCode = &openexr.KeyCode{
				FilmMfcCode: int32(k.ID), FilmType: int32(k.Type), Prefix: int32(k.Prefix),
				Count: int32(k.Count), PerfOffset: int32(k.Offset),
				PerfsPerFrame: 4, PerfsPerCount: 64,
			}
		}
	}
	chroma := openexr.DefaultChromaticities()
	if v, ok := tags[TagChromaticities]; ok {
		if parsed, err := parseChromaticities(v); err != nil {
			warn(TagChromaticities, v, err)
		} else {
			chroma = parsed
		}
	}
	h.Chromaticities = &chroma
	if c.speed.IsValid() {
		h.FramesPerSecond = &openexr.Rational{Num: int32(c.speed.Num), Denom: uint32(c.speed.Den)}
	}
}

func setTimeCode(h *Header, value string) error {
	bcd, err := sequence.StringToTimecode(value)
	if err != nil {
		return err
	}
	hh, mm, ss, ff := sequence.TimecodeToTime(bcd)
	tc, err := openexr.NewTimeCode(hh, mm, ss, ff, false)
	if err != nil {
		return err
	}
	h.TimeCode = &tc
	return nil
}
