package exr

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"

	openexr "github.com/mrjoshuak/go-openexr/exr"
	"github.com/opd-ai/djv/imageio"
	"github.com/sirupsen/logrus"
)

// Magic is the first word of every file.
const Magic uint32 = 20000630

// Version word layout.
const (
	versionNumber = 2
	versionMask   = 0xff
	flagTiled     = 0x200
	flagLongNames = 0x400
	flagNonImage  = 0x800
	flagMultiPart = 0x1000
)

const (
	shortNameLength  = 31
	maxNameLength    = 255
	maxAttributeSize = 1 << 24
	maxParts         = 1024
)

// Part types.
const (
	PartScanline = "scanlineimage"
	PartTiled    = "tiledimage"
)

// PixelType is the sample type of a channel.
type PixelType int32

// Pixel types.
const (
	PixelUint  PixelType = 0
	PixelHalf  PixelType = 1
	PixelFloat PixelType = 2
)

func (t PixelType) size() int {
	if t == PixelHalf {
		return 2
	}
	return 4
}

func (t PixelType) valid() bool {
	return t >= PixelUint && t <= PixelFloat
}

// LineOrder is the order of scanline chunks in a file.
type LineOrder uint8

// Line orders.
const (
	IncreasingY LineOrder = iota
	DecreasingY
	RandomY
)

// Channel is one entry of a channel list.
type Channel struct {
	Name      string
	Type      PixelType
	Linear    bool
	XSampling int32
	YSampling int32
}

func (c Channel) subsampled() bool {
	return c.XSampling > 1 || c.YSampling > 1
}

// samples returns the number of samples the channel stores on scanline y.
func (c Channel) samples(y int32, window openexr.Box2i) int {
	if !c.subsampled() {
		return int(window.Width())
	}
	if c.YSampling > 1 && mod(y, c.YSampling) != 0 {
		return 0
	}
	xs := max(c.XSampling, 1)
	return int(floorDiv(window.Max.X, xs) - floorDiv(window.Min.X-1, xs))
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func mod(a, b int32) int32 {
	return a - floorDiv(a, b)*b
}

// Header holds the attributes of one part. Optional attributes are nil
// when absent.
type Header struct {
	Name               string
	Type               string
	Channels           []Channel
	Compression        Compression
	DataWindow         openexr.Box2i
	DisplayWindow      openexr.Box2i
	LineOrder          LineOrder
	PixelAspectRatio   float32
	ScreenWindowCenter openexr.V2f
	ScreenWindowWidth  float32
	ChunkCount         int32

	Chromaticities  *openexr.Chromaticities
	FramesPerSecond *openexr.Rational
	TimeCode        *openexr.TimeCode
	KeyCode         *openexr.KeyCode
	UTCOffset       *float32
	Owner           string
	Comments        string
	CapDate         string
}

// NewHeader returns a single part scanline header for a width by height
// image with its origin at zero.
func NewHeader(width, height int, compression Compression) *Header {
	window := openexr.Box2i{Max: openexr.V2i{X: int32(width - 1), Y: int32(height - 1)}}
	return &Header{
		Compression:       compression,
		DataWindow:        window,
		DisplayWindow:     window,
		LineOrder:         IncreasingY,
		PixelAspectRatio:  1,
		ScreenWindowWidth: 1,
	}
}

// Width returns the data window width.
func (h *Header) Width() int { return int(h.DataWindow.Width()) }

// Height returns the data window height.
func (h *Header) Height() int { return int(h.DataWindow.Height()) }

// chunks returns the number of entries in the part's offset table.
func (h *Header) chunks() int {
	if h.ChunkCount > 0 {
		return int(h.ChunkCount)
	}
	lines := h.Compression.LinesPerChunk()
	return (h.Height() + lines - 1) / lines
}

// rawSize returns the uncompressed byte count of n scanlines from y.
func (h *Header) rawSize(y int32, n int) int {
	size := 0
	for i := 0; i < n; i++ {
		for _, c := range h.Channels {
			size += c.samples(y+int32(i), h.DataWindow) * c.Type.size()
		}
	}
	return size
}

// attribute types keyed by the attribute names this package understands.
var attributeTypes = map[string]string{
	"channels":           "chlist",
	"compression":        "compression",
	"dataWindow":         "box2i",
	"displayWindow":      "box2i",
	"lineOrder":          "lineOrder",
	"pixelAspectRatio":   "float",
	"screenWindowCenter": "v2f",
	"screenWindowWidth":  "float",
	"name":               "string",
	"type":               "string",
	"chunkCount":         "int",
	"chromaticities":     "chromaticities",
	"framesPerSecond":    "rational",
	"timeCode":           "timecode",
	"keyCode":            "keycode",
	"utcOffset":          "float",
	"owner":              "string",
	"comments":           "string",
	"capDate":            "string",
}

// fields reads little endian values from an attribute payload.
type fields struct {
	b   []byte
	err error
}

func (f *fields) next(n int) []byte {
	if f.err == nil && len(f.b) < n {
		f.err = fmt.Errorf("%w: attribute value too short", imageio.ErrIncompleteFile)
	}
	if f.err != nil {
		return make([]byte, n)
	}
	v := f.b[:n]
	f.b = f.b[n:]
	return v
}

func (f *fields) u8() uint8    { return f.next(1)[0] }
func (f *fields) u32() uint32  { return binary.LittleEndian.Uint32(f.next(4)) }
func (f *fields) i32() int32   { return int32(f.u32()) }
func (f *fields) f32() float32 { return math.Float32frombits(f.u32()) }

func (f *fields) cstring() string {
	if f.err != nil {
		return ""
	}
	i := bytes.IndexByte(f.b, 0)
	if i < 0 {
		f.err = fmt.Errorf("%w: unterminated name", imageio.ErrIncompleteFile)
		return ""
	}
	s := string(f.b[:i])
	f.b = f.b[i+1:]
	return s
}

func (f *fields) box2i() openexr.Box2i {
	var b openexr.Box2i
	b.Min.X, b.Min.Y = f.i32(), f.i32()
	b.Max.X, b.Max.Y = f.i32(), f.i32()
	return b
}

func (f *fields) channels() []Channel {
	var list []Channel
	for f.err == nil {
		name := f.cstring()
		if name == "" {
			break
		}
		c := Channel{Name: name, Type: PixelType(f.i32())}
		c.Linear = f.u8() != 0
		f.next(3)
		c.XSampling, c.YSampling = f.i32(), f.i32()
		if f.err == nil && (!c.Type.valid() || c.XSampling < 1 || c.YSampling < 1) {
			f.err = fmt.Errorf("%w: channel %q type %d sampling %dx%d",
				imageio.ErrUnsupportedFile, name, c.Type, c.XSampling, c.YSampling)
		}
		list = append(list, c)
	}
	return list
}

// set stores one attribute. Unknown names and mismatched types are
// skipped.
func (h *Header) set(name, typ string, value []byte) error {
	if want, ok := attributeTypes[name]; !ok || want != typ {
		return nil
	}
	f := &fields{b: value}
	switch name {
	case "channels":
		h.Channels = f.channels()
	case "compression":
		h.Compression = Compression(f.u8())
	case "dataWindow":
		h.DataWindow = f.box2i()
	case "displayWindow":
		h.DisplayWindow = f.box2i()
	case "lineOrder":
		h.LineOrder = LineOrder(f.u8())
	case "pixelAspectRatio":
		h.PixelAspectRatio = f.f32()
	case "screenWindowCenter":
		h.ScreenWindowCenter = openexr.V2f{X: f.f32(), Y: f.f32()}
	case "screenWindowWidth":
		h.ScreenWindowWidth = f.f32()
	case "name":
		h.Name = string(value)
	case "type":
		h.Type = string(value)
	case "chunkCount":
		h.ChunkCount = f.i32()
	case "chromaticities":
		h.Chromaticities = &openexr.Chromaticities{
			RedX: f.f32(), RedY: f.f32(),
			GreenX: f.f32(), GreenY: f.f32(),
			BlueX: f.f32(), BlueY: f.f32(),
			WhiteX: f.f32(), WhiteY: f.f32(),
		}
	case "framesPerSecond":
		h.FramesPerSecond = &openexr.Rational{Num: f.i32(), Denom: f.u32()}
	case "timeCode":
		tc := openexr.NewTimeCodeFromPacked(f.u32(), f.u32(), openexr.TV60Packing)
		h.TimeCode = &tc
	case "keyCode":
		h.KeyCode = &openexr.KeyCode{
			FilmMfcCode: f.i32(), FilmType: f.i32(), Prefix: f.i32(), Count: f.i32(),
			PerfOffset: f.i32(), PerfsPerFrame: f.i32(), PerfsPerCount: f.i32(),
		}
	case "utcOffset":
		v := f.f32()
		h.UTCOffset = &v
	case "owner":
		h.Owner = string(value)
	case "comments":
		h.Comments = string(value)
	case "capDate":
		h.CapDate = string(value)
	}
	if f.err != nil {
		return fmt.Errorf("attribute %s: %w", name, f.err)
	}
	return nil
}

func readName(r *bufio.Reader) (string, error) {
	b, err := r.ReadBytes(0)
	if err != nil {
		return "", fmt.Errorf("%w: %v", imageio.ErrIncompleteFile, err)
	}
	if len(b)-1 > maxNameLength {
		return "", fmt.Errorf("%w: name longer than %d bytes", imageio.ErrUnsupportedFile, maxNameLength)
	}
	return string(b[:len(b)-1]), nil
}

// readHeader decodes attributes up to the terminating empty name.
func readHeader(r *bufio.Reader) (*Header, error) {
	h := &Header{PixelAspectRatio: 1, ScreenWindowWidth: 1}
	for {
		name, err := readName(r)
		if err != nil {
			return nil, err
		}
		if name == "" {
			break
		}
		typ, err := readName(r)
		if err != nil {
			return nil, err
		}
		var size [4]byte
		if _, err := io.ReadFull(r, size[:]); err != nil {
			return nil, fmt.Errorf("%w: %v", imageio.ErrIncompleteFile, err)
		}
		n := int32(binary.LittleEndian.Uint32(size[:]))
		if n < 0 || n > maxAttributeSize {
			return nil, fmt.Errorf("%w: attribute %s is %d bytes", imageio.ErrUnsupportedFile, name, n)
		}
		value := make([]byte, n)
		if _, err := io.ReadFull(r, value); err != nil {
			return nil, fmt.Errorf("%w: %v", imageio.ErrIncompleteFile, err)
		}
		if err := h.set(name, typ, value); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// validate checks that a decoded header describes a readable part.
func (h *Header) validate() error {
	if len(h.Channels) == 0 {
		return fmt.Errorf("%w: no channels", imageio.ErrUnsupportedFile)
	}
	if h.DataWindow.IsEmpty() || h.DataWindow.Area() > math.MaxInt32 {
		return fmt.Errorf("%w: data window %v", imageio.ErrUnsupportedFile, h.DataWindow)
	}
	if h.Type != "" && h.Type != PartScanline {
		return fmt.Errorf("%w: %s part", imageio.ErrUnsupportedFile, h.Type)
	}
	return nil
}

// ReadHeaders decodes the magic number, the version word and the header
// of every part. It reports whether the file is multi-part.
func ReadHeaders(r *bufio.Reader) ([]*Header, bool, error) {
	var pre [8]byte
	if _, err := io.ReadFull(r, pre[:]); err != nil {
		return nil, false, fmt.Errorf("%w: %v", imageio.ErrIncompleteFile, err)
	}
	if magic := binary.LittleEndian.Uint32(pre[:4]); magic != Magic {
		return nil, false, fmt.Errorf("%w: %#x", imageio.ErrBadMagic, magic)
	}
	version := binary.LittleEndian.Uint32(pre[4:])
	if version&versionMask != versionNumber {
		return nil, false, fmt.Errorf("%w: version %d", imageio.ErrUnsupportedFile, version&versionMask)
	}
	if version&(flagTiled|flagNonImage) != 0 {
		return nil, false, fmt.Errorf("%w: tiled or deep data", imageio.ErrUnsupportedFile)
	}
	multi := version&flagMultiPart != 0

	var headers []*Header
	for {
		if multi {
			b, err := r.Peek(1)
			if err != nil {
				return nil, false, fmt.Errorf("%w: %v", imageio.ErrIncompleteFile, err)
			}
			if b[0] == 0 {
				_, _ = r.ReadByte()
				break
			}
		}
		h, err := readHeader(r)
		if err != nil {
			return nil, false, fmt.Errorf("part %d: %w", len(headers), err)
		}
		if err := h.validate(); err != nil {
			return nil, false, fmt.Errorf("part %d: %w", len(headers), err)
		}
		headers = append(headers, h)
		if !multi {
			break
		}
		if len(headers) > maxParts {
			return nil, false, fmt.Errorf("%w: more than %d parts", imageio.ErrUnsupportedFile, maxParts)
		}
	}
	if len(headers) == 0 {
		return nil, false, fmt.Errorf("%w: no parts", imageio.ErrUnsupportedFile)
	}
	return headers, multi, nil
}

// attribute is one encoded header entry.
type attribute struct {
	name, typ string
	value     []byte
}

func appendU32(b []byte, v uint32) []byte  { return binary.LittleEndian.AppendUint32(b, v) }
func appendI32(b []byte, v int32) []byte   { return appendU32(b, uint32(v)) }
func appendF32(b []byte, v float32) []byte { return appendU32(b, math.Float32bits(v)) }

func appendBox2i(b []byte, box openexr.Box2i) []byte {
	b = appendI32(b, box.Min.X)
	b = appendI32(b, box.Min.Y)
	b = appendI32(b, box.Max.X)
	return appendI32(b, box.Max.Y)
}

func appendChannels(b []byte, list []Channel) []byte {
	for _, c := range sortedChannels(list) {
		b = append(b, c.Name...)
		b = append(b, 0)
		b = appendI32(b, int32(c.Type))
		linear := byte(0)
		if c.Linear {
			linear = 1
		}
		b = append(b, linear, 0, 0, 0)
		b = appendI32(b, max(c.XSampling, 1))
		b = appendI32(b, max(c.YSampling, 1))
	}
	return append(b, 0)
}

// sortedChannels returns the channels in file order, sorted by name.
func sortedChannels(list []Channel) []Channel {
	out := append([]Channel(nil), list...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (h *Header) attributes(multi bool) []attribute {
	attrs := []attribute{
		{"channels", "chlist", appendChannels(nil, h.Channels)},
		{"compression", "compression", []byte{byte(h.Compression)}},
		{"dataWindow", "box2i", appendBox2i(nil, h.DataWindow)},
		{"displayWindow", "box2i", appendBox2i(nil, h.DisplayWindow)},
		{"lineOrder", "lineOrder", []byte{byte(h.LineOrder)}},
		{"pixelAspectRatio", "float", appendF32(nil, h.PixelAspectRatio)},
		{"screenWindowCenter", "v2f", appendF32(appendF32(nil, h.ScreenWindowCenter.X), h.ScreenWindowCenter.Y)},
		{"screenWindowWidth", "float", appendF32(nil, h.ScreenWindowWidth)},
	}
	if multi {
		attrs = append(attrs,
			attribute{"name", "string", []byte(h.Name)},
			attribute{"type", "string", []byte(PartScanline)},
			attribute{"chunkCount", "int", appendI32(nil, int32(h.chunks()))})
	}
	if c := h.Chromaticities; c != nil {
		var b []byte
		for _, v := range []float32{c.RedX, c.RedY, c.GreenX, c.GreenY, c.BlueX, c.BlueY, c.WhiteX, c.WhiteY} {
			b = appendF32(b, v)
		}
		attrs = append(attrs, attribute{"chromaticities", "chromaticities", b})
	}
	if r := h.FramesPerSecond; r != nil {
		attrs = append(attrs, attribute{"framesPerSecond", "rational", appendU32(appendI32(nil, r.Num), r.Denom)})
	}
	if tc := h.TimeCode; tc != nil {
		attrs = append(attrs, attribute{"timeCode", "timecode",
			appendU32(appendU32(nil, tc.TimeAndFlags(openexr.TV60Packing)), tc.UserData())})
	}
	if k := h.KeyCode; k != nil {
		var b []byte
		for _, v := range []int32{k.FilmMfcCode, k.FilmType, k.Prefix, k.Count, k.PerfOffset, k.PerfsPerFrame, k.PerfsPerCount} {
			b = appendI32(b, v)
		}
		attrs = append(attrs, attribute{"keyCode", "keycode", b})
	}
	if h.UTCOffset != nil {
		attrs = append(attrs, attribute{"utcOffset", "float", appendF32(nil, *h.UTCOffset)})
	}
	for _, s := range []struct{ name, value string }{
		{"owner", h.Owner}, {"comments", h.Comments}, {"capDate", h.CapDate},
	} {
		if s.value != "" {
			attrs = append(attrs, attribute{s.name, "string", []byte(s.value)})
		}
	}
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].name < attrs[j].name })
	return attrs
}

// longNames reports whether any attribute or channel name needs the long
// names flag.
func longNames(headers []*Header) bool {
	for _, h := range headers {
		for _, c := range h.Channels {
			if len(c.Name) > shortNameLength {
				return true
			}
		}
	}
	return false
}

// AppendHeaders encodes the magic number, the version word and every part
// header. More than one header produces a multi-part file.
func AppendHeaders(b []byte, headers []*Header) ([]byte, error) {
	multi := len(headers) > 1
	version := uint32(versionNumber)
	if multi {
		version |= flagMultiPart
	}
	if longNames(headers) {
		version |= flagLongNames
	}
	b = appendU32(b, Magic)
	b = appendU32(b, version)
	for _, h := range headers {
		for _, a := range h.attributes(multi) {
			if len(a.name) > maxNameLength {
				return nil, fmt.Errorf("%w: attribute name %q", imageio.ErrUnsupportedFile, a.name)
			}
			b = append(b, a.name...)
			b = append(b, 0)
			b = append(b, a.typ...)
			b = append(b, 0)
			b = appendI32(b, int32(len(a.value)))
			b = append(b, a.value...)
		}
		b = append(b, 0)
	}
	if multi {
		b = append(b, 0)
	}
	logrus.WithFields(logrus.Fields{
		"function": "AppendHeaders",
		"parts":    len(headers),
		"bytes":    len(b),
	}).Debug("Encoded headers")
	return b, nil
}
