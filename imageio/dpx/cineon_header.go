package dpx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/opd-ai/djv/imageio"
	"github.com/opd-ai/djv/pixel"
	"github.com/opd-ai/djv/sequence"
	"github.com/sirupsen/logrus"
)

// CineonMagic is the first word of a Cineon file in its own byte order.
const CineonMagic uint32 = 0x802a5fd7

// CineonVersion is the format version written.
const CineonVersion = "V4.5"

const (
	cineonGenericSize     = 1024
	cineonIndustrySize    = 1024
	cineonSizeFieldOffset = 20
)

// Cineon data packing. Long packing left justifies three 10 bit values in
// every 32 bit word.
const (
	CineonPackingPacked uint8 = 0
	CineonPackingLong   uint8 = 5
)

// Cineon orientations.
const (
	CineonOrientLeftRightTopBottom uint8 = iota
	CineonOrientLeftRightBottomTop
	CineonOrientRightLeftTopBottom
	CineonOrientRightLeftBottomTop
)

// CineonFileSection is the generic file information. 192 bytes.
type CineonFileSection struct {
	Magic              uint32
	ImageOffset        uint32
	HeaderSize         uint32
	IndustryHeaderSize uint32
	UserHeaderSize     uint32
	Size               uint32
	Version            [8]byte
	Name               [100]byte
	Date               [12]byte
	Time               [12]byte
	Pad                [36]byte
}

// CineonChannel describes one channel. 28 bytes.
type CineonChannel struct {
	Descriptor   [2]uint8
	BitDepth     uint8
	Pad          uint8
	Size         [2]uint32
	LowData      float32
	LowQuantity  float32
	HighData     float32
	HighQuantity float32
}

// CineonImageSection is the image information. 488 bytes.
type CineonImageSection struct {
	Orient   uint8
	Channels uint8
	Pad      [2]uint8
	Channel  [maxElements]CineonChannel
	White    [2]float32
	Red      [2]float32
	Green    [2]float32
	Blue     [2]float32
	Label    [200]byte
	Pad2     [28]byte
}

// CineonDataSection is the data format information. 32 bytes.
type CineonDataSection struct {
	Interleave     uint8
	Packing        uint8
	DataSign       uint8
	DataSense      uint8
	LinePadding    uint32
	ChannelPadding uint32
	Pad            [20]byte
}

// CineonSourceSection is the image origination information. 312 bytes.
type CineonSourceSection struct {
	Offset      [2]uint32
	File        [100]byte
	Date        [12]byte
	Time        [12]byte
	InputDevice [64]byte
	InputModel  [32]byte
	InputSerial [32]byte
	InputPitch  [2]float32
	Gamma       float32
	Pad         [40]byte
}

// CineonFilmSection is the motion picture film information. 1024 bytes.
type CineonFilmSection struct {
	ID        uint8
	Type      uint8
	Offset    uint8
	Pad       uint8
	Prefix    uint32
	Count     uint32
	Format    [32]byte
	Frame     uint32
	FrameRate float32
	FrameID   [32]byte
	Slate     [200]byte
	Pad2      [740]byte
}

// CineonHeader is the fixed Cineon header. It has the same size as the
// DPX header.
type CineonHeader struct {
	File   CineonFileSection
	Image  CineonImageSection
	Data   CineonDataSection
	Source CineonSourceSection
	Film   CineonFilmSection
}

// NewCineonHeader returns a header with every numeric field undefined and
// every text field empty.
func NewCineonHeader() *CineonHeader {
	var h CineonHeader
	blank := bytes.Repeat([]byte{0xff}, HeaderSize)
	if err := binary.Read(bytes.NewReader(blank), binary.BigEndian, &h); err != nil {
		panic(err)
	}
	clearText(h.File.Version[:], h.File.Name[:], h.File.Date[:], h.File.Time[:], h.Image.Label[:])
	clearText(h.Source.File[:], h.Source.Date[:], h.Source.Time[:], h.Source.InputDevice[:],
		h.Source.InputModel[:], h.Source.InputSerial[:])
	clearText(h.Film.Format[:], h.Film.FrameID[:], h.Film.Slate[:])
	return &h
}

// cineonReader decodes a Cineon header through the same states as
// headerReader.
type cineonReader struct {
	r         io.Reader
	input     InputProfile
	filmPrint pixel.FilmPrint

	state   ReadState
	buf     [HeaderSize]byte
	order   binary.ByteOrder
	header  CineonHeader
	profile pixel.ColorProfile
}

func (cr *cineonReader) current() ReadState { return cr.state }

func (cr *cineonReader) step() error {
	switch cr.state {
	case StateDetectMagic:
		if _, err := io.ReadFull(cr.r, cr.buf[:4]); err != nil {
			return fmt.Errorf("%w: %v", imageio.ErrIncompleteFile, err)
		}
		switch {
		case binary.BigEndian.Uint32(cr.buf[:4]) == CineonMagic:
			cr.order = binary.BigEndian
		case binary.LittleEndian.Uint32(cr.buf[:4]) == CineonMagic:
			cr.order = binary.LittleEndian
		default:
			return fmt.Errorf("%w: %x", imageio.ErrBadMagic, cr.buf[:4])
		}
		cr.state = StateReadFixedHeader

	case StateReadFixedHeader:
		if _, err := io.ReadFull(cr.r, cr.buf[4:]); err != nil {
			return fmt.Errorf("%w: %v", imageio.ErrIncompleteFile, err)
		}
		if err := binary.Read(bytes.NewReader(cr.buf[:]), cr.order, &cr.header); err != nil {
			return err
		}
		cr.state = StateValidateVersion

	case StateValidateVersion:
		if v := textString(cr.header.File.Version[:]); v != CineonVersion {
			logrus.WithFields(logrus.Fields{
				"function": "cineonReader.step",
				"version":  v,
			}).Debug("Unexpected Cineon version")
		}
		if n := cr.header.Image.Channels; n != 1 && n != 3 {
			return fmt.Errorf("%w: %d channels", imageio.ErrUnsupportedFile, n)
		}
		cr.state = StateDeriveColorProfile

	case StateDeriveColorProfile:
		// Cineon data is printing density unless raw is forced.
		cr.profile = deriveColorProfile(TransferFilmPrint, cr.input, cr.filmPrint)
		cr.state = StateReady
	}
	return nil
}

// ReadCineonHeader decodes a Cineon header from r. The byte order is
// detected from the magic number and returned with the header.
func ReadCineonHeader(r io.Reader) (*CineonHeader, binary.ByteOrder, error) {
	cr := &cineonReader{r: r, filmPrint: pixel.DefaultFilmPrint}
	if err := runStates(cr); err != nil {
		return nil, nil, err
	}
	return &cr.header, cr.order, nil
}

// WriteCineonHeader encodes h to w in the given byte order with the magic
// number set.
func WriteCineonHeader(w io.Writer, h *CineonHeader, order binary.ByteOrder) error {
	out := *h
	out.File.Magic = CineonMagic
	return binary.Write(w, order, &out)
}

func cineonMirror(o uint8) pixel.Mirror {
	switch o {
	case CineonOrientLeftRightBottomTop:
		return pixel.Mirror{Y: true}
	case CineonOrientRightLeftTopBottom:
		return pixel.Mirror{X: true}
	case CineonOrientRightLeftBottomTop:
		return pixel.Mirror{X: true, Y: true}
	}
	return pixel.Mirror{}
}

func mirrorCineon(m pixel.Mirror) uint8 {
	switch {
	case m.X && m.Y:
		return CineonOrientRightLeftBottomTop
	case m.X:
		return CineonOrientRightLeftTopBottom
	case m.Y:
		return CineonOrientLeftRightBottomTop
	}
	return CineonOrientLeftRightTopBottom
}

// PixelInfo returns the layout of the image data. Every channel must share
// the bit depth and size of the first.
func (h *CineonHeader) PixelInfo(order binary.ByteOrder) (pixel.Info, error) {
	n := int(h.Image.Channels)
	first := h.Image.Channel[0]
	for i := 1; i < n; i++ {
		c := h.Image.Channel[i]
		if c.BitDepth != first.BitDepth || c.Size != first.Size {
			return pixel.Info{}, fmt.Errorf("%w: channels differ in depth or size", imageio.ErrUnsupportedFile)
		}
	}
	info := pixel.Info{
		Size:   pixel.Size{W: int(first.Size[0]), H: int(first.Size[1])},
		Mirror: cineonMirror(h.Image.Orient),
		Endian: endianOf(order),
		Align:  1,
	}
	switch {
	case first.BitDepth == 10 && n == 3 && h.Data.Packing == CineonPackingLong:
		info.Type = pixel.RGBU10
		info.Align = 4
	case (first.BitDepth == 8 || first.BitDepth == 16) && h.Data.Packing == CineonPackingPacked:
		info.Type = pixel.IntType(n, int(first.BitDepth))
	}
	if info.Type == pixel.TypeNone {
		return pixel.Info{}, fmt.Errorf("%w: %d channels, %d bit, packing %d",
			imageio.ErrUnsupportedFile, n, first.BitDepth, h.Data.Packing)
	}
	if h.Data.Interleave != 0 {
		return pixel.Info{}, fmt.Errorf("%w: interleave %d", imageio.ErrUnsupportedFile, h.Data.Interleave)
	}
	if validU32(h.Data.LinePadding) && h.Data.LinePadding != 0 {
		return pixel.Info{}, fmt.Errorf("%w: line padding %d", imageio.ErrUnsupportedFile, h.Data.LinePadding)
	}
	if !info.Size.IsValid() || first.Size[0] >= intMax || first.Size[1] >= intMax {
		return pixel.Info{}, fmt.Errorf("%w: size %s", imageio.ErrUnsupportedFile, info.Size)
	}
	return info, nil
}

// Cineon tag names beyond the ones shared with DPX.
const (
	TagSourceInputModel = "Source Input Model"
	TagSourceInputPitch = "Source Input Pitch"
	TagSourceGamma      = "Source Gamma"
)

// dateTimeTag joins a date and a time field with a space.
func dateTimeTag(name string, fields func(h *CineonHeader) (date, time []byte)) tagField[CineonHeader] {
	return tagField[CineonHeader]{
		name: name,
		read: func(h *CineonHeader) (string, bool) {
			date, time := fields(h)
			if !validText(date) {
				return "", false
			}
			if !validText(time) {
				return textString(date), true
			}
			return textString(date) + " " + textString(time), true
		},
		write: func(h *CineonHeader, value string) error {
			date, time := fields(h)
			d, t, _ := strings.Cut(strings.TrimSpace(value), " ")
			setText(date, d)
			setText(time, strings.TrimSpace(t))
			return nil
		},
	}
}

func readCineonKeycode(h *CineonHeader) (string, bool) {
	f := &h.Film
	if !validU8(f.ID) || !validU8(f.Type) || !validU8(f.Offset) || !validU32(f.Prefix) || !validU32(f.Count) {
		return "", false
	}
	return sequence.KeycodeToString(sequence.Keycode{
		ID: int(f.ID), Type: int(f.Type), Prefix: int(f.Prefix), Count: int(f.Count), Offset: int(f.Offset),
	}), true
}

func writeCineonKeycode(h *CineonHeader, value string) error {
	k, err := sequence.StringToKeycode(value)
	if err != nil {
		return err
	}
	for _, v := range []int{k.ID, k.Type, k.Offset} {
		if v < 0 || v >= 0xff {
			return fmt.Errorf("keycode field %d out of range", v)
		}
	}
	h.Film.ID, h.Film.Type, h.Film.Offset = uint8(k.ID), uint8(k.Type), uint8(k.Offset)
	h.Film.Prefix, h.Film.Count = uint32(k.Prefix), uint32(k.Count)
	return nil
}

var cineonTagFields = []tagField[CineonHeader]{
	dateTimeTag(pixel.TagTime, func(h *CineonHeader) ([]byte, []byte) { return h.File.Date[:], h.File.Time[:] }),
	textTag(pixel.TagDescription, func(h *CineonHeader) []byte { return h.Image.Label[:] }),

	numberTag(TagSourceOffset, validU32, func(h *CineonHeader) []*uint32 {
		return []*uint32{&h.Source.Offset[0], &h.Source.Offset[1]}
	}),
	textTag(TagSourceFile, func(h *CineonHeader) []byte { return h.Source.File[:] }),
	dateTimeTag(TagSourceTime, func(h *CineonHeader) ([]byte, []byte) { return h.Source.Date[:], h.Source.Time[:] }),
	textTag(TagSourceInputDevice, func(h *CineonHeader) []byte { return h.Source.InputDevice[:] }),
	textTag(TagSourceInputModel, func(h *CineonHeader) []byte { return h.Source.InputModel[:] }),
	textTag(TagSourceInputSerial, func(h *CineonHeader) []byte { return h.Source.InputSerial[:] }),
	numberTag(TagSourceInputPitch, validF32, func(h *CineonHeader) []*float32 {
		return []*float32{&h.Source.InputPitch[0], &h.Source.InputPitch[1]}
	}),
	numberTag(TagSourceGamma, validF32, func(h *CineonHeader) []*float32 { return []*float32{&h.Source.Gamma} }),

	{name: pixel.TagKeycode, read: readCineonKeycode, write: writeCineonKeycode},
	textTag(TagFilmFormat, func(h *CineonHeader) []byte { return h.Film.Format[:] }),
	numberTag(TagFilmFrame, validU32, func(h *CineonHeader) []*uint32 { return []*uint32{&h.Film.Frame} }),
	numberTag(TagFilmFrameRate, validFrameRate, func(h *CineonHeader) []*float32 {
		return []*float32{&h.Film.FrameRate}
	}),
	textTag(TagFilmFrameID, func(h *CineonHeader) []byte { return h.Film.FrameID[:] }),
	textTag(TagFilmSlate, func(h *CineonHeader) []byte { return h.Film.Slate[:] }),
}

// Tags returns the defined header fields as image tags.
func (h *CineonHeader) Tags() pixel.Tags {
	return readTags(h, cineonTagFields)
}

// SetTags stores tags into the header. Values that do not parse are logged
// and skipped.
func (h *CineonHeader) SetTags(tags pixel.Tags) {
	writeTags(h, cineonTagFields, tags)
}

// Speed returns the film frame rate.
func (h *CineonHeader) Speed() (sequence.Speed, bool) {
	if !validFrameRate(h.Film.FrameRate) {
		return sequence.Speed{}, false
	}
	return sequence.SpeedFromFloat(float64(h.Film.FrameRate)), true
}

// newCineonWriteHeader fills a header for 10 bit RGB data with layout
// info.
func newCineonWriteHeader(name string, info pixel.Info, tags pixel.Tags, speed sequence.Speed) *CineonHeader {
	h := NewCineonHeader()
	h.File.ImageOffset = HeaderSize
	h.File.HeaderSize = cineonGenericSize
	h.File.IndustryHeaderSize = cineonIndustrySize
	h.File.UserHeaderSize = 0
	h.File.Size = 0
	setText(h.File.Version[:], CineonVersion)
	setText(h.File.Name[:], name)

	h.Image.Orient = mirrorCineon(info.Mirror)
	h.Image.Channels = 3
	for i := 0; i < 3; i++ {
		h.Image.Channel[i] = CineonChannel{
			Descriptor:   [2]uint8{0, uint8(i + 1)},
			BitDepth:     10,
			Size:         [2]uint32{uint32(info.Size.W), uint32(info.Size.H)},
			LowData:      0,
			LowQuantity:  0,
			HighData:     1023,
			HighQuantity: 2.048,
		}
	}
	h.Data = CineonDataSection{Packing: CineonPackingLong}

	h.SetTags(tags)
	if speed.IsValid() && !tags.Has(TagFilmFrameRate) {
		h.Film.FrameRate = float32(speed.Float())
	}
	return h
}
