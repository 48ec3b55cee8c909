package dpx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/opd-ai/djv/imageio"
	"github.com/opd-ai/djv/pixel"
	"github.com/sirupsen/logrus"
)

// HeaderSize is the byte size of the fixed header. Image data follows it.
const HeaderSize = 2048

const (
	industryHeaderSize = 384
	sizeFieldOffset    = 12
	maxElements        = 8
)

// Magic numbers.
const (
	MagicMSB = "SDPX"
	MagicLSB = "XPDS"
)

// Orient is the image orientation code.
type Orient uint16

// Orientations.
const (
	OrientLeftRightTopBottom Orient = iota
	OrientRightLeftTopBottom
	OrientLeftRightBottomTop
	OrientRightLeftBottomTop
	OrientTopBottomLeftRight
	OrientTopBottomRightLeft
	OrientBottomTopLeftRight
	OrientBottomTopRightLeft
)

// Channel descriptors.
const (
	DescriptorUser uint8 = 0
	DescriptorR    uint8 = 1
	DescriptorG    uint8 = 2
	DescriptorB    uint8 = 3
	DescriptorA    uint8 = 4
	DescriptorL    uint8 = 6
	DescriptorRGB  uint8 = 50
	DescriptorRGBA uint8 = 51
	DescriptorABGR uint8 = 52
)

// Transfer characteristics.
const (
	TransferUser      uint8 = 0
	TransferFilmPrint uint8 = 1
	TransferLinear    uint8 = 2
	TransferLog       uint8 = 3
	TransferVideo     uint8 = 4
)

// Component packing.
const (
	PackingPack  uint16 = 0
	PackingTypeA uint16 = 1
	PackingTypeB uint16 = 2
)

// FileSection is the generic file information. 768 bytes.
type FileSection struct {
	Magic              [4]byte
	ImageOffset        uint32
	Version            [8]byte
	Size               uint32
	DittoKey           uint32
	HeaderSize         uint32
	IndustryHeaderSize uint32
	UserHeaderSize     uint32
	Name               [100]byte
	Time               [24]byte
	Creator            [100]byte
	Project            [200]byte
	Copyright          [200]byte
	EncryptionKey      uint32
	Pad                [104]byte
}

// Element describes one image element. 72 bytes.
type Element struct {
	DataSign     uint32
	LowData      uint32
	LowQuantity  float32
	HighData     uint32
	HighQuantity float32
	Descriptor   uint8
	Transfer     uint8
	Colorimetric uint8
	BitDepth     uint8
	Packing      uint16
	Encoding     uint16
	DataOffset   uint32
	LinePadding  uint32
	ElemPadding  uint32
	Description  [32]byte
}

// ImageSection is the image information. 640 bytes.
type ImageSection struct {
	Orient   uint16
	ElemSize uint16
	Size     [2]uint32
	Elem     [maxElements]Element
	Pad      [52]byte
}

// SourceSection is the image source information. 256 bytes.
type SourceSection struct {
	Offset      [2]uint32
	Center      [2]float32
	Size        [2]uint32
	File        [100]byte
	Time        [24]byte
	InputDevice [32]byte
	InputSerial [32]byte
	Border      [4]uint16
	PixelAspect [2]uint32
	ScanSize    [2]float32
	Pad         [20]byte
}

// FilmSection is the motion picture film information. 256 bytes.
type FilmSection struct {
	ID        [2]byte
	Type      [2]byte
	Offset    [2]byte
	Prefix    [6]byte
	Count     [4]byte
	Format    [32]byte
	Frame     uint32
	Sequence  uint32
	Hold      uint32
	FrameRate float32
	Shutter   float32
	FrameID   [32]byte
	Slate     [100]byte
	Pad       [56]byte
}

// TVSection is the television information. 128 bytes.
type TVSection struct {
	Timecode         uint32
	UserBits         uint32
	Interlace        uint8
	Field            uint8
	VideoSignal      uint8
	Pad              uint8
	SampleRate       [2]float32
	FrameRate        float32
	TimeOffset       float32
	Gamma            float32
	BlackLevel       float32
	BlackGain        float32
	Breakpoint       float32
	WhiteLevel       float32
	IntegrationTimes float32
	Pad2             [76]byte
}

// Header is the fixed DPX header.
type Header struct {
	File   FileSection
	Image  ImageSection
	Source SourceSection
	Film   FilmSection
	TV     TVSection
}

// NewHeader returns a header with every numeric field set to the undefined
// value (all bits one) and every text field empty.
func NewHeader() *Header {
	var h Header
	blank := bytes.Repeat([]byte{0xff}, HeaderSize)
	if err := binary.Read(bytes.NewReader(blank), binary.BigEndian, &h); err != nil {
		panic(err)
	}
	clearText(h.File.Version[:], h.File.Name[:], h.File.Time[:], h.File.Creator[:],
		h.File.Project[:], h.File.Copyright[:])
	clearText(h.Source.File[:], h.Source.Time[:], h.Source.InputDevice[:], h.Source.InputSerial[:])
	clearText(h.Film.ID[:], h.Film.Type[:], h.Film.Offset[:], h.Film.Prefix[:], h.Film.Count[:],
		h.Film.Format[:], h.Film.FrameID[:], h.Film.Slate[:])
	return &h
}

func clearText(fields ...[]byte) {
	for _, f := range fields {
		clear(f)
	}
}

// Undefined value detection.
const (
	intMax   = 1000000
	floatMax = 1000000
	minSpeed = 0.000001
)

func validU8(v uint8) bool {
	return v != 0xff
}

func validU16(v uint16) bool {
	return v != 0xffff
}

func validU32(v uint32) bool {
	return v != 0xffffffff && v < intMax
}

func validF32(v float32) bool {
	return math.Float32bits(v) != 0xffffffff && math.Abs(float64(v)) < floatMax
}

// validText reports whether b holds a non-empty printable string.
func validText(b []byte) bool {
	if len(b) == 0 || b[0] == 0 {
		return false
	}
	for _, c := range b {
		if c == 0 {
			break
		}
		if c < 32 || c > 126 {
			return false
		}
	}
	return true
}

func textString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// setText stores s in dst, truncated to fit. A string filling dst is not
// NUL terminated.
func setText(dst []byte, s string) {
	clear(dst)
	copy(dst, s)
}

// Version is the header format version.
type Version int

// Versions.
const (
	Version1_0 Version = iota
	Version2_0
)

type versionSpec struct {
	label string
	magic string
	// colorimetric codes written for each transfer
	filmPrintColorimetric uint8
	linearColorimetric    uint8
	colorimetric          map[uint8]string
}

var versions = [...]versionSpec{
	Version1_0: {
		label:                 "1.0",
		magic:                 "V1.0",
		filmPrintColorimetric: 1,
		linearColorimetric:    0,
		colorimetric: map[uint8]string{
			0:  "User",
			1:  "Film Print",
			4:  "Video",
			5:  "SMPTE 240M",
			6:  "ITU-R 709-1",
			7:  "ITU-R 601-2 B or G",
			8:  "ITU-R 601-2 M",
			9:  "NTSC",
			10: "PAL",
		},
	},
	Version2_0: {
		label:                 "2.0",
		magic:                 "V2.0",
		filmPrintColorimetric: 0,
		linearColorimetric:    1,
		colorimetric: map[uint8]string{
			0:  "User",
			1:  "Film Print",
			4:  "Video",
			5:  "SMPTE 274M",
			6:  "ITU-R 709-4",
			7:  "ITU-R 601-5 B or G",
			8:  "ITU-R 601-5 M",
			9:  "NTSC",
			10: "PAL",
		},
	},
}

// String returns "1.0" or "2.0".
func (v Version) String() string {
	if v < 0 || int(v) >= len(versions) {
		return fmt.Sprintf("Version(%d)", int(v))
	}
	return versions[v].label
}

// ParseVersion parses "1.0" or "2.0". A leading "V" is accepted.
func ParseVersion(s string) (Version, error) {
	for v := range versions {
		if s == versions[v].label || s == versions[v].magic {
			return Version(v), nil
		}
	}
	return Version2_0, fmt.Errorf("%w: version %q", imageio.ErrInvalidOption, s)
}

// Colorimetric returns the label of a colorimetric code for v, or "".
func (v Version) Colorimetric(code uint8) string {
	return versions[v].colorimetric[code]
}

func versionFromHeader(h *Header) (Version, bool) {
	s := textString(h.File.Version[:])
	for v := range versions {
		if s == versions[v].magic {
			return Version(v), true
		}
	}
	return Version2_0, false
}

// ReadState is a step of header decoding.
type ReadState int

// Read states.
const (
	StateDetectMagic ReadState = iota
	StateReadFixedHeader
	StateValidateVersion
	StateDeriveColorProfile
	StateReady
)

var readStateNames = [...]string{
	StateDetectMagic:        "detect magic",
	StateReadFixedHeader:    "read header",
	StateValidateVersion:    "validate version",
	StateDeriveColorProfile: "derive color profile",
	StateReady:              "ready",
}

func (s ReadState) String() string {
	return readStateNames[s]
}

// headerReader decodes a header one state at a time.
type headerReader struct {
	r         io.Reader
	input     InputProfile
	filmPrint pixel.FilmPrint

	state   ReadState
	buf     [HeaderSize]byte
	order   binary.ByteOrder
	header  Header
	version Version
	profile pixel.ColorProfile
}

func newHeaderReader(r io.Reader, input InputProfile, filmPrint pixel.FilmPrint) *headerReader {
	return &headerReader{r: r, input: input, filmPrint: filmPrint}
}

// stateMachine is a header decoder advanced one ReadState at a time.
type stateMachine interface {
	current() ReadState
	step() error
}

// runStates steps m until it is Ready. Errors name the failing state.
func runStates(m stateMachine) error {
	for m.current() != StateReady {
		if err := m.step(); err != nil {
			return fmt.Errorf("%s: %w", m.current(), err)
		}
	}
	return nil
}

func (hr *headerReader) current() ReadState { return hr.state }

func (hr *headerReader) run() error { return runStates(hr) }

func (hr *headerReader) step() error {
	switch hr.state {
	case StateDetectMagic:
		if _, err := io.ReadFull(hr.r, hr.buf[:4]); err != nil {
			return fmt.Errorf("%w: %v", imageio.ErrIncompleteFile, err)
		}
		switch string(hr.buf[:4]) {
		case MagicMSB:
			hr.order = binary.BigEndian
		case MagicLSB:
			hr.order = binary.LittleEndian
		default:
			return fmt.Errorf("%w: %q", imageio.ErrBadMagic, hr.buf[:4])
		}
		hr.state = StateReadFixedHeader

	case StateReadFixedHeader:
		if _, err := io.ReadFull(hr.r, hr.buf[4:]); err != nil {
			return fmt.Errorf("%w: %v", imageio.ErrIncompleteFile, err)
		}
		if err := binary.Read(bytes.NewReader(hr.buf[:]), hr.order, &hr.header); err != nil {
			return err
		}
		hr.state = StateValidateVersion

	case StateValidateVersion:
		v, ok := versionFromHeader(&hr.header)
		if !ok {
			logrus.WithFields(logrus.Fields{
				"function": "headerReader.step",
				"version":  textString(hr.header.File.Version[:]),
				"assuming": v.String(),
			}).Warn("Unknown DPX version")
		}
		hr.version = v
		if hr.header.Image.ElemSize != 1 {
			return fmt.Errorf("%w: %d image elements", imageio.ErrUnsupportedFile, hr.header.Image.ElemSize)
		}
		hr.state = StateDeriveColorProfile

	case StateDeriveColorProfile:
		hr.profile = deriveColorProfile(hr.header.Image.Elem[0].Transfer, hr.input, hr.filmPrint)
		hr.state = StateReady
	}
	return nil
}

func deriveColorProfile(transfer uint8, input InputProfile, filmPrint pixel.FilmPrint) pixel.ColorProfile {
	switch input {
	case InputRaw:
		return pixel.ColorProfile{Type: pixel.ProfileRaw}
	case InputFilmPrint:
		return pixel.ColorProfile{Type: pixel.ProfileFilmPrint, FilmPrint: filmPrint}
	}
	if transfer == TransferFilmPrint {
		return pixel.ColorProfile{Type: pixel.ProfileFilmPrint, FilmPrint: filmPrint}
	}
	return pixel.ColorProfile{Type: pixel.ProfileRaw}
}

// ReadHeader decodes a header from r. The byte order is detected from the
// magic number and returned with the header.
func ReadHeader(r io.Reader) (*Header, binary.ByteOrder, error) {
	hr := newHeaderReader(r, InputAuto, pixel.DefaultFilmPrint)
	if err := hr.run(); err != nil {
		return nil, nil, err
	}
	return &hr.header, hr.order, nil
}

// WriteHeader encodes h to w in the given byte order. The magic number is
// set to match order.
func WriteHeader(w io.Writer, h *Header, order binary.ByteOrder) error {
	out := *h
	if order == binary.LittleEndian {
		copy(out.File.Magic[:], MagicLSB)
	} else {
		copy(out.File.Magic[:], MagicMSB)
	}
	return binary.Write(w, order, &out)
}

// Finish patches the total file size into a written header and leaves the
// offset at the end of the file.
func Finish(ws io.WriteSeeker, order binary.ByteOrder) error {
	return patchSize(ws, order, sizeFieldOffset)
}

// patchSize writes the file length as a 32 bit value at offset.
func patchSize(ws io.WriteSeeker, order binary.ByteOrder, offset int64) error {
	end, err := ws.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if _, err := ws.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	var size [4]byte
	order.PutUint32(size[:], uint32(end))
	if _, err := ws.Write(size[:]); err != nil {
		return err
	}
	_, err = ws.Seek(end, io.SeekStart)
	return err
}
