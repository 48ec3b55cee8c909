package y4m

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/opd-ai/djv/imageio"
	"github.com/opd-ai/djv/pixel"
	"github.com/opd-ai/djv/sequence"
)

const (
	streamMagic = "YUV4MPEG2"
	frameMagic  = "FRAME"

	// maxLineLength bounds stream and frame header lines.
	maxLineLength = 4096
)

// Chroma is the chroma subsampling of a stream.
type Chroma int

// Chroma modes. The 4:2:0 variants differ only in chroma siting, which is
// not modelled; they are resampled the same way.
const (
	Chroma420JPEG Chroma = iota
	Chroma420MPEG2
	Chroma420PALDV
	Chroma422
	Chroma444
	ChromaMono
)

var chromaLabels = [...]string{"420jpeg", "420mpeg2", "420paldv", "422", "444", "mono"}

func (c Chroma) String() string {
	if c < 0 || int(c) >= len(chromaLabels) {
		return fmt.Sprintf("Chroma(%d)", int(c))
	}
	return chromaLabels[c]
}

// ParseChroma parses a chroma label. "420" is an alias for "420jpeg".
func ParseChroma(s string) (Chroma, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "420" {
		return Chroma420JPEG, nil
	}
	for i, label := range chromaLabels {
		if label == s {
			return Chroma(i), nil
		}
	}
	return 0, fmt.Errorf("%w: chroma %q", imageio.ErrInvalidOption, s)
}

// PlaneSize returns the size of each chroma plane for a frame of size s.
// Mono streams have no chroma planes.
func (c Chroma) PlaneSize(s pixel.Size) (int, int) {
	switch c {
	case ChromaMono:
		return 0, 0
	case Chroma444:
		return s.W, s.H
	case Chroma422:
		return (s.W + 1) / 2, s.H
	default:
		return (s.W + 1) / 2, (s.H + 1) / 2
	}
}

// FrameBytes returns the payload size of one frame.
func (c Chroma) FrameBytes(s pixel.Size) int64 {
	cw, ch := c.PlaneSize(s)
	return int64(s.W)*int64(s.H) + 2*int64(cw)*int64(ch)
}

// StreamHeader is the first line of a YUV4MPEG2 stream.
type StreamHeader struct {
	Size      pixel.Size
	Speed     sequence.Speed
	Interlace byte
	Aspect    [2]int
	Chroma    Chroma
	// Extra holds unrecognized parameters, including X extensions, in
	// their original spelling.
	Extra []string
}

// NewStreamHeader creates a progressive header with square pixels.
func NewStreamHeader(size pixel.Size, speed sequence.Speed, chroma Chroma) StreamHeader {
	return StreamHeader{
		Size:      size,
		Speed:     speed,
		Interlace: 'p',
		Aspect:    [2]int{1, 1},
		Chroma:    chroma,
	}
}

// String formats the header without the trailing newline.
func (h StreamHeader) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s W%d H%d F%d:%d I%c A%d:%d C%s",
		streamMagic, h.Size.W, h.Size.H, h.Speed.Num, h.Speed.Den,
		h.Interlace, h.Aspect[0], h.Aspect[1], h.Chroma)
	for _, x := range h.Extra {
		sb.WriteByte(' ')
		sb.WriteString(x)
	}
	return sb.String()
}

// ParseStreamHeader parses a stream header line. A missing chroma tag
// means 4:2:0 with JPEG siting; a missing rate means the default speed.
func ParseStreamHeader(line string) (StreamHeader, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != streamMagic {
		return StreamHeader{}, fmt.Errorf("%w: %.16q", imageio.ErrBadMagic, line)
	}
	h := StreamHeader{Speed: sequence.DefaultSpeed, Interlace: 'p', Chroma: Chroma420JPEG}
	for _, f := range fields[1:] {
		value := f[1:]
		var err error
		switch f[0] {
		case 'W':
			h.Size.W, err = strconv.Atoi(value)
		case 'H':
			h.Size.H, err = strconv.Atoi(value)
		case 'F':
			var num, den int
			num, den, err = ratio(value)
			if err == nil && num > 0 && den > 0 {
				h.Speed = sequence.NewSpeed(num, den)
			}
		case 'I':
			if len(value) != 1 {
				err = fmt.Errorf("interlace %q", value)
			} else {
				h.Interlace = value[0]
			}
		case 'A':
			h.Aspect[0], h.Aspect[1], err = ratio(value)
		case 'C':
			var c Chroma
			c, err = ParseChroma(value)
			if err != nil {
				return StreamHeader{}, fmt.Errorf("%w: chroma %q", imageio.ErrUnsupportedFile, value)
			}
			h.Chroma = c
		default:
			h.Extra = append(h.Extra, f)
		}
		if err != nil {
			return StreamHeader{}, fmt.Errorf("%w: parameter %q: %v", imageio.ErrUnsupportedFile, f, err)
		}
	}
	if !h.Size.IsValid() {
		return StreamHeader{}, fmt.Errorf("%w: size %s", imageio.ErrUnsupportedFile, h.Size)
	}
	return h, nil
}

func ratio(s string) (int, int, error) {
	a, b, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("ratio %q", s)
	}
	num, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, err
	}
	den, err := strconv.Atoi(b)
	if err != nil {
		return 0, 0, err
	}
	return num, den, nil
}
