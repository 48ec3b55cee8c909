package dpx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/opd-ai/djv/pixel"
	"github.com/opd-ai/djv/sequence"
	"github.com/sirupsen/logrus"
)

// Header tag names beyond the standard ones.
const (
	TagSourceOffset       = "Source Offset"
	TagSourceCenter       = "Source Center"
	TagSourceSize         = "Source Size"
	TagSourceFile         = "Source File"
	TagSourceTime         = "Source Time"
	TagSourceInputDevice  = "Source Input Device"
	TagSourceInputSerial  = "Source Input Serial"
	TagSourceBorder       = "Source Border"
	TagSourcePixelAspect  = "Source Pixel Aspect"
	TagSourceScanSize     = "Source Scan Size"
	TagFilmFormat         = "Film Format"
	TagFilmFrame          = "Film Frame"
	TagFilmSequence       = "Film Sequence"
	TagFilmHold           = "Film Hold"
	TagFilmFrameRate      = "Film Frame Rate"
	TagFilmShutter        = "Film Shutter"
	TagFilmFrameID        = "Film Frame ID"
	TagFilmSlate          = "Film Slate"
	TagTVInterlace        = "TV Interlace"
	TagTVField            = "TV Field"
	TagTVVideoSignal      = "TV Video Signal"
	TagTVSampleRate       = "TV Sample Rate"
	TagTVFrameRate        = "TV Frame Rate"
	TagTVTimeOffset       = "TV Time Offset"
	TagTVGamma            = "TV Gamma"
	TagTVBlackLevel       = "TV Black Level"
	TagTVBlackGain        = "TV Black Gain"
	TagTVBreakpoint       = "TV Breakpoint"
	TagTVWhiteLevel       = "TV White Level"
	TagTVIntegrationTimes = "TV Integration Times"
	TagColorimetric       = "Colorimetric"
)

// tagField maps one tag to fields of a header of type H.
type tagField[H any] struct {
	name  string
	read  func(h *H) (string, bool)
	write func(h *H, value string) error
}

type number interface {
	uint8 | uint16 | uint32 | float32
}

func textTag[H any](name string, field func(h *H) []byte) tagField[H] {
	return tagField[H]{
		name: name,
		read: func(h *H) (string, bool) {
			b := field(h)
			if !validText(b) {
				return "", false
			}
			return textString(b), true
		},
		write: func(h *H, value string) error {
			setText(field(h), value)
			return nil
		},
	}
}

// numberTag maps space separated values to one or more numeric fields. The
// tag is present only when every field is defined.
func numberTag[H any, T number](name string, valid func(T) bool, fields func(h *H) []*T) tagField[H] {
	return tagField[H]{
		name: name,
		read: func(h *H) (string, bool) {
			ptrs := fields(h)
			parts := make([]string, len(ptrs))
			for i, p := range ptrs {
				if !valid(*p) {
					return "", false
				}
				parts[i] = formatNumber(*p)
			}
			return strings.Join(parts, " "), true
		},
		write: func(h *H, value string) error {
			ptrs := fields(h)
			parts := strings.Fields(value)
			if len(parts) != len(ptrs) {
				return fmt.Errorf("want %d values, got %q", len(ptrs), value)
			}
			vals := make([]T, len(parts))
			for i, s := range parts {
				v, err := parseNumber[T](s)
				if err != nil {
					return err
				}
				vals[i] = v
			}
			for i, p := range ptrs {
				*p = vals[i]
			}
			return nil
		},
	}
}

func formatNumber[T number](v T) string {
	switch x := any(v).(type) {
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	default:
		return strconv.FormatUint(uint64(any(v).(uint32)), 10)
	}
}

func parseNumber[T number](s string) (T, error) {
	var zero T
	bits := 32
	switch any(zero).(type) {
	case float32:
		f, err := strconv.ParseFloat(s, 32)
		return T(f), err
	case uint8:
		bits = 8
	case uint16:
		bits = 16
	}
	u, err := strconv.ParseUint(s, 10, bits)
	return T(u), err
}

func validFrameRate(v float32) bool {
	return validF32(v) && v > minSpeed
}

var tagFields = []tagField[Header]{
	textTag(pixel.TagTime, func(h *Header) []byte { return h.File.Time[:] }),
	textTag(pixel.TagCreator, func(h *Header) []byte { return h.File.Creator[:] }),
	textTag(pixel.TagProject, func(h *Header) []byte { return h.File.Project[:] }),
	textTag(pixel.TagCopyright, func(h *Header) []byte { return h.File.Copyright[:] }),

	numberTag(TagSourceOffset, validU32, func(h *Header) []*uint32 {
		return []*uint32{&h.Source.Offset[0], &h.Source.Offset[1]}
	}),
	numberTag(TagSourceCenter, validF32, func(h *Header) []*float32 {
		return []*float32{&h.Source.Center[0], &h.Source.Center[1]}
	}),
	numberTag(TagSourceSize, validU32, func(h *Header) []*uint32 {
		return []*uint32{&h.Source.Size[0], &h.Source.Size[1]}
	}),
	textTag(TagSourceFile, func(h *Header) []byte { return h.Source.File[:] }),
	textTag(TagSourceTime, func(h *Header) []byte { return h.Source.Time[:] }),
	textTag(TagSourceInputDevice, func(h *Header) []byte { return h.Source.InputDevice[:] }),
	textTag(TagSourceInputSerial, func(h *Header) []byte { return h.Source.InputSerial[:] }),
	numberTag(TagSourceBorder, validU16, func(h *Header) []*uint16 {
		b := &h.Source.Border
		return []*uint16{&b[0], &b[1], &b[2], &b[3]}
	}),
	numberTag(TagSourcePixelAspect, validU32, func(h *Header) []*uint32 {
		return []*uint32{&h.Source.PixelAspect[0], &h.Source.PixelAspect[1]}
	}),
	numberTag(TagSourceScanSize, validF32, func(h *Header) []*float32 {
		return []*float32{&h.Source.ScanSize[0], &h.Source.ScanSize[1]}
	}),

	{name: pixel.TagKeycode, read: readKeycode, write: writeKeycode},
	textTag(TagFilmFormat, func(h *Header) []byte { return h.Film.Format[:] }),
	numberTag(TagFilmFrame, validU32, func(h *Header) []*uint32 { return []*uint32{&h.Film.Frame} }),
	numberTag(TagFilmSequence, validU32, func(h *Header) []*uint32 { return []*uint32{&h.Film.Sequence} }),
	numberTag(TagFilmHold, validU32, func(h *Header) []*uint32 { return []*uint32{&h.Film.Hold} }),
	numberTag(TagFilmFrameRate, validFrameRate, func(h *Header) []*float32 { return []*float32{&h.Film.FrameRate} }),
	numberTag(TagFilmShutter, validF32, func(h *Header) []*float32 { return []*float32{&h.Film.Shutter} }),
	textTag(TagFilmFrameID, func(h *Header) []byte { return h.Film.FrameID[:] }),
	textTag(TagFilmSlate, func(h *Header) []byte { return h.Film.Slate[:] }),

	{name: pixel.TagTimecode, read: readTimecode, write: writeTimecode},
	numberTag(TagTVInterlace, validU8, func(h *Header) []*uint8 { return []*uint8{&h.TV.Interlace} }),
	numberTag(TagTVField, validU8, func(h *Header) []*uint8 { return []*uint8{&h.TV.Field} }),
	numberTag(TagTVVideoSignal, validU8, func(h *Header) []*uint8 { return []*uint8{&h.TV.VideoSignal} }),
	numberTag(TagTVSampleRate, validF32, func(h *Header) []*float32 {
		return []*float32{&h.TV.SampleRate[0], &h.TV.SampleRate[1]}
	}),
	numberTag(TagTVFrameRate, validFrameRate, func(h *Header) []*float32 { return []*float32{&h.TV.FrameRate} }),
	numberTag(TagTVTimeOffset, validF32, func(h *Header) []*float32 { return []*float32{&h.TV.TimeOffset} }),
	numberTag(TagTVGamma, validF32, func(h *Header) []*float32 { return []*float32{&h.TV.Gamma} }),
	numberTag(TagTVBlackLevel, validF32, func(h *Header) []*float32 { return []*float32{&h.TV.BlackLevel} }),
	numberTag(TagTVBlackGain, validF32, func(h *Header) []*float32 { return []*float32{&h.TV.BlackGain} }),
	numberTag(TagTVBreakpoint, validF32, func(h *Header) []*float32 { return []*float32{&h.TV.Breakpoint} }),
	numberTag(TagTVWhiteLevel, validF32, func(h *Header) []*float32 { return []*float32{&h.TV.WhiteLevel} }),
	numberTag(TagTVIntegrationTimes, validF32, func(h *Header) []*float32 {
		return []*float32{&h.TV.IntegrationTimes}
	}),
}

func readKeycode(h *Header) (string, bool) {
	f := &h.Film
	texts := [][]byte{f.ID[:], f.Type[:], f.Prefix[:], f.Count[:], f.Offset[:]}
	var v [5]int
	for i, b := range texts {
		if !validText(b) {
			return "", false
		}
		n, err := strconv.Atoi(strings.TrimSpace(textString(b)))
		if err != nil {
			return "", false
		}
		v[i] = n
	}
	return sequence.KeycodeToString(sequence.Keycode{
		ID: v[0], Type: v[1], Prefix: v[2], Count: v[3], Offset: v[4],
	}), true
}

func writeKeycode(h *Header, value string) error {
	k, err := sequence.StringToKeycode(value)
	if err != nil {
		return err
	}
	setText(h.Film.ID[:], fmt.Sprintf("%02d", k.ID))
	setText(h.Film.Type[:], fmt.Sprintf("%02d", k.Type))
	setText(h.Film.Prefix[:], fmt.Sprintf("%06d", k.Prefix))
	setText(h.Film.Count[:], fmt.Sprintf("%04d", k.Count))
	setText(h.Film.Offset[:], fmt.Sprintf("%02d", k.Offset))
	return nil
}

// The timecode field is BCD and routinely exceeds the generic integer
// ceiling, so only the all-ones value marks it undefined.
func readTimecode(h *Header) (string, bool) {
	if h.TV.Timecode == 0xffffffff {
		return "", false
	}
	return sequence.TimecodeToString(h.TV.Timecode), true
}

func writeTimecode(h *Header, value string) error {
	tc, err := sequence.StringToTimecode(value)
	if err != nil {
		return err
	}
	h.TV.Timecode = tc
	return nil
}

// readTags returns the defined fields of h as image tags.
func readTags[H any](h *H, fields []tagField[H]) pixel.Tags {
	tags := pixel.Tags{}
	for _, f := range fields {
		if v, ok := f.read(h); ok {
			tags[f.name] = v
		}
	}
	return tags
}

// writeTags stores tags into h. Values that do not parse are logged and
// skipped.
func writeTags[H any](h *H, fields []tagField[H], tags pixel.Tags) {
	for _, f := range fields {
		value, ok := tags[f.name]
		if !ok {
			continue
		}
		if err := f.write(h, value); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "writeTags",
				"tag":      f.name,
				"value":    value,
				"error":    err.Error(),
			}).Warn("Ignoring tag")
		}
	}
}

// Tags returns the defined header fields as image tags.
func (h *Header) Tags() pixel.Tags {
	return readTags(h, tagFields)
}

// SetTags stores tags into the header. Values that do not parse are logged
// and skipped.
func (h *Header) SetTags(tags pixel.Tags) {
	writeTags(h, tagFields, tags)
}

// Speed returns the frame rate stored in the film or television sections.
// The television rate wins when both are set.
func (h *Header) Speed() (sequence.Speed, bool) {
	var fps float32
	if validFrameRate(h.Film.FrameRate) {
		fps = h.Film.FrameRate
	}
	if validFrameRate(h.TV.FrameRate) {
		fps = h.TV.FrameRate
	}
	if fps == 0 {
		return sequence.Speed{}, false
	}
	return sequence.SpeedFromFloat(float64(fps)), true
}
