package sequence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

var (
	// ErrInvalidTimecode indicates a timecode string could not be parsed
	ErrInvalidTimecode = errors.New("invalid timecode")

	// ErrInvalidKeycode indicates a keycode string could not be parsed
	ErrInvalidKeycode = errors.New("invalid keycode")

	// ErrInvalidFrame indicates a frame string could not be parsed
	ErrInvalidFrame = errors.New("invalid frame")
)

// Units selects how frame numbers are displayed.
type Units int32

const (
	// UnitsFrames displays plain frame numbers.
	UnitsFrames Units = iota
	// UnitsTimecode displays SMPTE timecode.
	UnitsTimecode
)

// String returns the units label.
func (u Units) String() string {
	switch u {
	case UnitsTimecode:
		return "timecode"
	default:
		return "frames"
	}
}

var units atomic.Int32

// GlobalUnits returns the package display units.
func GlobalUnits() Units {
	return Units(units.Load())
}

// SetUnits changes the package display units.
func SetUnits(u Units) {
	units.Store(int32(u))
}

// TimeToTimecode packs hours, minutes, seconds and frames as BCD.
func TimeToTimecode(hour, minute, second, frame int) uint32 {
	return uint32(hour/10&0x0f)<<28 | uint32(hour%10&0x0f)<<24 |
		uint32(minute/10&0x0f)<<20 | uint32(minute%10&0x0f)<<16 |
		uint32(second/10&0x0f)<<12 | uint32(second%10&0x0f)<<8 |
		uint32(frame/10&0x0f)<<4 | uint32(frame%10&0x0f)
}

// TimecodeToTime unpacks a BCD timecode.
func TimecodeToTime(tc uint32) (hour, minute, second, frame int) {
	hour = int(tc>>28&0x0f)*10 + int(tc>>24&0x0f)
	minute = int(tc>>20&0x0f)*10 + int(tc>>16&0x0f)
	second = int(tc>>12&0x0f)*10 + int(tc>>8&0x0f)
	frame = int(tc>>4&0x0f)*10 + int(tc&0x0f)
	return
}

// MaxTimecodeHours is the largest hour a BCD timecode holds.
const MaxTimecodeHours = 99

// TimecodeFits reports whether frame, or its magnitude when negative, is
// representable as timecode at speed.
func TimecodeFits(frame int64, speed Speed) bool {
	fps := int64(speed.Nominal())
	if frame < 0 {
		frame = -frame
	}
	return fps > 0 && frame < (MaxTimecodeHours+1)*3600*fps
}

// FrameToTimecode converts a frame number to non-drop-frame timecode at
// the nominal rate of speed. Negative frames and invalid speeds yield zero.
// Frames past 99:59:59 clamp to the last representable frame; check
// TimecodeFits first where that matters.
func FrameToTimecode(frame int64, speed Speed) uint32 {
	fps := int64(speed.Nominal())
	if fps <= 0 || frame < 0 {
		return 0
	}
	if !TimecodeFits(frame, speed) {
		frame = (MaxTimecodeHours+1)*3600*fps - 1
	}
	hour := frame / (fps * 3600)
	frame -= hour * fps * 3600
	minute := frame / (fps * 60)
	frame -= minute * fps * 60
	second := frame / fps
	frame -= second * fps
	return TimeToTimecode(int(hour), int(minute), int(second), int(frame))
}

// TimecodeToFrame converts a timecode to a frame number at the nominal rate
// of speed.
func TimecodeToFrame(tc uint32, speed Speed) int64 {
	fps := int64(speed.Nominal())
	if fps <= 0 {
		return 0
	}
	hour, minute, second, frame := TimecodeToTime(tc)
	return (int64(hour)*3600+int64(minute)*60+int64(second))*fps + int64(frame)
}

// TimecodeToString formats a timecode as "HH:MM:SS:FF".
func TimecodeToString(tc uint32) string {
	hour, minute, second, frame := TimecodeToTime(tc)
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hour, minute, second, frame)
}

// StringToTimecode parses one to four colon separated fields. Missing
// leading fields are zero, so "12:05" is twelve seconds and five frames.
func StringToTimecode(s string) (uint32, error) {
	pieces := strings.Split(strings.TrimSpace(s), ":")
	if len(pieces) > 4 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, s)
	}
	var fields [4]int
	offset := 4 - len(pieces)
	for i, p := range pieces {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 99 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, s)
		}
		fields[offset+i] = v
	}
	return TimeToTimecode(fields[0], fields[1], fields[2], fields[3]), nil
}

// FrameToString formats a frame in the package display units.
func FrameToString(frame int64, speed Speed) string {
	return FrameToStringUnits(frame, speed, GlobalUnits())
}

// FrameToStringUnits formats a frame in the given units. Negative frames in
// timecode units carry a leading '-'. Frames beyond the timecode range are
// printed as frame numbers.
func FrameToStringUnits(frame int64, speed Speed, u Units) string {
	if u == UnitsTimecode && TimecodeFits(frame, speed) {
		if frame < 0 {
			return "-" + TimecodeToString(FrameToTimecode(-frame, speed))
		}
		return TimecodeToString(FrameToTimecode(frame, speed))
	}
	return strconv.FormatInt(frame, 10)
}

// StringToFrame parses a frame number or, when the string contains ':', a
// timecode converted at speed.
func StringToFrame(s string, speed Speed) (int64, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ":") {
		neg := strings.HasPrefix(s, "-")
		tc, err := StringToTimecode(strings.TrimPrefix(s, "-"))
		if err != nil {
			return 0, err
		}
		frame := TimecodeToFrame(tc, speed)
		if neg {
			frame = -frame
		}
		return frame, nil
	}
	frame, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFrame, s)
	}
	return frame, nil
}

// Keycode identifies a film frame by manufacturer, stock, prefix, count and
// perforation offset.
type Keycode struct {
	ID     int
	Type   int
	Prefix int
	Count  int
	Offset int
}

// KeycodeToString formats a keycode as "id:type:prefix:count:offset".
func KeycodeToString(k Keycode) string {
	return fmt.Sprintf("%d:%d:%d:%d:%d", k.ID, k.Type, k.Prefix, k.Count, k.Offset)
}

// StringToKeycode parses "id:type:prefix:count:offset".
func StringToKeycode(s string) (Keycode, error) {
	pieces := strings.Split(strings.TrimSpace(s), ":")
	if len(pieces) != 5 {
		return Keycode{}, fmt.Errorf("%w: %q", ErrInvalidKeycode, s)
	}
	var v [5]int
	for i, p := range pieces {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Keycode{}, fmt.Errorf("%w: %q", ErrInvalidKeycode, s)
		}
		v[i] = n
	}
	return Keycode{ID: v[0], Type: v[1], Prefix: v[2], Count: v[3], Offset: v[4]}, nil
}

// LabelTime formats a duration in seconds as "HH:MM:SS".
func LabelTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total/60%60, total%60)
}
