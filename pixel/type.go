package pixel

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownType indicates a pixel type label could not be parsed
var ErrUnknownType = errors.New("unknown pixel type")

// Type is a channel layout combined with a sample type.
type Type int

// Pixel types.
const (
	TypeNone Type = iota
	LU8
	LU16
	LF16
	LF32
	LAU8
	LAU16
	LAF16
	LAF32
	RGBU8
	RGBU10
	RGBU16
	RGBF16
	RGBF32
	RGBAU8
	RGBAU16
	RGBAF16
	RGBAF32
	typeCount
)

type format struct {
	label    string
	channels int
	bits     int
	float    bool
}

var formats = [typeCount]format{
	TypeNone: {"None", 0, 0, false},
	LU8:      {"L U8", 1, 8, false},
	LU16:     {"L U16", 1, 16, false},
	LF16:     {"L F16", 1, 16, true},
	LF32:     {"L F32", 1, 32, true},
	LAU8:     {"LA U8", 2, 8, false},
	LAU16:    {"LA U16", 2, 16, false},
	LAF16:    {"LA F16", 2, 16, true},
	LAF32:    {"LA F32", 2, 32, true},
	RGBU8:    {"RGB U8", 3, 8, false},
	RGBU10:   {"RGB U10", 3, 10, false},
	RGBU16:   {"RGB U16", 3, 16, false},
	RGBF16:   {"RGB F16", 3, 16, true},
	RGBF32:   {"RGB F32", 3, 32, true},
	RGBAU8:   {"RGBA U8", 4, 8, false},
	RGBAU16:  {"RGBA U16", 4, 16, false},
	RGBAF16:  {"RGBA F16", 4, 16, true},
	RGBAF32:  {"RGBA F32", 4, 32, true},
}

// Types lists every valid pixel type.
func Types() []Type {
	out := make([]Type, 0, typeCount-1)
	for t := LU8; t < typeCount; t++ {
		out = append(out, t)
	}
	return out
}

// IsValid reports whether t names a pixel type.
func (t Type) IsValid() bool {
	return t > TypeNone && t < typeCount
}

func (t Type) format() format {
	if t < 0 || t >= typeCount {
		return formats[TypeNone]
	}
	return formats[t]
}

// Channels returns the number of channels.
func (t Type) Channels() int { return t.format().channels }

// BitDepth returns the bits per channel.
func (t Type) BitDepth() int { return t.format().bits }

// IsFloat reports whether samples are floating point.
func (t Type) IsFloat() bool { return t.format().float }

// HasAlpha reports whether the type carries an alpha channel.
func (t Type) HasAlpha() bool {
	c := t.Channels()
	return c == 2 || c == 4
}

// ByteCount returns the number of bytes per pixel. RGB U10 packs the three
// channels into one 32 bit word.
func (t Type) ByteCount() int {
	f := t.format()
	if t == RGBU10 {
		return 4
	}
	return f.channels * f.bits / 8
}

// String returns the type label, for example "RGB U16".
func (t Type) String() string {
	return t.format().label
}

// ParseType parses a type label. Case and the separator between layout and
// sample type are ignored, so "rgb_u16", "RGB U16" and "rgbu16" all parse.
func ParseType(s string) (Type, error) {
	key := normalizeLabel(s)
	for t := LU8; t < typeCount; t++ {
		if normalizeLabel(formats[t].label) == key {
			return t, nil
		}
	}
	return TypeNone, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// IntType returns the integer type with the given channel count and bit
// depth, or TypeNone.
func IntType(channels, bits int) Type {
	for t := LU8; t < typeCount; t++ {
		f := formats[t]
		if !f.float && f.channels == channels && f.bits == bits {
			return t
		}
	}
	return TypeNone
}

// FloatType returns the floating point type with the given channel count
// and bit depth, or TypeNone.
func FloatType(channels, bits int) Type {
	for t := LU8; t < typeCount; t++ {
		f := formats[t]
		if f.float && f.channels == channels && f.bits == bits {
			return t
		}
	}
	return TypeNone
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}
