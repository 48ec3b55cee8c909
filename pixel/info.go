package pixel

import (
	"encoding/binary"
	"fmt"
)

// Size is an image size in pixels.
type Size struct {
	W int
	H int
}

// IsValid reports whether both dimensions are positive.
func (s Size) IsValid() bool {
	return s.W > 0 && s.H > 0
}

// Aspect returns width divided by height, or zero for an empty size.
func (s Size) Aspect() float64 {
	if s.H == 0 {
		return 0
	}
	return float64(s.W) / float64(s.H)
}

// String formats the size as "WxH".
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.W, s.H)
}

// Mirror flags. X flips horizontally, Y flips vertically.
type Mirror struct {
	X bool
	Y bool
}

// Xor combines two mirror settings.
func (m Mirror) Xor(o Mirror) Mirror {
	return Mirror{X: m.X != o.X, Y: m.Y != o.Y}
}

// Endian is a sample byte order.
type Endian int

// Byte orders.
const (
	EndianMSB Endian = iota
	EndianLSB
)

// String returns "MSB" or "LSB".
func (e Endian) String() string {
	if e == EndianLSB {
		return "LSB"
	}
	return "MSB"
}

// ByteOrder returns the encoding/binary order for e.
func (e Endian) ByteOrder() binary.ByteOrder {
	if e == EndianLSB {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// NativeEndian returns the byte order of the running machine.
func NativeEndian() Endian {
	if binary.NativeEndian.Uint16([]byte{1, 0}) == 1 {
		return EndianLSB
	}
	return EndianMSB
}

// Info describes the shape of a pixel buffer.
type Info struct {
	Name   string
	Size   Size
	Proxy  Proxy
	Type   Type
	Mirror Mirror
	Endian Endian
	// Align is the scanline alignment in bytes; zero is treated as one.
	Align int
}

// NewInfo creates an unmirrored, native endian, byte aligned Info.
func NewInfo(size Size, t Type) Info {
	return Info{Size: size, Type: t, Endian: NativeEndian(), Align: 1}
}

// IsValid reports whether the size and type are usable.
func (i Info) IsValid() bool {
	return i.Size.IsValid() && i.Type.IsValid()
}

// Equal reports whether two buffers share a memory layout. Any difference
// means a conversion is required.
func (i Info) Equal(o Info) bool {
	return i.Name == o.Name &&
		i.Size == o.Size &&
		i.Proxy == o.Proxy &&
		i.Type == o.Type &&
		i.Mirror == o.Mirror &&
		i.Endian == o.Endian &&
		i.align() == o.align()
}

// SameLayout reports whether two buffers store the same pixels the same
// way. Unlike Equal it ignores the proxy level, which only records how the
// buffer was produced.
func (i Info) SameLayout(o Info) bool {
	o.Proxy = i.Proxy
	return i.Equal(o)
}

// ScanlineByteCount returns the bytes in one aligned scanline.
func (i Info) ScanlineByteCount() int {
	n := i.Size.W * i.Type.ByteCount()
	a := i.align()
	return (n + a - 1) / a * a
}

// DataByteCount returns the bytes needed for the whole buffer.
func (i Info) DataByteCount() int {
	return i.ScanlineByteCount() * i.Size.H
}

// String summarizes the info as "1920x1080 RGB U16".
func (i Info) String() string {
	return fmt.Sprintf("%s %s", i.Size, i.Type)
}

func (i Info) align() int {
	if i.Align <= 0 {
		return 1
	}
	return i.Align
}
