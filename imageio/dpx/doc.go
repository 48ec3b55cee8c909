// Package dpx reads and writes SMPTE 268M Digital Picture Exchange files.
//
// The 2048 byte header is decoded with encoding/binary in the byte order
// given by the magic number:
//
//	"SDPX"  most significant byte first
//	"XPDS"  least significant byte first
//
// Reading runs through the states DetectMagic, ReadFixedHeader,
// ValidateVersion and DeriveColorProfile before the header is Ready.
// Writing emits the header, then the pixel data, then seeks back to patch
// the total file size, so outputs must implement io.WriteSeeker.
//
// Supported layouts are 8 and 16 bit L, RGB and RGBA, and 10 bit RGB filled
// into 32 bit words (packing method A). Header text and numeric fields are
// exposed as image tags.
//
// The package also carries the older Kodak Cineon format, whose 2048 byte
// header is read through the same states and tag tables. Cineon output is
// always big endian 10 bit RGB, converted to film print density unless the
// output profile is raw.
package dpx
