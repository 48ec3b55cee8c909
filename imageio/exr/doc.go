// Package exr reads and writes OpenEXR scanline files, single and
// multi-part.
//
// Attribute values use the types of github.com/mrjoshuak/go-openexr/exr.
// The container is decoded here: the header attributes, one offset table
// per part, then chunks of scanlines stored channel by channel in name
// order. NONE, RLE, ZIPS and ZIP chunks are decoded. ZIP data is inflated
// with github.com/klauspost/compress/zlib. Tiled and deep files, and the
// PIZ, PXR24, B44 and DWA methods, are reported as unsupported.
//
// Every part contributes layers. Channels sharing a prefix before the last
// dot form a group, and each group yields an RGB(A) or Y(A) layer plus one
// luminance layer per remaining channel. Half channels decode to F16,
// anything else to F32, always least significant byte first. Writing stores
// one part with float types unchanged and integer types as F16.
package exr
