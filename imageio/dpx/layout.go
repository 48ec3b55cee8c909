package dpx

import (
	"encoding/binary"
	"fmt"

	"github.com/opd-ai/djv/imageio"
	"github.com/opd-ai/djv/pixel"
	"github.com/opd-ai/djv/sequence"
)

func descriptorChannels(d uint8) int {
	switch d {
	case DescriptorL:
		return 1
	case DescriptorRGB:
		return 3
	case DescriptorRGBA:
		return 4
	}
	return 0
}

func channelDescriptor(channels int) uint8 {
	switch channels {
	case 1:
		return DescriptorL
	case 4:
		return DescriptorRGBA
	}
	return DescriptorRGB
}

func orientMirror(o Orient) pixel.Mirror {
	switch o {
	case OrientRightLeftTopBottom:
		return pixel.Mirror{X: true}
	case OrientLeftRightBottomTop:
		return pixel.Mirror{Y: true}
	case OrientRightLeftBottomTop:
		return pixel.Mirror{X: true, Y: true}
	}
	return pixel.Mirror{}
}

func mirrorOrient(m pixel.Mirror) Orient {
	switch {
	case m.X && m.Y:
		return OrientRightLeftBottomTop
	case m.X:
		return OrientRightLeftTopBottom
	case m.Y:
		return OrientLeftRightBottomTop
	}
	return OrientLeftRightTopBottom
}

func endianOf(order binary.ByteOrder) pixel.Endian {
	if order == binary.LittleEndian {
		return pixel.EndianLSB
	}
	return pixel.EndianMSB
}

// PixelInfo returns the layout of the image data described by h. Only the
// first image element is used.
func (h *Header) PixelInfo(order binary.ByteOrder) (pixel.Info, error) {
	elem := h.Image.Elem[0]
	info := pixel.Info{
		Size:   pixel.Size{W: int(h.Image.Size[0]), H: int(h.Image.Size[1])},
		Mirror: orientMirror(Orient(h.Image.Orient)),
		Endian: endianOf(order),
		Align:  1,
	}

	switch elem.Packing {
	case PackingPack:
		info.Type = pixel.IntType(descriptorChannels(elem.Descriptor), int(elem.BitDepth))
	case PackingTypeA:
		switch elem.BitDepth {
		case 10:
			if elem.Descriptor == DescriptorRGB {
				info.Type = pixel.RGBU10
				info.Align = 4
			}
		case 16:
			info.Type = pixel.IntType(descriptorChannels(elem.Descriptor), 16)
		}
	}
	if info.Type == pixel.TypeNone {
		return pixel.Info{}, fmt.Errorf("%w: descriptor %d, %d bit, packing %d",
			imageio.ErrUnsupportedFile, elem.Descriptor, elem.BitDepth, elem.Packing)
	}
	if elem.Encoding != 0 {
		return pixel.Info{}, fmt.Errorf("%w: encoding %d", imageio.ErrUnsupportedFile, elem.Encoding)
	}
	if validU32(elem.LinePadding) && elem.LinePadding != 0 {
		return pixel.Info{}, fmt.Errorf("%w: line padding %d", imageio.ErrUnsupportedFile, elem.LinePadding)
	}
	if !info.Size.IsValid() {
		return pixel.Info{}, fmt.Errorf("%w: size %s", imageio.ErrUnsupportedFile, info.Size)
	}
	return info, nil
}

// newWriteHeader fills a header for storing an image with layout info.
func newWriteHeader(name string, info pixel.Info, opts Options, tags pixel.Tags, speed sequence.Speed) *Header {
	vs := versions[opts.Version]
	h := NewHeader()

	setText(h.File.Version[:], vs.magic)
	setText(h.File.Name[:], name)
	h.File.ImageOffset = HeaderSize
	h.File.HeaderSize = HeaderSize - industryHeaderSize
	h.File.IndustryHeaderSize = industryHeaderSize
	h.File.UserHeaderSize = 0
	h.File.Size = 0
	h.File.DittoKey = 0
	h.File.EncryptionKey = 0

	h.Image.ElemSize = 1
	h.Image.Orient = uint16(mirrorOrient(info.Mirror))
	h.Image.Size = [2]uint32{uint32(info.Size.W), uint32(info.Size.H)}

	e := &h.Image.Elem[0]
	e.Descriptor = channelDescriptor(info.Type.Channels())
	e.Packing = PackingPack
	if info.Type == pixel.RGBU10 {
		e.Packing = PackingTypeA
	}
	bits := info.Type.BitDepth()
	e.BitDepth = uint8(bits)
	e.DataSign = 0
	e.LowData = 0
	e.HighData = uint32(1)<<bits - 1
	if opts.OutputColorProfile == pixel.ProfileFilmPrint {
		e.Transfer = TransferFilmPrint
		e.Colorimetric = vs.filmPrintColorimetric
	} else {
		e.Transfer = TransferLinear
		e.Colorimetric = vs.linearColorimetric
	}
	e.Encoding = 0
	e.DataOffset = HeaderSize
	e.LinePadding = 0
	e.ElemPadding = 0

	h.SetTags(tags)
	if speed.IsValid() {
		fps := float32(speed.Float())
		if !tags.Has(TagFilmFrameRate) {
			h.Film.FrameRate = fps
		}
		if !tags.Has(TagTVFrameRate) {
			h.TV.FrameRate = fps
		}
	}
	return h
}
