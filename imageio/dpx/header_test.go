package dpx

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/opd-ai/djv/imageio"
	"github.com/opd-ai/djv/pixel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderLayoutSizes(t *testing.T) {
	assert.Equal(t, 768, binary.Size(FileSection{}))
	assert.Equal(t, 72, binary.Size(Element{}))
	assert.Equal(t, 640, binary.Size(ImageSection{}))
	assert.Equal(t, 256, binary.Size(SourceSection{}))
	assert.Equal(t, 256, binary.Size(FilmSection{}))
	assert.Equal(t, 128, binary.Size(TVSection{}))
	assert.Equal(t, HeaderSize, binary.Size(Header{}))
}

func TestNewHeaderIsUndefined(t *testing.T) {
	h := NewHeader()
	assert.Equal(t, uint32(0xffffffff), h.File.ImageOffset)
	assert.Equal(t, uint16(0xffff), h.Image.Orient)
	assert.Equal(t, uint8(0xff), h.TV.Interlace)
	assert.False(t, validF32(h.Film.FrameRate))
	assert.Equal(t, [24]byte{}, h.File.Time)
	assert.Equal(t, [2]byte{}, h.Film.ID)
	assert.Empty(t, h.Tags())
	_, ok := h.Speed()
	assert.False(t, ok)
}

// randomHeader decodes random bytes into a header that passes the read
// checks.
func randomHeader(r *rand.Rand) *Header {
	buf := make([]byte, HeaderSize)
	r.Read(buf)
	var h Header
	if err := binary.Read(bytes.NewReader(buf), binary.BigEndian, &h); err != nil {
		panic(err)
	}
	setText(h.File.Version[:], "V2.0")
	h.Image.ElemSize = 1
	return &h
}

func encodeHeader(t *testing.T, h *Header, order binary.ByteOrder) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf, h, order))
	require.Equal(t, HeaderSize, buf.Len())
	return buf.Bytes()
}

func TestHeaderRoundTripBothByteOrders(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		h := randomHeader(r)
		for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
			data := encodeHeader(t, h, order)
			got, gotOrder, err := ReadHeader(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, order, gotOrder)

			// Compare canonical encodings so NaN payloads compare bitwise.
			want := *h
			if order == binary.LittleEndian {
				copy(want.File.Magic[:], MagicLSB)
			} else {
				copy(want.File.Magic[:], MagicMSB)
			}
			var a, b bytes.Buffer
			require.NoError(t, binary.Write(&a, binary.BigEndian, &want))
			require.NoError(t, binary.Write(&b, binary.BigEndian, got))
			require.True(t, bytes.Equal(a.Bytes(), b.Bytes()), "iteration %d order %v", i, order)
		}
	}
}

func TestHeaderMagic(t *testing.T) {
	h := NewHeader()
	setText(h.File.Version[:], "V1.0")
	h.Image.ElemSize = 1

	msb := encodeHeader(t, h, binary.BigEndian)
	assert.Equal(t, []byte(MagicMSB), msb[:4])
	lsb := encodeHeader(t, h, binary.LittleEndian)
	assert.Equal(t, []byte(MagicLSB), lsb[:4])

	bad := append([]byte(nil), msb...)
	copy(bad, "CIN!")
	_, _, err := ReadHeader(bytes.NewReader(bad))
	assert.ErrorIs(t, err, imageio.ErrBadMagic)
	assert.Contains(t, err.Error(), StateDetectMagic.String())

	_, _, err = ReadHeader(bytes.NewReader(msb[:100]))
	assert.ErrorIs(t, err, imageio.ErrIncompleteFile)

	_, _, err = ReadHeader(bytes.NewReader(nil))
	assert.ErrorIs(t, err, imageio.ErrIncompleteFile)
}

func TestHeaderReaderStates(t *testing.T) {
	h := NewHeader()
	setText(h.File.Version[:], "V1.0")
	h.Image.ElemSize = 1
	h.Image.Elem[0].Transfer = TransferFilmPrint
	data := encodeHeader(t, h, binary.LittleEndian)

	hr := newHeaderReader(bytes.NewReader(data), InputAuto, pixel.DefaultFilmPrint)
	var seen []ReadState
	for hr.state != StateReady {
		seen = append(seen, hr.state)
		require.NoError(t, hr.step())
	}
	assert.Equal(t, []ReadState{
		StateDetectMagic, StateReadFixedHeader, StateValidateVersion, StateDeriveColorProfile,
	}, seen)
	assert.Equal(t, Version1_0, hr.version)
	assert.Equal(t, pixel.ProfileFilmPrint, hr.profile.Type)
	assert.Equal(t, pixel.DefaultFilmPrint, hr.profile.FilmPrint)
}

func TestHeaderVersionAndElements(t *testing.T) {
	h := NewHeader()
	setText(h.File.Version[:], "V9.9")
	h.Image.ElemSize = 1
	hr := newHeaderReader(bytes.NewReader(encodeHeader(t, h, binary.BigEndian)), InputAuto, pixel.DefaultFilmPrint)
	require.NoError(t, hr.run())
	assert.Equal(t, Version2_0, hr.version)

	h.Image.ElemSize = 2
	_, _, err := ReadHeader(bytes.NewReader(encodeHeader(t, h, binary.BigEndian)))
	assert.ErrorIs(t, err, imageio.ErrUnsupportedFile)
	assert.Contains(t, err.Error(), StateValidateVersion.String())
}

func TestDeriveColorProfile(t *testing.T) {
	fp := pixel.FilmPrint{Black: 100, White: 700, Gamma: 2}
	tests := []struct {
		transfer uint8
		input    InputProfile
		want     pixel.ProfileType
	}{
		{TransferFilmPrint, InputAuto, pixel.ProfileFilmPrint},
		{TransferLinear, InputAuto, pixel.ProfileRaw},
		{TransferFilmPrint, InputRaw, pixel.ProfileRaw},
		{TransferLinear, InputFilmPrint, pixel.ProfileFilmPrint},
	}
	for _, tt := range tests {
		got := deriveColorProfile(tt.transfer, tt.input, fp)
		assert.Equal(t, tt.want, got.Type, "transfer %d input %s", tt.transfer, tt.input)
		if got.Type == pixel.ProfileFilmPrint {
			assert.Equal(t, fp, got.FilmPrint)
		}
	}
}

func TestVersionTable(t *testing.T) {
	v, err := ParseVersion("1.0")
	require.NoError(t, err)
	assert.Equal(t, Version1_0, v)
	v, err = ParseVersion("V2.0")
	require.NoError(t, err)
	assert.Equal(t, Version2_0, v)
	_, err = ParseVersion("3.0")
	assert.ErrorIs(t, err, imageio.ErrInvalidOption)

	assert.Equal(t, "ITU-R 709-1", Version1_0.Colorimetric(6))
	assert.Equal(t, "ITU-R 709-4", Version2_0.Colorimetric(6))
	assert.Equal(t, "", Version2_0.Colorimetric(2))
}

func TestFinishPatchesSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "size.dpx")
	f, err := os.Create(path)
	require.NoError(t, err)

	h := NewHeader()
	setText(h.File.Version[:], "V2.0")
	h.Image.ElemSize = 1
	require.NoError(t, WriteHeader(f, h, binary.LittleEndian))
	_, err = f.Write(make([]byte, 100))
	require.NoError(t, err)
	require.NoError(t, Finish(f, binary.LittleEndian))
	_, err = f.Write([]byte{1})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, HeaderSize+101)
	assert.Equal(t, uint32(HeaderSize+100), binary.LittleEndian.Uint32(data[12:16]))
}

func TestPixelInfo(t *testing.T) {
	base := func() *Header {
		h := NewHeader()
		h.Image.ElemSize = 1
		h.Image.Orient = uint16(OrientLeftRightTopBottom)
		h.Image.Size = [2]uint32{4, 2}
		e := &h.Image.Elem[0]
		e.Descriptor = DescriptorRGB
		e.BitDepth = 8
		e.Packing = PackingPack
		e.Encoding = 0
		e.LinePadding = 0
		return h
	}

	t.Run("orientation", func(t *testing.T) {
		tests := []struct {
			orient Orient
			want   pixel.Mirror
		}{
			{OrientLeftRightTopBottom, pixel.Mirror{}},
			{OrientRightLeftTopBottom, pixel.Mirror{X: true}},
			{OrientLeftRightBottomTop, pixel.Mirror{Y: true}},
			{OrientRightLeftBottomTop, pixel.Mirror{X: true, Y: true}},
			{OrientTopBottomLeftRight, pixel.Mirror{}},
		}
		for _, tt := range tests {
			h := base()
			h.Image.Orient = uint16(tt.orient)
			info, err := h.PixelInfo(binary.BigEndian)
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.Mirror, "orient %d", tt.orient)
			if tt.want != (pixel.Mirror{}) {
				assert.Equal(t, tt.orient, mirrorOrient(tt.want))
			}
		}
	})

	t.Run("types", func(t *testing.T) {
		tests := []struct {
			descriptor uint8
			bits       uint8
			packing    uint16
			want       pixel.Type
			align      int
		}{
			{DescriptorL, 8, PackingPack, pixel.LU8, 1},
			{DescriptorRGB, 8, PackingPack, pixel.RGBU8, 1},
			{DescriptorRGBA, 16, PackingPack, pixel.RGBAU16, 1},
			{DescriptorRGB, 10, PackingTypeA, pixel.RGBU10, 4},
			{DescriptorL, 16, PackingTypeA, pixel.LU16, 1},
		}
		for _, tt := range tests {
			h := base()
			e := &h.Image.Elem[0]
			e.Descriptor, e.BitDepth, e.Packing = tt.descriptor, tt.bits, tt.packing
			info, err := h.PixelInfo(binary.LittleEndian)
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.Type)
			assert.Equal(t, tt.align, info.Align)
			assert.Equal(t, pixel.EndianLSB, info.Endian)
			assert.Equal(t, pixel.Size{W: 4, H: 2}, info.Size)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		mutations := map[string]func(h *Header){
			"descriptor": func(h *Header) { h.Image.Elem[0].Descriptor = DescriptorABGR },
			"l10":        func(h *Header) { h.Image.Elem[0].Descriptor, h.Image.Elem[0].BitDepth = DescriptorL, 10 },
			"packing":    func(h *Header) { h.Image.Elem[0].Packing = PackingTypeB },
			"encoding":   func(h *Header) { h.Image.Elem[0].Encoding = 1 },
			"padding":    func(h *Header) { h.Image.Elem[0].LinePadding = 4 },
			"size":       func(h *Header) { h.Image.Size = [2]uint32{0, 2} },
		}
		for name, mutate := range mutations {
			h := base()
			mutate(h)
			_, err := h.PixelInfo(binary.BigEndian)
			assert.ErrorIs(t, err, imageio.ErrUnsupportedFile, name)
		}

		// Undefined padding counts as none.
		h := base()
		h.Image.Elem[0].LinePadding = 0xffffffff
		_, err := h.PixelInfo(binary.BigEndian)
		assert.NoError(t, err)
	})
}
