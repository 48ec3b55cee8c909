package dpx

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/opd-ai/djv/fileinfo"
	"github.com/opd-ai/djv/imageio"
	"github.com/opd-ai/djv/pixel"
	"github.com/opd-ai/djv/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCineon(t *testing.T, p *CineonPlugin, path string, img *pixel.Image, speed sequence.Speed) {
	t.Helper()
	info := imageio.NewInfo(path, img.Info)
	info.Sequence.Speed = speed
	w, err := p.OpenWrite(fileinfo.Parse(path, false), info)
	require.NoError(t, err)
	require.NoError(t, w.WriteFrame(img, imageio.FrameInfo{}))
	require.NoError(t, w.Close())
}

func readCineon(t *testing.T, p *CineonPlugin, path string) (*pixel.Image, imageio.Info) {
	t.Helper()
	r, info, err := p.OpenRead(fileinfo.Parse(path, false))
	require.NoError(t, err)
	defer r.Close()
	img, err := r.ReadFrame(imageio.FrameInfo{Frame: -1})
	require.NoError(t, err)
	return img, info
}

func TestCineonLayoutSizes(t *testing.T) {
	assert.Equal(t, 192, binary.Size(CineonFileSection{}))
	assert.Equal(t, 28, binary.Size(CineonChannel{}))
	assert.Equal(t, 488, binary.Size(CineonImageSection{}))
	assert.Equal(t, 32, binary.Size(CineonDataSection{}))
	assert.Equal(t, 312, binary.Size(CineonSourceSection{}))
	assert.Equal(t, 1024, binary.Size(CineonFilmSection{}))
	assert.Equal(t, HeaderSize, binary.Size(CineonHeader{}))
}

func TestNewCineonHeaderIsUndefined(t *testing.T) {
	h := NewCineonHeader()
	assert.Equal(t, uint8(0xff), h.Film.ID)
	assert.Equal(t, uint32(0xffffffff), h.Film.Frame)
	assert.False(t, validF32(h.Source.Gamma))
	assert.Equal(t, make([]byte, 100), h.File.Name[:])
	assert.Empty(t, h.Tags())
}

func TestCineonRoundTrip(t *testing.T) {
	p := NewCineonPlugin()
	require.NoError(t, p.SetOption("output_color_profile", "raw"))
	require.NoError(t, p.SetOption("input_color_profile", "raw"))
	path := filepath.Join(t.TempDir(), "frame.cin")
	src := gradient(5, 3, pixel.RGBU10)
	src.Mirror = pixel.Mirror{Y: true}
	writeCineon(t, p, path, src, sequence.FPS24)

	img, info := readCineon(t, p, path)
	assert.Equal(t, pixel.RGBU10, img.Type)
	assert.Equal(t, pixel.RGBU10, info.Layer(0).Type)
	assert.Equal(t, pixel.Mirror{Y: true}, img.Mirror)
	assert.Equal(t, sequence.FPS24, info.Sequence.Speed)
	assert.True(t, img.ColorProfile.IsRaw())
	assertSamePixels(t, src, img, 0)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, CineonMagic, binary.BigEndian.Uint32(data[:4]))
	assert.Equal(t, uint32(len(data)), binary.BigEndian.Uint32(data[cineonSizeFieldOffset:]))

	h, order, err := ReadCineonHeader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, binary.BigEndian, order)
	assert.Equal(t, CineonVersion, textString(h.File.Version[:]))
	assert.Equal(t, "frame.cin", textString(h.File.Name[:]))
	assert.Equal(t, CineonPackingLong, h.Data.Packing)
	assert.Equal(t, CineonOrientLeftRightBottomTop, h.Image.Orient)
	assert.Equal(t, [2]uint8{0, 2}, h.Image.Channel[1].Descriptor)
}

func TestCineonFilmPrint(t *testing.T) {
	p := NewCineonPlugin()
	path := filepath.Join(t.TempDir(), "log.cin")
	src := gradient(4, 2, pixel.RGBF32)
	src.SetPixel(0, 0, pixel.Color{1, 1, 1, 1})
	writeCineon(t, p, path, src, sequence.Speed{})

	img, info := readCineon(t, p, path)
	assert.Equal(t, pixel.RGBU10, img.Type)
	assert.Equal(t, pixel.ProfileFilmPrint, img.ColorProfile.Type)
	assert.False(t, info.Sequence.Speed.IsValid())
	want := float32(pixel.DefaultFilmPrint.White) / 1023
	assert.InDelta(t, want, img.Pixel(0, 0)[0], 2.0/1023)

	require.NoError(t, p.SetOption("input_color_profile", "raw"))
	img, _ = readCineon(t, p, path)
	assert.True(t, img.ColorProfile.IsRaw())
}

func TestCineonTags(t *testing.T) {
	p := NewCineonPlugin()
	path := filepath.Join(t.TempDir(), "tags.cin")
	keycode := sequence.KeycodeToString(sequence.Keycode{ID: 1, Type: 2, Prefix: 3, Count: 4, Offset: 5})
	src := gradient(2, 2, pixel.RGBU10)
	src.Tags = pixel.Tags{
		pixel.TagTime:        "2024:01:02 03:04:05",
		pixel.TagDescription: "plate",
		pixel.TagKeycode:     keycode,
		TagSourceOffset:      "10 20",
		TagSourceTime:        "2023:12:31",
		TagSourceInputModel:  "scanner",
		TagSourceInputPitch:  "0.5 0.25",
		TagSourceGamma:       "1.7",
		TagFilmFormat:        "Academy",
		TagFilmFrame:         "42",
		TagFilmSlate:         "take 3",
		pixel.TagCreator:     "dropped",
	}
	writeCineon(t, p, path, src, sequence.FPS24)

	img, info := readCineon(t, p, path)
	for _, tags := range []pixel.Tags{info.Tags, img.Tags} {
		assert.Equal(t, "2024:01:02 03:04:05", tags.Get(pixel.TagTime))
		assert.Equal(t, "plate", tags.Get(pixel.TagDescription))
		assert.Equal(t, keycode, tags.Get(pixel.TagKeycode))
		assert.Equal(t, "10 20", tags.Get(TagSourceOffset))
		assert.Equal(t, "2023:12:31", tags.Get(TagSourceTime))
		assert.Equal(t, "scanner", tags.Get(TagSourceInputModel))
		assert.Equal(t, "0.5 0.25", tags.Get(TagSourceInputPitch))
		assert.Equal(t, "1.7", tags.Get(TagSourceGamma))
		assert.Equal(t, "Academy", tags.Get(TagFilmFormat))
		assert.Equal(t, "42", tags.Get(TagFilmFrame))
		assert.Equal(t, "24", tags.Get(TagFilmFrameRate))
		assert.Equal(t, "take 3", tags.Get(TagFilmSlate))
		assert.False(t, tags.Has(pixel.TagCreator))
	}
}

func TestCineonLittleEndianLuminance(t *testing.T) {
	h := NewCineonHeader()
	h.File.ImageOffset = HeaderSize
	setText(h.File.Version[:], CineonVersion)
	h.Image.Orient = CineonOrientLeftRightBottomTop
	h.Image.Channels = 1
	h.Image.Channel[0] = CineonChannel{BitDepth: 8, Size: [2]uint32{3, 2}}
	h.Data = CineonDataSection{Packing: CineonPackingPacked}
	h.Film.FrameRate = 25

	var buf bytes.Buffer
	require.NoError(t, WriteCineonHeader(&buf, h, binary.LittleEndian))
	buf.Write([]byte{0, 51, 102, 153, 204, 255})
	path := filepath.Join(t.TempDir(), "l8.cin")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	img, info := readCineon(t, NewCineonPlugin(), path)
	assert.Equal(t, pixel.LU8, img.Type)
	assert.Equal(t, pixel.EndianLSB, img.Endian)
	assert.Equal(t, pixel.Mirror{Y: true}, img.Mirror)
	assert.Equal(t, []byte{0, 51, 102, 153, 204, 255}, img.Data)
	assert.Equal(t, pixel.ProfileFilmPrint, img.ColorProfile.Type)
	assert.Equal(t, sequence.NewSpeed(25, 1), info.Sequence.Speed)
}

func TestCineonErrors(t *testing.T) {
	dir := t.TempDir()
	c := &cineonCodec{codec{opts: DefaultCineonOptions()}}

	mono10 := NewCineonHeader()
	mono10.Image.Channels = 1
	mono10.Image.Channel[0] = CineonChannel{BitDepth: 10, Size: [2]uint32{2, 2}}
	mono10.Data = CineonDataSection{Packing: CineonPackingLong}
	var mono bytes.Buffer
	require.NoError(t, WriteCineonHeader(&mono, mono10, binary.BigEndian))

	var good bytes.Buffer
	require.NoError(t, WriteCineonHeader(&good, newCineonWriteHeader("x", pixel.NewInfo(pixel.Size{W: 4, H: 4}, pixel.RGBU10), nil, sequence.Speed{}), binary.BigEndian))

	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{"bad magic", bytes.Repeat([]byte{1}, HeaderSize), imageio.ErrBadMagic},
		{"short header", good.Bytes()[:100], imageio.ErrIncompleteFile},
		{"missing data", good.Bytes(), imageio.ErrIncompleteFile},
		{"mono 10 bit", mono.Bytes(), imageio.ErrUnsupportedFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".cin")
			require.NoError(t, os.WriteFile(path, tt.data, 0o644))
			_, err := c.DecodeInfo(path)
			assert.ErrorIs(t, err, tt.err)
			_, err = c.Decode(path)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.ErrorIs(t, c.encode(&bytes.Buffer{}, "x", gradient(1, 1, pixel.RGBU8)), imageio.ErrNotSeekable)
}

func TestCineonOptions(t *testing.T) {
	p := NewCineonPlugin()
	assert.Equal(t, cineonOptionNames, p.OptionNames())
	assert.Equal(t, pixel.ProfileFilmPrint, p.Options().OutputColorProfile)
	require.NoError(t, p.SetOption("output_film_print", "90 700 1.5"))
	assert.Equal(t, pixel.FilmPrint{Black: 90, White: 700, Gamma: 1.5}, p.Options().OutputFilmPrint)
	assert.ErrorIs(t, p.SetOption("endian", "lsb"), imageio.ErrUnknownOption)
	assert.ErrorIs(t, p.SetOption("type", "auto"), imageio.ErrUnknownOption)
	assert.ErrorIs(t, p.SetOption("input_color_profile", "log"), imageio.ErrInvalidOption)
	assert.Equal(t, pixel.RGBU10, p.WriteType(pixel.LAF16))
	assert.True(t, p.Probe("shot.0001.CIN"))
	assert.False(t, p.Probe("shot.0001.dpx"))
}
