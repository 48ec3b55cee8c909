package y4m

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opd-ai/djv/fileinfo"
	"github.com/opd-ai/djv/imageio"
	"github.com/opd-ai/djv/pixel"
	"github.com/opd-ai/djv/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStreamHeader(t *testing.T) {
	h, err := ParseStreamHeader("YUV4MPEG2 W720 H480 F30000:1001 It A10:11 C422 XYSCSS=422")
	require.NoError(t, err)
	assert.Equal(t, pixel.Size{W: 720, H: 480}, h.Size)
	assert.Equal(t, sequence.FPS2997, h.Speed)
	assert.Equal(t, byte('t'), h.Interlace)
	assert.Equal(t, [2]int{10, 11}, h.Aspect)
	assert.Equal(t, Chroma422, h.Chroma)
	assert.Equal(t, []string{"XYSCSS=422"}, h.Extra)
	assert.Equal(t, "YUV4MPEG2 W720 H480 F30000:1001 It A10:11 C422 XYSCSS=422", h.String())

	h, err = ParseStreamHeader("YUV4MPEG2 W2 H2")
	require.NoError(t, err)
	assert.Equal(t, Chroma420JPEG, h.Chroma)
	assert.Equal(t, sequence.DefaultSpeed, h.Speed)

	h, err = ParseStreamHeader("YUV4MPEG2 W2 H2 F0:0 C420")
	require.NoError(t, err)
	assert.Equal(t, sequence.DefaultSpeed, h.Speed)
	assert.Equal(t, Chroma420JPEG, h.Chroma)
}

func TestParseStreamHeaderErrors(t *testing.T) {
	tests := map[string]error{
		"":                           imageio.ErrBadMagic,
		"YUV4MPEG W2 H2":             imageio.ErrBadMagic,
		"YUV4MPEG2 W2":               imageio.ErrUnsupportedFile,
		"YUV4MPEG2 Wx H2":            imageio.ErrUnsupportedFile,
		"YUV4MPEG2 W2 H2 C411":       imageio.ErrUnsupportedFile,
		"YUV4MPEG2 W2 H2 F25":        imageio.ErrUnsupportedFile,
		"YUV4MPEG2 W2 H2 Ipp":        imageio.ErrUnsupportedFile,
		"YUV4MPEG2 W-2 H2 C444 A1:1": imageio.ErrUnsupportedFile,
	}
	for line, want := range tests {
		_, err := ParseStreamHeader(line)
		assert.ErrorIs(t, err, want, "%q", line)
	}
}

func TestChromaSizes(t *testing.T) {
	size := pixel.Size{W: 3, H: 3}
	assert.Equal(t, int64(9+2*2*2), Chroma420MPEG2.FrameBytes(size))
	assert.Equal(t, int64(9+2*2*3), Chroma422.FrameBytes(size))
	assert.Equal(t, int64(27), Chroma444.FrameBytes(size))
	assert.Equal(t, int64(9), ChromaMono.FrameBytes(size))

	for _, c := range []Chroma{Chroma420JPEG, Chroma420MPEG2, Chroma420PALDV, Chroma422, Chroma444, ChromaMono} {
		parsed, err := ParseChroma(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}
	_, err := ParseChroma("411")
	assert.ErrorIs(t, err, imageio.ErrInvalidOption)
}

func TestYCbCr(t *testing.T) {
	y, cb, cr := toYCbCr(1, 1, 1)
	assert.Equal(t, [3]byte{235, 128, 128}, [3]byte{y, cb, cr})
	y, cb, cr = toYCbCr(0, 0, 0)
	assert.Equal(t, [3]byte{16, 128, 128}, [3]byte{y, cb, cr})

	r, g, b := toRGB(235, 128, 128)
	assert.Equal(t, [3]float32{1, 1, 1}, [3]float32{r, g, b})
	r, g, b = toRGB(0, 128, 128)
	assert.Equal(t, [3]float32{0, 0, 0}, [3]float32{r, g, b})

	for _, c := range [][3]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0.2, 0.5, 0.8}} {
		y, cb, cr := toYCbCr(c[0], c[1], c[2])
		r, g, b := toRGB(y, cb, cr)
		assert.InDelta(t, c[0], r, 0.02)
		assert.InDelta(t, c[1], g, 0.02)
		assert.InDelta(t, c[2], b, 0.02)
	}
}

func solid(size pixel.Size, t pixel.Type, c pixel.Color) *pixel.Image {
	img := pixel.NewImage(pixel.NewInfo(size, t))
	for y := 0; y < size.H; y++ {
		for x := 0; x < size.W; x++ {
			img.SetPixel(x, y, c)
		}
	}
	return img
}

func writeStream(t *testing.T, p *Plugin, path string, speed sequence.Speed, frames ...*pixel.Image) {
	t.Helper()
	info := imageio.NewInfo(path, frames[0].Info)
	info.Sequence = sequence.NewRange(0, int64(len(frames)-1), 0, speed)
	w, err := p.OpenWrite(fileinfo.Parse(path, false), info)
	require.NoError(t, err)
	for i, img := range frames {
		require.NoError(t, w.WriteFrame(img, imageio.FrameInfo{Frame: int64(i)}))
	}
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestRoundTrip(t *testing.T) {
	colours := []pixel.Color{{1, 0, 0, 1}, {0.2, 0.6, 0.4, 1}, {0.9, 0.9, 0.1, 1}}
	for _, chroma := range []Chroma{Chroma420JPEG, Chroma422, Chroma444} {
		t.Run(chroma.String(), func(t *testing.T) {
			p := NewPlugin()
			require.NoError(t, p.SetOption("chroma", chroma.String()))
			size := pixel.Size{W: 5, H: 3}
			var frames []*pixel.Image
			for _, c := range colours {
				frames = append(frames, solid(size, pixel.RGBAF32, c))
			}
			path := filepath.Join(t.TempDir(), "clip.y4m")
			writeStream(t, p, path, sequence.FPS25, frames...)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			header := "YUV4MPEG2 W5 H3 F25:1 Ip A1:1 C" + chroma.String() + "\n"
			assert.True(t, strings.HasPrefix(string(data), header))
			assert.Equal(t, len(header)+3*(6+int(chroma.FrameBytes(size))), len(data))

			r, info, err := p.OpenRead(fileinfo.Parse(path, false))
			require.NoError(t, err)
			defer r.Close()
			assert.Equal(t, pixel.RGBU8, info.Layer(0).Type)
			assert.Equal(t, size, info.Layer(0).Size)
			assert.Equal(t, 3, info.Sequence.Len())
			assert.Equal(t, int64(0), info.Sequence.Start)
			assert.Equal(t, int64(2), info.Sequence.End)
			assert.Equal(t, sequence.FPS25, info.Sequence.Speed)

			for i := 2; i >= 0; i-- {
				img, err := r.ReadFrame(imageio.FrameInfo{Frame: int64(i)})
				require.NoError(t, err)
				for y := 0; y < size.H; y++ {
					for x := 0; x < size.W; x++ {
						got := img.Pixel(x, y)
						for c := 0; c < 3; c++ {
							assert.InDelta(t, colours[i][c], got[c], 0.03)
						}
					}
				}
			}
		})
	}
}

func TestMonoMirror(t *testing.T) {
	p := NewPlugin()
	require.NoError(t, p.SetOption("chroma", "mono"))
	assert.Equal(t, pixel.LU8, p.WriteType(pixel.RGBAU16))

	src := pixel.NewImage(pixel.NewInfo(pixel.Size{W: 2, H: 1}, pixel.LU8))
	copy(src.Data, []byte{0, 255})
	src.Mirror.X = true
	path := filepath.Join(t.TempDir(), "mono.y4m")
	writeStream(t, p, path, sequence.FPS24, src)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "YUV4MPEG2 W2 H1 F24:1 Ip A1:1 Cmono\nFRAME\n\xeb\x10", string(data))

	r, info, err := p.OpenRead(fileinfo.Parse(path, false))
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, pixel.LU8, info.Layer(0).Type)
	img, err := r.ReadFrame(imageio.FrameInfo{})
	require.NoError(t, err)
	assert.Equal(t, []byte{255, 0}, img.Data)
}

func TestHeaderWrittenOnOpen(t *testing.T) {
	p := NewPlugin()
	path := filepath.Join(t.TempDir(), "empty.y4m")
	info := imageio.NewInfo(path, pixel.NewInfo(pixel.Size{W: 4, H: 2}, pixel.RGBU16))
	info.Sequence.Speed = sequence.FPS23976
	w, err := p.OpenWrite(fileinfo.Parse(path, false), info)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "YUV4MPEG2 W4 H2 F24000:1001 Ip A1:1 C420jpeg\n", string(data))

	_, _, err = p.OpenRead(fileinfo.Parse(path, false))
	assert.ErrorIs(t, err, imageio.ErrIncompleteFile)
}

func TestWriteErrors(t *testing.T) {
	p := NewPlugin()
	dir := t.TempDir()
	path := filepath.Join(dir, "w.y4m")
	size := pixel.Size{W: 2, H: 2}
	w, err := p.OpenWrite(fileinfo.Parse(path, false), imageio.NewInfo(path, pixel.NewInfo(size, pixel.RGBU8)))
	require.NoError(t, err)

	img := solid(size, pixel.RGBU8, pixel.Color{})
	require.NoError(t, w.WriteFrame(img, imageio.FrameInfo{Frame: 3}))
	assert.ErrorIs(t, w.WriteFrame(img, imageio.FrameInfo{Frame: 3}), imageio.ErrFrameOrder)
	big := solid(pixel.Size{W: 3, H: 2}, pixel.RGBU8, pixel.Color{})
	assert.ErrorIs(t, w.WriteFrame(big, imageio.FrameInfo{Frame: 4}), pixel.ErrSizeMismatch)
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.WriteFrame(img, imageio.FrameInfo{Frame: 5}), imageio.ErrClosed)

	_, err = p.OpenWrite(fileinfo.Parse(path, false), imageio.Info{})
	assert.ErrorIs(t, err, imageio.ErrUnsupportedFile)
}

// failingFile writes half of the next failures buffers and then fails.
type failingFile struct {
	file
	failures int
}

func (f *failingFile) WriteAt(p []byte, off int64) (int, error) {
	if f.failures > 0 {
		f.failures--
		n, _ := f.file.WriteAt(p[:len(p)/2], off)
		return n, errors.New("disk full")
	}
	return f.file.WriteAt(p, off)
}

func TestWriteFrameRetryAfterPartialWrite(t *testing.T) {
	p := NewPlugin()
	require.NoError(t, p.SetOption("chroma", "444"))
	path := filepath.Join(t.TempDir(), "retry.y4m")
	size := pixel.Size{W: 2, H: 2}
	iw, err := p.OpenWrite(fileinfo.Parse(path, false), imageio.NewInfo(path, pixel.NewInfo(size, pixel.RGBU8)))
	require.NoError(t, err)
	w := iw.(*writer)

	img := solid(size, pixel.RGBU8, pixel.Color{1, 1, 1, 1})
	require.NoError(t, w.WriteFrame(img, imageio.FrameInfo{Frame: 0}))

	w.f = &failingFile{file: w.f, failures: 1}
	assert.Error(t, w.WriteFrame(img, imageio.FrameInfo{Frame: 1}))
	require.NoError(t, w.WriteFrame(img, imageio.FrameInfo{Frame: 1}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	frameBytes := len("FRAME\n") + 3*size.W*size.H
	header := "YUV4MPEG2 W2 H2 F24:1 Ip A1:1 C444\n"
	assert.Len(t, data, len(header)+2*frameBytes)
	assert.Equal(t, 2, strings.Count(string(data), "FRAME\n"))

	r, info, err := p.OpenRead(fileinfo.Parse(path, false))
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 2, info.Sequence.Len())
}

func TestCloseDropsPartialFrame(t *testing.T) {
	p := NewPlugin()
	path := filepath.Join(t.TempDir(), "partial.y4m")
	size := pixel.Size{W: 2, H: 2}
	iw, err := p.OpenWrite(fileinfo.Parse(path, false), imageio.NewInfo(path, pixel.NewInfo(size, pixel.RGBU8)))
	require.NoError(t, err)
	w := iw.(*writer)
	img := solid(size, pixel.RGBU8, pixel.Color{})
	require.NoError(t, w.WriteFrame(img, imageio.FrameInfo{Frame: 0}))
	complete := w.offset

	w.f = &failingFile{file: w.f, failures: 1}
	assert.Error(t, w.WriteFrame(img, imageio.FrameInfo{Frame: 1}))
	require.NoError(t, w.Close())

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, complete, st.Size())
}

func TestReadTruncatedAndCorrupt(t *testing.T) {
	p := NewPlugin()
	dir := t.TempDir()
	size := pixel.Size{W: 2, H: 2}
	path := filepath.Join(dir, "t.y4m")
	img := solid(size, pixel.RGBU8, pixel.Color{0.5, 0.5, 0.5, 1})
	writeStream(t, p, path, sequence.FPS24, img, img)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-1], 0o644))
	r, info, err := p.OpenRead(fileinfo.Parse(path, false))
	require.NoError(t, err)
	assert.Equal(t, 1, info.Sequence.Len())
	_, err = r.ReadFrame(imageio.FrameInfo{Frame: 1})
	assert.ErrorIs(t, err, imageio.ErrIncompleteFile)
	_, err = r.ReadFrame(imageio.FrameInfo{Frame: -1})
	assert.ErrorIs(t, err, imageio.ErrIncompleteFile)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	_, err = r.ReadFrame(imageio.FrameInfo{})
	assert.ErrorIs(t, err, imageio.ErrClosed)

	corrupt := strings.Replace(string(data), "FRAME", "FRAMX", 2)
	corrupt = strings.Replace(corrupt, "FRAMX", "FRAME", 1)
	require.NoError(t, os.WriteFile(path, []byte(corrupt), 0o644))
	_, _, err = p.OpenRead(fileinfo.Parse(path, false))
	assert.ErrorIs(t, err, imageio.ErrUnsupportedFile)

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	_, _, err = p.OpenRead(fileinfo.Parse(path, false))
	assert.ErrorIs(t, err, imageio.ErrIncompleteFile)

	_, _, err = p.OpenRead(fileinfo.Parse(filepath.Join(dir, "missing.y4m"), false))
	assert.Error(t, err)
}

func TestReadProxy(t *testing.T) {
	p := NewPlugin()
	require.NoError(t, p.SetOption("chroma", "444"))
	path := filepath.Join(t.TempDir(), "p.y4m")
	writeStream(t, p, path, sequence.FPS24, solid(pixel.Size{W: 4, H: 4}, pixel.RGBU8, pixel.Color{0, 0, 1, 1}))

	r, _, err := p.OpenRead(fileinfo.Parse(path, false))
	require.NoError(t, err)
	defer r.Close()
	img, err := r.ReadFrame(imageio.FrameInfo{Proxy: pixel.Proxy1_2})
	require.NoError(t, err)
	assert.Equal(t, pixel.Size{W: 2, H: 2}, img.Size)
	assert.Equal(t, pixel.Proxy1_2, img.Proxy)
	assert.InDelta(t, 1, img.Pixel(1, 1)[2], 0.03)
}

func TestPluginOptions(t *testing.T) {
	p := NewPlugin()
	assert.Equal(t, Chroma420JPEG, p.Options().Chroma)
	assert.Equal(t, pixel.RGBU8, p.WriteType(pixel.LU16))
	assert.ErrorIs(t, p.SetOption("chroma", "410"), imageio.ErrInvalidOption)
	assert.ErrorIs(t, p.SetOption("speed", "24"), imageio.ErrUnknownOption)
	assert.Equal(t, []string{"chroma"}, p.OptionNames())
	assert.True(t, p.Capabilities().OneShot)
	assert.True(t, p.Probe("movie.Y4M"))
}
