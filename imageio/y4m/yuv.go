package y4m

import (
	"github.com/opd-ai/djv/imageio"
	"github.com/opd-ai/djv/pixel"
	"github.com/opd-ai/djv/transform"
)

// frame holds the planes of one YCbCr frame. U and V are empty for mono
// streams.
type frame struct {
	y transform.Plane
	u transform.Plane
	v transform.Plane
}

func newFrame(size pixel.Size, chroma Chroma) *frame {
	f := &frame{y: transform.NewPlane(size.W, size.H)}
	if cw, ch := chroma.PlaneSize(size); cw > 0 {
		f.u = transform.NewPlane(cw, ch)
		f.v = transform.NewPlane(cw, ch)
	}
	return f
}

func (f *frame) planes() []transform.Plane {
	if f.u.Pix == nil {
		return []transform.Plane{f.y}
	}
	return []transform.Plane{f.y, f.u, f.v}
}

// BT.601 studio range.
const (
	lumaOffset   = 16
	lumaRange    = 219
	chromaOffset = 128
	chromaRange  = 224
)

func clampByte(v float32) byte {
	v += 0.5
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

func clampUnit(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// toYCbCr converts normalized RGB to studio range samples.
func toYCbCr(r, g, b float32) (byte, byte, byte) {
	y := 0.299*r + 0.587*g + 0.114*b
	cb := (b - y) / 1.772
	cr := (r - y) / 1.402
	return clampByte(lumaOffset + lumaRange*y),
		clampByte(chromaOffset + chromaRange*cb),
		clampByte(chromaOffset + chromaRange*cr)
}

// toRGB converts studio range samples to normalized RGB.
func toRGB(yy, cb, cr byte) (float32, float32, float32) {
	y := (float32(yy) - lumaOffset) / lumaRange
	u := (float32(cb) - chromaOffset) / chromaRange
	v := (float32(cr) - chromaOffset) / chromaRange
	return clampUnit(y + 1.402*v),
		clampUnit(y - 0.344136*u - 0.714136*v),
		clampUnit(y + 1.772*u)
}

// encode fills f from img, which must match the frame size. Mirror flags
// are applied. Chroma is computed at full resolution and then resampled.
func (f *frame) encode(img *pixel.Image, pool *imageio.ThreadPool) error {
	size := pixel.Size{W: f.y.W, H: f.y.H}
	if f.u.Pix == nil {
		grey := imageio.Stored(img, pixel.NewInfo(size, pixel.LU8))
		pool.Rows(size.H, func(y0, y1 int) {
			for y := y0; y < y1; y++ {
				row := grey.Scanline(y)
				out := f.y.Pix[y*f.y.Stride:]
				for x := 0; x < size.W; x++ {
					out[x] = clampByte(lumaOffset + lumaRange*float32(row[x])/255)
				}
			}
		})
		return nil
	}

	rgb := imageio.Stored(img, pixel.NewInfo(size, pixel.RGBU8))
	cb := transform.NewPlane(size.W, size.H)
	cr := transform.NewPlane(size.W, size.H)
	pool.Rows(size.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := rgb.Scanline(y)
			for x := 0; x < size.W; x++ {
				px := row[3*x : 3*x+3]
				i := y*size.W + x
				f.y.Pix[y*f.y.Stride+x], cb.Pix[i], cr.Pix[i] = toYCbCr(
					float32(px[0])/255, float32(px[1])/255, float32(px[2])/255)
			}
		}
	})
	if err := transform.ScalePlane(cb, f.u); err != nil {
		return err
	}
	return transform.ScalePlane(cr, f.v)
}

// decode converts f to an RGB U8 image, or L U8 for mono streams.
func (f *frame) decode(pool *imageio.ThreadPool) (*pixel.Image, error) {
	size := pixel.Size{W: f.y.W, H: f.y.H}
	if f.u.Pix == nil {
		img := pixel.NewImage(pixel.NewInfo(size, pixel.LU8))
		pool.Rows(size.H, func(y0, y1 int) {
			for y := y0; y < y1; y++ {
				row := img.Scanline(y)
				for x := 0; x < size.W; x++ {
					l := clampUnit((float32(f.y.At(x, y)) - lumaOffset) / lumaRange)
					row[x] = clampByte(l * 255)
				}
			}
		})
		return img, nil
	}

	cb := transform.NewPlane(size.W, size.H)
	cr := transform.NewPlane(size.W, size.H)
	if err := transform.ScalePlane(f.u, cb); err != nil {
		return nil, err
	}
	if err := transform.ScalePlane(f.v, cr); err != nil {
		return nil, err
	}
	img := pixel.NewImage(pixel.NewInfo(size, pixel.RGBU8))
	pool.Rows(size.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := img.Scanline(y)
			for x := 0; x < size.W; x++ {
				r, g, b := toRGB(f.y.At(x, y), cb.At(x, y), cr.At(x, y))
				row[3*x] = clampByte(r * 255)
				row[3*x+1] = clampByte(g * 255)
				row[3*x+2] = clampByte(b * 255)
			}
		}
	})
	return img, nil
}
