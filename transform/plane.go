package transform

import (
	"errors"
	"fmt"
)

// ErrInvalidPlane indicates a plane whose buffer is too small for its size
var ErrInvalidPlane = errors.New("invalid plane")

// Plane is one 8 bit channel of a planar image, such as the Y, U or V
// plane of a YCbCr frame.
type Plane struct {
	W      int
	H      int
	Stride int
	Pix    []byte
}

// NewPlane allocates a tightly packed plane.
func NewPlane(w, h int) Plane {
	return Plane{W: w, H: h, Stride: w, Pix: make([]byte, w*h)}
}

// At returns the sample at (x, y).
func (p Plane) At(x, y int) byte {
	return p.Pix[y*p.Stride+x]
}

func (p Plane) validate() error {
	if p.W <= 0 || p.H <= 0 || p.Stride < p.W {
		return fmt.Errorf("%w: %dx%d stride %d", ErrInvalidPlane, p.W, p.H, p.Stride)
	}
	if len(p.Pix) < (p.H-1)*p.Stride+p.W {
		return fmt.Errorf("%w: %d bytes for %dx%d stride %d", ErrInvalidPlane, len(p.Pix), p.W, p.H, p.Stride)
	}
	return nil
}

// ScalePlane resizes src into dst with bilinear interpolation. Sample
// centres are aligned, so halving a plane averages pixel pairs and
// doubling it interpolates between neighbours.
func ScalePlane(src, dst Plane) error {
	if err := src.validate(); err != nil {
		return err
	}
	if err := dst.validate(); err != nil {
		return err
	}
	if src.W == dst.W && src.H == dst.H {
		for y := 0; y < dst.H; y++ {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+dst.W], src.Pix[y*src.Stride:y*src.Stride+src.W])
		}
		return nil
	}

	xRatio := float64(src.W) / float64(dst.W)
	yRatio := float64(src.H) / float64(dst.H)

	for y := 0; y < dst.H; y++ {
		y1, fy := sampleAxis(y, yRatio, src.H)
		y2 := y1 + 1
		if y2 >= src.H {
			y2 = src.H - 1
		}
		row1 := src.Pix[y1*src.Stride:]
		row2 := src.Pix[y2*src.Stride:]
		out := dst.Pix[y*dst.Stride:]

		for x := 0; x < dst.W; x++ {
			x1, fx := sampleAxis(x, xRatio, src.W)
			x2 := x1 + 1
			if x2 >= src.W {
				x2 = src.W - 1
			}

			p1 := float64(row1[x1])*(1-fx) + float64(row1[x2])*fx
			p2 := float64(row2[x1])*(1-fx) + float64(row2[x2])*fx
			out[x] = byte(p1*(1-fy) + p2*fy + 0.5)
		}
	}
	return nil
}

// sampleAxis maps destination index i to the left source neighbour and the
// interpolation weight of the right one.
func sampleAxis(i int, ratio float64, n int) (int, float64) {
	pos := (float64(i)+0.5)*ratio - 0.5
	if pos <= 0 {
		return 0, 0
	}
	if pos >= float64(n-1) {
		return n - 1, 0
	}
	left := int(pos)
	return left, pos - float64(left)
}
