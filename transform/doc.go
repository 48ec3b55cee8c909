// Package transform copies pixel buffers while scaling, positioning,
// mirroring and isolating channels in a single pass.
//
// Copy converts between pixel types through normalized colours, so any
// source type can be written to any destination type. Film print sources
// are converted to linear light when Options.ColorProfile is set.
//
//	dst := pixel.NewImage(pixel.NewInfo(pixel.Size{W: 960, H: 540}, pixel.RGBU8))
//	opts := transform.DefaultOptions()
//	opts.Scale = transform.Vec{X: 0.5, Y: 0.5}
//	if err := transform.Copy(src, dst, opts); err != nil {
//		return err
//	}
//
// ScalePlane resizes single 8 bit planes and is used for YCbCr chroma.
package transform
