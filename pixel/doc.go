// Package pixel describes in-memory images for the djv pipeline.
//
// Info carries the full shape of a pixel buffer: size, Type (channel layout
// and sample depth), proxy level, mirror flags, byte order and scanline
// alignment. Two buffers need no conversion exactly when their Info values
// are equal:
//
//	if !src.Info.Equal(target) {
//	    dst := pixel.NewImage(target)
//	    pixel.Convert(src, dst)
//	}
//
// Image adds the pixel data, the colour profile the samples are encoded
// with and free form metadata Tags. Samples are accessed as normalized
// float32 Colors regardless of storage type, which keeps codecs and the
// transform package independent of the storage details:
//
//   - 8 and 16 bit integers are scaled to [0, 1]
//   - half floats use github.com/x448/float16
//   - RGB U10 samples are packed into 32 bit words (R<<22 | G<<12 | B<<2)
//
// Proxy levels are power-of-two reductions; ProxyScale rounds up so no
// dimension ever reaches zero.
package pixel
