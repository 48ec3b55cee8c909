package imageio

import "github.com/opd-ai/djv/pixel"

// ProxyReduce averages blocks of 2^level pixels into a new image at the
// proxy size. Edge blocks that fall outside the source average the pixels
// that exist.
func ProxyReduce(img *pixel.Image, proxy pixel.Proxy, pool *ThreadPool) *pixel.Image {
	if proxy <= pixel.ProxyNone {
		return img
	}
	info := img.Info
	info.Size = pixel.ProxyScale(img.Size, proxy)
	info.Proxy = proxy
	out := pixel.NewImage(info)
	out.ColorProfile = img.ColorProfile
	out.Tags = img.Tags.Clone()

	scale := proxy.Scale()
	rows := func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < info.Size.W; x++ {
				var sum pixel.Color
				n := 0
				for sy := y * scale; sy < (y+1)*scale && sy < img.Size.H; sy++ {
					for sx := x * scale; sx < (x+1)*scale && sx < img.Size.W; sx++ {
						c := img.Pixel(sx, sy)
						for i := range sum {
							sum[i] += c[i]
						}
						n++
					}
				}
				for i := range sum {
					sum[i] /= float32(n)
				}
				out.SetPixel(x, y, sum)
			}
		}
	}
	if pool == nil {
		rows(0, info.Size.H)
	} else {
		pool.Rows(info.Size.H, rows)
	}
	return out
}
