package transform

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/opd-ai/djv/pixel"
)

var (
	// ErrInvalidScale indicates a scale factor that is not positive
	ErrInvalidScale = errors.New("invalid scale")

	// ErrInvalidChannel indicates an unknown channel name
	ErrInvalidChannel = errors.New("invalid channel")

	// ErrInvalidFilter indicates an unknown filter name
	ErrInvalidFilter = errors.New("invalid filter")
)

// Channel selects which channels are kept.
type Channel int

// Channels.
const (
	ChannelDefault Channel = iota
	ChannelRed
	ChannelGreen
	ChannelBlue
	ChannelAlpha
)

var channelLabels = [...]string{"default", "red", "green", "blue", "alpha"}

func (c Channel) String() string {
	if c < 0 || int(c) >= len(channelLabels) {
		return fmt.Sprintf("Channel(%d)", int(c))
	}
	return channelLabels[c]
}

// ParseChannel parses a channel label, ignoring case.
func ParseChannel(s string) (Channel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, label := range channelLabels {
		if label == s {
			return Channel(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidChannel, s)
}

// Filter selects how source pixels are sampled.
type Filter int

// Filters.
const (
	FilterNearest Filter = iota
	FilterLinear
)

func (f Filter) String() string {
	if f == FilterLinear {
		return "linear"
	}
	return "nearest"
}

// ParseFilter parses "nearest" or "linear".
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nearest":
		return FilterNearest, nil
	case "linear":
		return FilterLinear, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidFilter, s)
}

// Vec is a two dimensional vector in pixels or scale factors.
type Vec struct {
	X float64
	Y float64
}

// Options describe a combined copy and transform.
type Options struct {
	// Position offsets the scaled source inside the destination.
	Position Vec
	Scale    Vec
	// Mirror flips the result. Mirror flags of the source buffer are
	// honoured separately.
	Mirror  pixel.Mirror
	Channel Channel
	// ColorProfile converts film print sources to linear light.
	ColorProfile bool
	Filter       Filter
}

// DefaultOptions returns identity options that apply the source colour
// profile with linear filtering.
func DefaultOptions() Options {
	return Options{
		Scale:        Vec{X: 1, Y: 1},
		ColorProfile: true,
		Filter:       FilterLinear,
	}
}

// IsIdentity reports whether the geometry and channel selection leave
// pixels where they are. The colour profile is not considered because it
// depends on the source.
func (o Options) IsIdentity() bool {
	return o.Position == Vec{} &&
		o.Scale == Vec{X: 1, Y: 1} &&
		o.Mirror == pixel.Mirror{} &&
		o.Channel == ChannelDefault
}

// NeedsCopy reports whether src must be copied to match dst under o.
func (o Options) NeedsCopy(src pixel.Info, profile pixel.ColorProfile, dst pixel.Info) bool {
	return !o.IsIdentity() ||
		!src.SameLayout(dst) ||
		(o.ColorProfile && !profile.IsRaw())
}

func (o Options) validate() error {
	if !(o.Scale.X > 0) || !(o.Scale.Y > 0) || math.IsInf(o.Scale.X, 0) || math.IsInf(o.Scale.Y, 0) {
		return fmt.Errorf("%w: %gx%g", ErrInvalidScale, o.Scale.X, o.Scale.Y)
	}
	return nil
}

// Copier copies src into dst one band of rows at a time. Bands may run
// concurrently.
type Copier struct {
	src    *pixel.Image
	dst    *pixel.Image
	opts   Options
	mirror pixel.Mirror
	lut    []float32
}

// NewCopier prepares a copy of src into dst. The destination keeps its own
// size and pixel type; its profile and tags are set from src.
func NewCopier(src, dst *pixel.Image, opts Options) (*Copier, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	c := &Copier{src: src, dst: dst, opts: opts, mirror: src.Mirror}
	dst.Tags = src.Tags.Clone()
	dst.ColorProfile = src.ColorProfile
	if opts.ColorProfile && src.ColorProfile.Type == pixel.ProfileFilmPrint {
		c.lut = src.ColorProfile.FilmPrint.ToLinearLUT()
		dst.ColorProfile = pixel.ColorProfile{}
	}
	return c, nil
}

// Rows fills destination rows [y0, y1).
func (c *Copier) Rows(y0, y1 int) {
	for y := y0; y < y1; y++ {
		for x := 0; x < c.dst.Size.W; x++ {
			c.dst.SetPixel(x, y, c.shade(c.sample(x, y)))
		}
	}
}

// sourcePos maps a destination pixel to continuous source coordinates.
func (c *Copier) sourcePos(x, y int) (float64, float64) {
	if c.opts.Mirror.X {
		x = c.dst.Size.W - 1 - x
	}
	if c.opts.Mirror.Y {
		y = c.dst.Size.H - 1 - y
	}
	u := (float64(x)-c.opts.Position.X+0.5)/c.opts.Scale.X - 0.5
	v := (float64(y)-c.opts.Position.Y+0.5)/c.opts.Scale.Y - 0.5
	if c.mirror.X {
		u = float64(c.src.Size.W-1) - u
	}
	if c.mirror.Y {
		v = float64(c.src.Size.H-1) - v
	}
	return u, v
}

func (c *Copier) sample(x, y int) pixel.Color {
	u, v := c.sourcePos(x, y)
	w, h := c.src.Size.W, c.src.Size.H
	if u < -0.5 || v < -0.5 || u >= float64(w)-0.5 || v >= float64(h)-0.5 {
		return pixel.Color{}
	}
	if c.opts.Filter == FilterNearest {
		return c.src.Pixel(clamp(int(math.Floor(u+0.5)), w), clamp(int(math.Floor(v+0.5)), h))
	}

	x1, fx := split(u, w)
	y1, fy := split(v, h)
	x2, y2 := clamp(x1+1, w), clamp(y1+1, h)
	p11, p21 := c.src.Pixel(x1, y1), c.src.Pixel(x2, y1)
	p12, p22 := c.src.Pixel(x1, y2), c.src.Pixel(x2, y2)
	var out pixel.Color
	for i := range out {
		top := p11[i]*(1-fx) + p21[i]*fx
		bottom := p12[i]*(1-fx) + p22[i]*fx
		out[i] = top*(1-fy) + bottom*fy
	}
	return out
}

func split(pos float64, n int) (int, float32) {
	if pos <= 0 {
		return 0, 0
	}
	i := int(pos)
	if i >= n-1 {
		return n - 1, 0
	}
	return i, float32(pos - float64(i))
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// shade applies the colour profile and channel selection.
func (c *Copier) shade(p pixel.Color) pixel.Color {
	if c.lut != nil {
		for i := 0; i < 3; i++ {
			p[i] = pixel.LookupLUT(c.lut, p[i])
		}
	}
	switch c.opts.Channel {
	case ChannelRed:
		return pixel.Color{p[0], p[0], p[0], p[3]}
	case ChannelGreen:
		return pixel.Color{p[1], p[1], p[1], p[3]}
	case ChannelBlue:
		return pixel.Color{p[2], p[2], p[2], p[3]}
	case ChannelAlpha:
		return pixel.Color{p[3], p[3], p[3], 1}
	}
	return p
}

// Copy transforms all of src into dst.
func Copy(src, dst *pixel.Image, opts Options) error {
	c, err := NewCopier(src, dst, opts)
	if err != nil {
		return err
	}
	c.Rows(0, dst.Size.H)
	return nil
}
