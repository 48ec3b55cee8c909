package convert

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/opd-ai/djv/limits"
	"github.com/opd-ai/djv/pixel"
	"github.com/opd-ai/djv/sequence"
	"github.com/opd-ai/djv/transform"
	"github.com/sirupsen/logrus"
)

// Environment variables read by ApplyEnvironmentOverrides.
const (
	EnvTimeout  = "DJV_CONVERT_TIMEOUT"
	EnvTagsAuto = "DJV_CONVERT_TAGS_AUTO"
)

// Box is a pixel rectangle.
type Box struct {
	X, Y, W, H int
}

// IsValid reports whether the box has an area.
func (b Box) IsValid() bool { return b.W > 0 && b.H > 0 }

// BoxF is a rectangle in percent of the scaled image.
type BoxF struct {
	X, Y, W, H float64
}

// IsValid reports whether the box has an area.
func (b BoxF) IsValid() bool { return b.W > 0 && b.H > 0 }

// Input selects what is read.
type Input struct {
	File  string
	Layer int
	Proxy pixel.Proxy
	// Start and End are frame numbers or timecodes. Empty means the
	// first and last frame.
	Start string
	End   string
	// Slate is a still image written SlateFrames times before the
	// source frames.
	Slate       string
	SlateFrames int
	// Timeout is the retry budget in retry intervals for opening the
	// input and for each frame read or write.
	Timeout int
}

// Output selects what is written.
type Output struct {
	File string
	// Pixel overrides the output pixel type when set.
	Pixel *pixel.Type
	// Speed overrides the output speed when set.
	Speed *sequence.Speed
	// Tags are layered over the tags of every frame.
	Tags     pixel.Tags
	TagsAuto bool
}

// Options describe one conversion.
type Options struct {
	Mirror pixel.Mirror
	Scale  transform.Vec
	// Size resizes the image. With only one dimension set the other
	// follows the source aspect.
	Size pixel.Size
	// Crop wins over CropPercent.
	Crop        Box
	CropPercent BoxF
	Channel     transform.Channel
	Filter      transform.Filter
	// Sequencing interprets numbered file names as sequences.
	Sequencing bool

	Input  Input
	Output Output
}

// NewOptions returns identity options with file sequencing and automatic
// tags enabled.
func NewOptions() *Options {
	return &Options{
		Scale:      transform.Vec{X: 1, Y: 1},
		Filter:     transform.FilterLinear,
		Sequencing: true,
		Output: Output{
			Tags:     pixel.Tags{},
			TagsAuto: true,
		},
	}
}

// Validate checks the options before a run.
func (o *Options) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalidOptions, fmt.Sprintf(format, args...))
	}
	if o.Input.File == "" {
		return invalid("missing input")
	}
	if o.Output.File == "" {
		return invalid("missing output")
	}
	if err := limits.ValidateTimeout(o.Input.Timeout); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if o.Input.Layer < 0 {
		return invalid("layer %d", o.Input.Layer)
	}
	if o.Input.Proxy < pixel.ProxyNone || o.Input.Proxy > pixel.Proxy1_8 {
		return invalid("proxy %d", o.Input.Proxy)
	}
	if o.Input.SlateFrames < 0 {
		return invalid("slate frames %d", o.Input.SlateFrames)
	}
	if o.Input.SlateFrames > 0 && o.Input.Slate == "" {
		return invalid("slate frames without a slate")
	}
	for _, s := range []string{o.Input.Start, o.Input.End} {
		if s == "" {
			continue
		}
		if _, err := sequence.StringToFrame(s, sequence.DefaultSpeed); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
		}
	}
	if !(o.Scale.X > 0) || !(o.Scale.Y > 0) || math.IsInf(o.Scale.X, 0) || math.IsInf(o.Scale.Y, 0) {
		return invalid("scale %gx%g", o.Scale.X, o.Scale.Y)
	}
	if o.Size.W < 0 || o.Size.H < 0 {
		return invalid("size %s", o.Size)
	}
	if o.Crop.W < 0 || o.Crop.H < 0 || o.CropPercent.W < 0 || o.CropPercent.H < 0 {
		return invalid("crop size")
	}
	if o.Output.Pixel != nil && !o.Output.Pixel.IsValid() {
		return invalid("pixel type %d", *o.Output.Pixel)
	}
	if o.Output.Speed != nil && !o.Output.Speed.IsValid() {
		return invalid("speed %s", *o.Output.Speed)
	}
	return nil
}

// ApplyEnvironmentOverrides reads DJV_CONVERT_TIMEOUT and
// DJV_CONVERT_TAGS_AUTO. Invalid values are logged and ignored.
func (o *Options) ApplyEnvironmentOverrides() {
	parseTimeoutSetting(o)
	parseTagsAutoSetting(o)
}

func parseTimeoutSetting(o *Options) {
	value := os.Getenv(EnvTimeout)
	if value == "" {
		return
	}
	timeout, err := strconv.Atoi(value)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseTimeoutSetting",
			"env_var":     EnvTimeout,
			"value":       value,
			"error":       err.Error(),
			"using_value": o.Input.Timeout,
		}).Warn("Failed to parse DJV_CONVERT_TIMEOUT environment variable, using default")
		return
	}
	if err := limits.ValidateTimeout(timeout); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseTimeoutSetting",
			"env_var":     EnvTimeout,
			"value":       timeout,
			"max":         limits.MaxTimeoutSeconds,
			"using_value": o.Input.Timeout,
		}).Warn("DJV_CONVERT_TIMEOUT value out of bounds, using default")
		return
	}
	o.Input.Timeout = timeout
}

func parseTagsAutoSetting(o *Options) {
	value := os.Getenv(EnvTagsAuto)
	if value == "" {
		return
	}
	tagsAuto, err := strconv.ParseBool(value)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseTagsAutoSetting",
			"env_var":     EnvTagsAuto,
			"value":       value,
			"error":       err.Error(),
			"using_value": o.Output.TagsAuto,
		}).Warn("Failed to parse DJV_CONVERT_TAGS_AUTO environment variable, using default")
		return
	}
	o.Output.TagsAuto = tagsAuto
}
