package convert

import (
	"testing"

	"github.com/opd-ai/djv/limits"
	"github.com/opd-ai/djv/pixel"
	"github.com/opd-ai/djv/sequence"
	"github.com/opd-ai/djv/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOptionsDefaults(t *testing.T) {
	o := NewOptions()
	assert.Equal(t, transform.Vec{X: 1, Y: 1}, o.Scale)
	assert.Equal(t, transform.FilterLinear, o.Filter)
	assert.True(t, o.Sequencing)
	assert.True(t, o.Output.TagsAuto)
	assert.Zero(t, o.Input.Timeout)
	assert.NotNil(t, o.Output.Tags)
}

func TestOptionsValidate(t *testing.T) {
	badType := pixel.Type(-1)
	badSpeed := sequence.Speed{}
	tests := []struct {
		name  string
		apply func(o *Options)
		ok    bool
	}{
		{"valid", func(o *Options) {}, true},
		{"missing input", func(o *Options) { o.Input.File = "" }, false},
		{"missing output", func(o *Options) { o.Output.File = "" }, false},
		{"negative timeout", func(o *Options) { o.Input.Timeout = -1 }, false},
		{"huge timeout", func(o *Options) { o.Input.Timeout = limits.MaxTimeoutSeconds + 1 }, false},
		{"negative layer", func(o *Options) { o.Input.Layer = -1 }, false},
		{"bad proxy", func(o *Options) { o.Input.Proxy = pixel.Proxy(9) }, false},
		{"slate frames without slate", func(o *Options) { o.Input.SlateFrames = 2 }, false},
		{"negative slate frames", func(o *Options) { o.Input.Slate = "s.png"; o.Input.SlateFrames = -1 }, false},
		{"timecode start", func(o *Options) { o.Input.Start = "00:00:01:00" }, true},
		{"bad start", func(o *Options) { o.Input.Start = "soon" }, false},
		{"bad end", func(o *Options) { o.Input.End = "1:2:3:4:5" }, false},
		{"zero scale", func(o *Options) { o.Scale.X = 0 }, false},
		{"negative size", func(o *Options) { o.Size.H = -4 }, false},
		{"negative crop", func(o *Options) { o.Crop.W = -1 }, false},
		{"negative crop percent", func(o *Options) { o.CropPercent.H = -1 }, false},
		{"bad pixel", func(o *Options) { o.Output.Pixel = &badType }, false},
		{"bad speed", func(o *Options) { o.Output.Speed = &badSpeed }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOptions()
			o.Input.File = "in.1-10.dpx"
			o.Output.File = "out.1.png"
			tt.apply(o)
			err := o.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
}

func TestBoxIsValid(t *testing.T) {
	assert.True(t, Box{W: 1, H: 1}.IsValid())
	assert.False(t, Box{X: 5, W: 0, H: 1}.IsValid())
	assert.True(t, BoxF{W: 0.5, H: 10}.IsValid())
	assert.False(t, BoxF{}.IsValid())
}

func TestApplyEnvironmentOverrides(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		t.Setenv(EnvTimeout, "30")
		t.Setenv(EnvTagsAuto, "false")
		o := NewOptions()
		o.ApplyEnvironmentOverrides()
		assert.Equal(t, 30, o.Input.Timeout)
		assert.False(t, o.Output.TagsAuto)
	})

	t.Run("invalid values are ignored", func(t *testing.T) {
		t.Setenv(EnvTimeout, "forever")
		t.Setenv(EnvTagsAuto, "maybe")
		o := NewOptions()
		o.ApplyEnvironmentOverrides()
		assert.Zero(t, o.Input.Timeout)
		assert.True(t, o.Output.TagsAuto)
	})

	t.Run("out of bounds timeout", func(t *testing.T) {
		t.Setenv(EnvTimeout, "-3")
		o := NewOptions()
		o.Input.Timeout = 5
		o.ApplyEnvironmentOverrides()
		assert.Equal(t, 5, o.Input.Timeout)
	})

	t.Run("unset", func(t *testing.T) {
		t.Setenv(EnvTimeout, "")
		t.Setenv(EnvTagsAuto, "")
		o := NewOptions()
		o.ApplyEnvironmentOverrides()
		assert.Equal(t, NewOptions(), o)
	})
}
