package imageio

import (
	"fmt"

	"github.com/opd-ai/djv/pixel"
	"github.com/opd-ai/djv/sequence"
)

// FrameInfo selects what a Reader decodes or a Writer stores.
type FrameInfo struct {
	Frame int64
	Layer int
	Proxy pixel.Proxy
}

// AudioInfo describes an audio track carried alongside the images.
type AudioInfo struct {
	Channels    int
	SampleRate  int
	SampleCount int64
}

// Info is the metadata of an opened file.
type Info struct {
	FileName string
	Layers   []pixel.Info
	Sequence sequence.Sequence
	Tags     pixel.Tags
	Audio    *AudioInfo
}

// NewInfo creates an Info with a single layer and a one frame sequence.
func NewInfo(fileName string, layer pixel.Info) Info {
	return Info{
		FileName: fileName,
		Layers:   []pixel.Info{layer},
		Sequence: sequence.NewRange(0, 0, 0, sequence.DefaultSpeed),
		Tags:     pixel.Tags{},
	}
}

// LayerCount returns the number of layers.
func (i Info) LayerCount() int {
	return len(i.Layers)
}

// ClampLayer limits a layer index to the available layers.
func (i Info) ClampLayer(layer int) int {
	if layer >= len(i.Layers) {
		layer = len(i.Layers) - 1
	}
	if layer < 0 {
		layer = 0
	}
	return layer
}

// Layer returns the layer at index n, clamped. An Info without layers
// returns the zero value.
func (i Info) Layer(n int) pixel.Info {
	if len(i.Layers) == 0 {
		return pixel.Info{}
	}
	return i.Layers[i.ClampLayer(n)]
}

// Label describes a layer and its sequence as "WxH:aspect pixel
// duration@speed", for example "1920x1080:1.78 RGB U10 00:00:04:00@24".
// The duration is the frame count in the current display units.
func Label(layer pixel.Info, seq sequence.Sequence) string {
	return fmt.Sprintf("%dx%d:%.2f %s %s@%.6g",
		layer.Size.W, layer.Size.H, layer.Size.Aspect(), layer.Type,
		sequence.FrameToString(int64(seq.Len()), seq.Speed), seq.Speed.Float())
}
