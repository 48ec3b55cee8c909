package imageio

import (
	"fmt"
	"os"

	"github.com/opd-ai/djv/fileinfo"
	"github.com/opd-ai/djv/pixel"
)

// memoryCodec stores images in a map keyed by path.
type memoryCodec struct {
	files   map[string]*pixel.Image
	options map[string]string
}

func newMemoryCodec() *memoryCodec {
	return &memoryCodec{files: map[string]*pixel.Image{}, options: map[string]string{}}
}

func (c *memoryCodec) DecodeInfo(path string) (Info, error) {
	img, ok := c.files[path]
	if !ok {
		return Info{}, NewError("open", path, os.ErrNotExist)
	}
	return NewInfo(path, img.Info), nil
}

func (c *memoryCodec) Decode(path string) (*pixel.Image, error) {
	img, ok := c.files[path]
	if !ok {
		return nil, NewError("read", path, os.ErrNotExist)
	}
	return img, nil
}

func (c *memoryCodec) Encode(path string, img *pixel.Image) error {
	c.files[path] = img
	return nil
}

// memoryPlugin exposes memoryCodec as a Plugin.
type memoryPlugin struct {
	name  string
	exts  []string
	codec *memoryCodec
}

func (p *memoryPlugin) Name() string               { return p.name }
func (p *memoryPlugin) Extensions() []string       { return p.exts }
func (p *memoryPlugin) Capabilities() Capabilities { return Capabilities{RandomAccess: true} }
func (p *memoryPlugin) Probe(path string) bool     { return HasExtension(path, p.exts) }

func (p *memoryPlugin) OpenRead(fi fileinfo.FileInfo) (Reader, Info, error) {
	return NewSequenceReader(fi, p.codec)
}

func (p *memoryPlugin) OpenWrite(fi fileinfo.FileInfo, info Info) (Writer, error) {
	return NewSequenceWriter(fi, p.codec), nil
}

func (p *memoryPlugin) SetOption(name, value string) error {
	if name != "quality" {
		return fmt.Errorf("%w: %s", ErrUnknownOption, name)
	}
	p.codec.options[name] = value
	return nil
}

func (p *memoryPlugin) OptionNames() []string { return []string{"quality"} }

func solidImage(w, h int, t pixel.Type, c pixel.Color) *pixel.Image {
	img := pixel.NewImage(pixel.NewInfo(pixel.Size{W: w, H: h}, t))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetPixel(x, y, c)
		}
	}
	return img
}

// layeredCodec is a memoryCodec whose files carry one extra layer per entry
// in layers.
type layeredCodec struct {
	*memoryCodec
	layers []*pixel.Image
}

func (c *layeredCodec) DecodeLayer(path string, layer int) (*pixel.Image, error) {
	if layer <= 0 || len(c.layers) == 0 {
		return c.Decode(path)
	}
	if layer > len(c.layers) {
		layer = len(c.layers)
	}
	return c.layers[layer-1], nil
}
