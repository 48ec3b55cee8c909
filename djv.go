package djv

import (
	"github.com/opd-ai/djv/imageio"
	"github.com/opd-ai/djv/imageio/dpx"
	"github.com/opd-ai/djv/imageio/exr"
	"github.com/opd-ai/djv/imageio/ppm"
	"github.com/opd-ai/djv/imageio/stdimage"
	"github.com/opd-ai/djv/imageio/y4m"
)

// Version is the release of the djv tools.
const Version = "1.0.0"

// Plugins returns a fresh instance of every built-in codec: Cineon, DPX,
// OpenEXR, NetPBM, PNG, JPEG, TIFF, BMP and YUV4MPEG2.
func Plugins() []imageio.Plugin {
	plugins := []imageio.Plugin{dpx.NewCineonPlugin(), dpx.NewPlugin(), exr.NewPlugin(), ppm.NewPlugin()}
	plugins = append(plugins, stdimage.Plugins()...)
	return append(plugins, y4m.NewPlugin())
}

// NewRegistry builds a registry holding Plugins. Plugin options set on the
// registry only affect that registry's instances.
func NewRegistry() (*imageio.Registry, error) {
	return imageio.NewRegistry(Plugins()...)
}
