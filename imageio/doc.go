// Package imageio defines the codec plugin contract of the djv pipeline and
// the registry that selects a plugin by file extension.
//
// A Plugin opens files for reading and writing. OpenRead returns a Reader
// together with an Info describing every layer, the on-disk frame range and
// speed, without decoding pixel data. OpenWrite receives the complete target
// Info so single-file containers can emit their header before the first
// frame arrives.
//
// Readers must tolerate repeated ReadFrame calls after a failure so callers
// can retry slow sources. Writers accept frames in strictly increasing
// frame order and finalize on the first Close; later Close calls do
// nothing.
//
// The Registry is built once at process start and is immutable:
//
//	reg, err := imageio.NewRegistry(dpx.New(), ppm.New())
//	r, info, err := reg.OpenRead(fileinfo.Parse("plate.1-10.dpx", true))
//
// Codecs that store one image per file implement FrameDecoder and
// FrameEncoder and get sequence handling from NewSequenceReader and
// NewSequenceWriter.
package imageio
