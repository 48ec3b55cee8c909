// Package djv reads, writes and converts image sequences for film and
// video work.
//
// Frame numbered files such as "render.0001-0100.dpx" are treated as one
// sequence. The sub-packages split the work:
//
//   - sequence: frame lists, speeds and SMPTE timecode
//   - pixel: pixel types, buffers, proxies and tags
//   - fileinfo: sequence aware path parsing and directory listing
//   - imageio: the codec plugin registry and its DPX, NetPBM, PNG, JPEG,
//     TIFF, BMP and YUV4MPEG2 plugins
//   - transform: scaling, cropping, mirroring and channel selection
//   - convert: the djv_convert pipeline with retrying reads and writes
//
// NewRegistry wires every built-in codec:
//
//	registry, err := djv.NewRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	reader, info, err := registry.OpenRead(fileinfo.Parse("plate.0001-0010.dpx", true))
//
// # Environment
//
// DJV_SEQUENCE_MAX_FRAMES caps the frames a sequence may hold,
// DJV_THREADS sizes the decode thread pool and DJV_CONVERT_TIMEOUT and
// DJV_CONVERT_TAGS_AUTO change the conversion defaults. The command line
// tools also read DJV_LOG_LEVEL.
package djv
