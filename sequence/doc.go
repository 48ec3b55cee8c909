// Package sequence implements frame-sequence algebra for the djv pipeline.
//
// A Sequence is a range of integer frame numbers together with the zero
// padding used when the numbers are formatted into file names and the
// playback speed as a rational frame rate:
//
//	seq := sequence.NewRange(1, 100, 4, sequence.FPS24)
//	name := fmt.Sprintf("render.%0*d.dpx", seq.Pad, seq.Frame(0)) // render.0001.dpx
//
// # Compressed Ranges
//
// Compress and Expand convert between explicit frame lists and the compact
// comma separated form used in file names and on the command line:
//
//	s := sequence.Compress([]int64{1, 2, 3, 5, 7, 8, 9}, 0) // "1-3,5,7-9"
//	frames, pad, err := sequence.Expand("0001-0003")      // [1 2 3], 4
//
// For any sorted, deduplicated list, Expand(Compress(x)) returns x.
//
// # Time
//
// Frames convert to and from SMPTE timecode using the nominal integer rate of
// the speed (non-drop-frame). FrameToString and StringToFrame use the
// package-level display Units.
//
// Expansion is bounded by limits.MaxSequenceFrames; exceeding it truncates
// the result and logs a warning rather than failing.
package sequence
