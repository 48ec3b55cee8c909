// Package limits provides centralized resource ceilings for the djv image
// pipeline. Every component that expands frame lists, scans directories or
// waits on slow sources consults this package so the same bounds are enforced
// everywhere.
//
// # Sequence Ceiling
//
// MaxSequenceFrames caps how many frames a single sequence may represent.
// Wildcard expansion or a directory with millions of numbered files would
// otherwise allocate without bound. Exceeding the ceiling is not fatal:
//
//	n, err := limits.CheckFrameCount(int64(len(frames)))
//	if err != nil {
//	    // log the truncation and keep the first n frames
//	}
//
// The ceiling defaults to DefaultMaxSequenceFrames and may be changed at
// process start with SetMaxSequenceFrames or the DJV_SEQUENCE_MAX_FRAMES
// environment variable (see ApplyEnvironmentOverrides).
//
// # Timeouts
//
// Retry budgets are expressed in whole time units (seconds in production).
// ValidateTimeout rejects negative budgets and budgets above MaxTimeoutSeconds.
//
// # Error Types
//
//   - ErrSequenceRangeExceeded: a frame count exceeded MaxSequenceFrames
//   - ErrInvalidTimeout: a retry budget is negative or too large
package limits
