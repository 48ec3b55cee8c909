package sequence

import (
	"github.com/opd-ai/djv/limits"
	"github.com/sirupsen/logrus"
)

// Sequence is a range of frame numbers with padding and speed.
//
// When Frames is nil the sequence is the closed range from Start to End,
// which may run in either direction. When Frames is set it is the explicit,
// possibly discontiguous, frame list and Start/End mirror its first and last
// entries.
type Sequence struct {
	Start  int64
	End    int64
	Pad    int
	Speed  Speed
	Frames []int64
}

// NewRange creates a contiguous sequence.
func NewRange(start, end int64, pad int, speed Speed) Sequence {
	if pad < 0 {
		pad = 0
	}
	return Sequence{Start: start, End: end, Pad: pad, Speed: speed}
}

// NewFrames creates a sequence from an explicit frame list. The list is
// truncated to limits.MaxSequenceFrames.
func NewFrames(frames []int64, pad int, speed Speed) Sequence {
	if pad < 0 {
		pad = 0
	}
	frames = truncate(frames, "NewFrames")
	seq := Sequence{Pad: pad, Speed: speed}
	if len(frames) > 0 {
		seq.Frames = append([]int64(nil), frames...)
		seq.Start = frames[0]
		seq.End = frames[len(frames)-1]
	}
	return seq
}

// Len returns the number of frames in the sequence, capped at the
// sequence ceiling.
func (s Sequence) Len() int {
	if s.Frames != nil {
		return len(s.Frames)
	}
	n := s.End - s.Start
	if n < 0 {
		n = -n
	}
	count, _ := limits.CheckFrameCount(n + 1)
	return int(count)
}

// Frame returns the frame number at index i. Out of range indices are
// clamped.
func (s Sequence) Frame(i int) int64 {
	n := s.Len()
	if n == 0 {
		return 0
	}
	if i < 0 {
		i = 0
	} else if i >= n {
		i = n - 1
	}
	if s.Frames != nil {
		return s.Frames[i]
	}
	if s.End < s.Start {
		return s.Start - int64(i)
	}
	return s.Start + int64(i)
}

// List returns every frame number in order. Ranges larger than the sequence
// ceiling are truncated and a warning is logged.
func (s Sequence) List() []int64 {
	if s.Frames != nil {
		return append([]int64(nil), s.Frames...)
	}
	n := s.End - s.Start
	if n < 0 {
		n = -n
	}
	count, err := limits.CheckFrameCount(n + 1)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Sequence.List",
			"start":    s.Start,
			"end":      s.End,
			"kept":     count,
			"error":    err.Error(),
		}).Warn("Truncating sequence")
	}
	out := make([]int64, count)
	for i := range out {
		out[i] = s.Frame(i)
	}
	return out
}

// Slice narrows the sequence to the frames between the first and last
// indices inclusive. Indices are clamped to the sequence.
func (s Sequence) Slice(first, last int) Sequence {
	n := s.Len()
	if n == 0 {
		return s
	}
	first = clampIndex(first, n)
	last = clampIndex(last, n)
	if last < first {
		first, last = last, first
	}
	if s.Frames == nil {
		out := s
		out.Start = s.Frame(first)
		out.End = s.Frame(last)
		return out
	}
	return NewFrames(s.Frames[first:last+1], s.Pad, s.Speed)
}

// IsValid reports whether the sequence holds at least one frame.
func (s Sequence) IsValid() bool {
	if s.Frames != nil {
		return len(s.Frames) > 0
	}
	return true
}

// Contiguous reports whether every frame follows the previous one by one.
func (s Sequence) Contiguous() bool {
	if s.Frames == nil {
		return true
	}
	for i := 1; i < len(s.Frames); i++ {
		if s.Frames[i] != s.Frames[i-1]+1 {
			return false
		}
	}
	return true
}

// String returns the compressed frame list ("1-10" or "1-3,5").
func (s Sequence) String() string {
	if s.Frames == nil {
		return formatRange(s.Start, s.End, s.Pad)
	}
	return Compress(s.Frames, s.Pad)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func truncate(frames []int64, function string) []int64 {
	count, err := limits.CheckFrameCount(int64(len(frames)))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": function,
			"frames":   len(frames),
			"kept":     count,
			"error":    err.Error(),
		}).Warn("Truncating sequence")
		return frames[:count]
	}
	return frames
}
