package sequence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/opd-ai/djv/limits"
	"github.com/sirupsen/logrus"
)

// ErrInvalidRange indicates a compressed range string could not be parsed
var ErrInvalidRange = errors.New("invalid frame range")

// Compress formats a frame list as comma separated items, each a single
// frame or an inclusive "a-b" run of consecutive frames. Runs may ascend or
// descend. Numbers are zero padded to pad digits.
func Compress(frames []int64, pad int) string {
	if len(frames) == 0 {
		return ""
	}
	var b strings.Builder
	i := 0
	for i < len(frames) {
		j := i
		if i+1 < len(frames) {
			step := frames[i+1] - frames[i]
			if step == 1 || step == -1 {
				j = i + 1
				for j+1 < len(frames) && frames[j+1]-frames[j] == step {
					j++
				}
			}
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		if j == i {
			b.WriteString(formatFrame(frames[i], pad))
		} else {
			b.WriteString(formatRange(frames[i], frames[j], pad))
		}
		i = j + 1
	}
	return b.String()
}

// Expand parses a compressed range string into a frame list. It also
// returns the zero padding inferred from the operands: when any operand has
// a leading zero the padding is the digit count of the longest operand.
//
// The expansion is truncated to limits.MaxSequenceFrames.
func Expand(s string) ([]int64, int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, 0, nil
	}
	var (
		out     []int64
		longest int
		padded  bool
	)
	max := limits.MaxSequenceFrames()
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		operands := splitRange(item)
		values := make([]int64, len(operands))
		for k, op := range operands {
			v, err := strconv.ParseInt(op, 10, 64)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: %q", ErrInvalidRange, item)
			}
			values[k] = v
			digits := strings.TrimPrefix(op, "-")
			if len(digits) > longest {
				longest = len(digits)
			}
			if len(digits) > 1 && digits[0] == '0' {
				padded = true
			}
		}
		start, end := values[0], values[len(values)-1]
		step := int64(1)
		if end < start {
			step = -1
		}
		for f := start; ; f += step {
			if int64(len(out)) >= max {
				_, err := limits.CheckFrameCount(max + 1)
				logrus.WithFields(logrus.Fields{
					"function": "Expand",
					"range":    s,
					"kept":     max,
					"error":    err.Error(),
				}).Warn("Truncating frame range expansion")
				return out, padding(padded, longest), nil
			}
			out = append(out, f)
			if f == end {
				break
			}
		}
	}
	return out, padding(padded, longest), nil
}

// FindClosest returns the index of the frame nearest to target in a sorted
// frame list. Ties resolve to the lower index. An empty list returns -1.
func FindClosest(target int64, frames []int64) int {
	if len(frames) == 0 {
		return -1
	}
	lo, hi := 0, len(frames)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if frames[mid] < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	// lo is the first index with frames[lo] >= target.
	if lo == len(frames) {
		return len(frames) - 1
	}
	if lo == 0 {
		return 0
	}
	if target-frames[lo-1] <= frames[lo]-target {
		return lo - 1
	}
	return lo
}

// splitRange splits "a-b" into its operands. A '-' only separates when it
// follows a digit, so negative frames such as "-5--1" parse correctly.
func splitRange(item string) []string {
	for i := 1; i < len(item); i++ {
		if item[i] == '-' && item[i-1] >= '0' && item[i-1] <= '9' {
			return []string{item[:i], item[i+1:]}
		}
	}
	return []string{item}
}

func padding(padded bool, longest int) int {
	if padded {
		return longest
	}
	return 0
}

func formatFrame(frame int64, pad int) string {
	if pad <= 0 {
		return strconv.FormatInt(frame, 10)
	}
	if frame < 0 {
		return fmt.Sprintf("-%0*d", pad, -frame)
	}
	return fmt.Sprintf("%0*d", pad, frame)
}

func formatRange(start, end int64, pad int) string {
	if start == end {
		return formatFrame(start, pad)
	}
	return formatFrame(start, pad) + "-" + formatFrame(end, pad)
}
