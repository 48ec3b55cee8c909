package limits

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultMaxSequenceFrames is the default ceiling on the number of frames
	// a single sequence may represent.
	DefaultMaxSequenceFrames = 100000

	// MaxTimeoutSeconds bounds retry budgets (one day).
	MaxTimeoutSeconds = 24 * 60 * 60

	// EnvMaxSequenceFrames names the environment variable overriding the
	// sequence ceiling.
	EnvMaxSequenceFrames = "DJV_SEQUENCE_MAX_FRAMES"
)

var (
	// ErrSequenceRangeExceeded indicates a frame count exceeded the ceiling
	ErrSequenceRangeExceeded = errors.New("sequence range exceeded")

	// ErrInvalidTimeout indicates a negative or oversized retry budget
	ErrInvalidTimeout = errors.New("invalid timeout")
)

var maxSequenceFrames atomic.Int64

func init() {
	maxSequenceFrames.Store(DefaultMaxSequenceFrames)
}

// MaxSequenceFrames returns the current sequence ceiling.
func MaxSequenceFrames() int64 {
	return maxSequenceFrames.Load()
}

// SetMaxSequenceFrames changes the sequence ceiling. Values <= 0 restore
// DefaultMaxSequenceFrames.
func SetMaxSequenceFrames(n int64) {
	if n <= 0 {
		n = DefaultMaxSequenceFrames
	}
	maxSequenceFrames.Store(n)
}

// CheckFrameCount clamps n to the sequence ceiling. When n exceeds the
// ceiling the clamped value is returned together with an error wrapping
// ErrSequenceRangeExceeded; callers truncate and continue.
func CheckFrameCount(n int64) (int64, error) {
	max := MaxSequenceFrames()
	if n > max {
		return max, fmt.Errorf("%w: %d frames exceeds limit %d", ErrSequenceRangeExceeded, n, max)
	}
	return n, nil
}

// ValidateTimeout checks a retry budget in seconds.
func ValidateTimeout(seconds int) error {
	if seconds < 0 {
		return fmt.Errorf("%w: %d is negative", ErrInvalidTimeout, seconds)
	}
	if seconds > MaxTimeoutSeconds {
		return fmt.Errorf("%w: %d exceeds limit %d", ErrInvalidTimeout, seconds, MaxTimeoutSeconds)
	}
	return nil
}

// ApplyEnvironmentOverrides reads DJV_SEQUENCE_MAX_FRAMES. Invalid values are
// logged and ignored.
func ApplyEnvironmentOverrides() {
	value := os.Getenv(EnvMaxSequenceFrames)
	if value == "" {
		return
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		fields := logrus.Fields{
			"function":    "ApplyEnvironmentOverrides",
			"env_var":     EnvMaxSequenceFrames,
			"value":       value,
			"using_value": MaxSequenceFrames(),
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		logrus.WithFields(fields).Warn("Invalid DJV_SEQUENCE_MAX_FRAMES environment variable, using default")
		return
	}
	SetMaxSequenceFrames(n)
	logrus.WithFields(logrus.Fields{
		"function":   "ApplyEnvironmentOverrides",
		"max_frames": n,
	}).Debug("Sequence frame ceiling overridden from environment")
}
