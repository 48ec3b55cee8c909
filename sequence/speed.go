package sequence

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidSpeed indicates a speed string could not be parsed
var ErrInvalidSpeed = errors.New("invalid speed")

// Speed is a frame rate expressed as a rational number of frames per second.
type Speed struct {
	Num int
	Den int
}

// Standard frame rates.
var (
	FPS1     = Speed{1, 1}
	FPS3     = Speed{3, 1}
	FPS6     = Speed{6, 1}
	FPS12    = Speed{12, 1}
	FPS15    = Speed{15, 1}
	FPS16    = Speed{16, 1}
	FPS18    = Speed{18, 1}
	FPS23976 = Speed{24000, 1001}
	FPS24    = Speed{24, 1}
	FPS25    = Speed{25, 1}
	FPS2997  = Speed{30000, 1001}
	FPS30    = Speed{30, 1}
	FPS50    = Speed{50, 1}
	FPS5994  = Speed{60000, 1001}
	FPS60    = Speed{60, 1}
	FPS120   = Speed{120, 1}
)

// StandardSpeeds lists the standard frame rates in ascending order.
var StandardSpeeds = []Speed{
	FPS1, FPS3, FPS6, FPS12, FPS15, FPS16, FPS18, FPS23976,
	FPS24, FPS25, FPS2997, FPS30, FPS50, FPS5994, FPS60, FPS120,
}

// DefaultSpeed is used when a file carries no speed information.
var DefaultSpeed = FPS24

// NewSpeed creates a speed from a numerator and denominator, reduced to
// lowest terms.
func NewSpeed(num, den int) Speed {
	if den == 0 {
		return Speed{}
	}
	if den < 0 {
		num, den = -num, -den
	}
	g := gcd(abs(num), den)
	if g > 1 {
		num /= g
		den /= g
	}
	return Speed{Num: num, Den: den}
}

// SpeedFromFloat converts frames per second to a Speed, snapping to a
// standard rate when within 0.001.
func SpeedFromFloat(fps float64) Speed {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return Speed{}
	}
	for _, s := range StandardSpeeds {
		if math.Abs(s.Float()-fps) < 0.001 {
			return s
		}
	}
	if fps == math.Trunc(fps) {
		return Speed{Num: int(fps), Den: 1}
	}
	return NewSpeed(int(math.Round(fps*1000)), 1000)
}

// ParseSpeed parses "24", "29.97" or "30000/1001".
func ParseSpeed(s string) (Speed, error) {
	s = strings.TrimSpace(s)
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(num))
		if err != nil {
			return Speed{}, fmt.Errorf("%w: %q: %v", ErrInvalidSpeed, s, err)
		}
		d, err := strconv.Atoi(strings.TrimSpace(den))
		if err != nil {
			return Speed{}, fmt.Errorf("%w: %q: %v", ErrInvalidSpeed, s, err)
		}
		sp := NewSpeed(n, d)
		if !sp.IsValid() {
			return Speed{}, fmt.Errorf("%w: %q", ErrInvalidSpeed, s)
		}
		return sp, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Speed{}, fmt.Errorf("%w: %q: %v", ErrInvalidSpeed, s, err)
	}
	sp := SpeedFromFloat(f)
	if !sp.IsValid() {
		return Speed{}, fmt.Errorf("%w: %q", ErrInvalidSpeed, s)
	}
	return sp, nil
}

// IsValid reports whether the speed is a positive frame rate.
func (s Speed) IsValid() bool {
	return s.Num > 0 && s.Den > 0
}

// Float returns frames per second, or zero for an invalid speed.
func (s Speed) Float() float64 {
	if s.Den == 0 {
		return 0
	}
	return float64(s.Num) / float64(s.Den)
}

// Nominal returns the integer frame rate used for timecode.
func (s Speed) Nominal() int {
	if !s.IsValid() {
		return 0
	}
	return int(math.Round(s.Float()))
}

// String formats the speed as frames per second ("24", "29.97").
func (s Speed) String() string {
	if !s.IsValid() {
		return "0"
	}
	if s.Den == 1 {
		return strconv.Itoa(s.Num)
	}
	out := strconv.FormatFloat(s.Float(), 'f', 3, 64)
	out = strings.TrimRight(out, "0")
	return strings.TrimSuffix(out, ".")
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
