package pixel

import (
	"fmt"
	"math"
)

// ProfileType selects how sample values are encoded.
type ProfileType int

const (
	// ProfileRaw samples are used as they are.
	ProfileRaw ProfileType = iota
	// ProfileFilmPrint samples are Cineon printing density log values.
	ProfileFilmPrint
)

// String returns the profile label.
func (p ProfileType) String() string {
	if p == ProfileFilmPrint {
		return "film_print"
	}
	return "raw"
}

// FilmPrint holds the Cineon log conversion parameters. Black and White are
// 10 bit code values.
type FilmPrint struct {
	Black int
	White int
	Gamma float64
}

// DefaultFilmPrint is the standard Kodak conversion.
var DefaultFilmPrint = FilmPrint{Black: 95, White: 685, Gamma: 1.7}

// String formats the parameters as "black white gamma".
func (f FilmPrint) String() string {
	return fmt.Sprintf("%d %d %g", f.Black, f.White, f.Gamma)
}

// ColorProfile describes the encoding of an image's samples.
type ColorProfile struct {
	Type      ProfileType
	FilmPrint FilmPrint
}

// IsRaw reports whether no conversion applies.
func (c ColorProfile) IsRaw() bool {
	return c.Type == ProfileRaw
}

const (
	densityPerCode = 0.002
	negativeGamma  = 0.6
)

func (f FilmPrint) exponent() float64 {
	gamma := f.Gamma
	if gamma <= 0 {
		gamma = DefaultFilmPrint.Gamma
	}
	return densityPerCode / negativeGamma * gamma / 1.7
}

func (f FilmPrint) blackOffset() float64 {
	return math.Pow(10, float64(f.Black-f.White)*f.exponent())
}

// ToLinear converts a normalized log sample to linear light. Code values
// above White produce values greater than one.
func (f FilmPrint) ToLinear(v float32) float32 {
	black := f.blackOffset()
	code := float64(v) * 1023
	lin := (math.Pow(10, (code-float64(f.White))*f.exponent()) - black) / (1 - black)
	return float32(lin)
}

// FromLinear converts a linear sample to a normalized log value.
func (f FilmPrint) FromLinear(v float32) float32 {
	black := f.blackOffset()
	x := float64(v)*(1-black) + black
	if x <= 0 {
		return 0
	}
	code := float64(f.White) + math.Log10(x)/f.exponent()
	if code < 0 {
		code = 0
	}
	return float32(code / 1023)
}

// LUTSize is the number of entries in a film print lookup table.
const LUTSize = 1024

// ToLinearLUT tabulates ToLinear for every 10 bit code value.
func (f FilmPrint) ToLinearLUT() []float32 {
	lut := make([]float32, LUTSize)
	for i := range lut {
		lut[i] = f.ToLinear(float32(i) / (LUTSize - 1))
	}
	return lut
}

// FromLinearLUT tabulates FromLinear for LUTSize evenly spaced values in
// [0, 1].
func (f FilmPrint) FromLinearLUT() []float32 {
	lut := make([]float32, LUTSize)
	for i := range lut {
		lut[i] = f.FromLinear(float32(i) / (LUTSize - 1))
	}
	return lut
}

// LookupLUT reads a table built by ToLinearLUT or FromLinearLUT for a
// normalized input.
func LookupLUT(lut []float32, v float32) float32 {
	if len(lut) == 0 {
		return v
	}
	i := int(v*float32(len(lut)-1) + 0.5)
	if i < 0 {
		i = 0
	} else if i >= len(lut) {
		i = len(lut) - 1
	}
	return lut[i]
}
