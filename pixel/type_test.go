package pixel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeProperties(t *testing.T) {
	tests := []struct {
		typ      Type
		channels int
		bits     int
		bytes    int
		float    bool
		label    string
	}{
		{LU8, 1, 8, 1, false, "L U8"},
		{LAU16, 2, 16, 4, false, "LA U16"},
		{RGBU10, 3, 10, 4, false, "RGB U10"},
		{RGBU16, 3, 16, 6, false, "RGB U16"},
		{RGBF16, 3, 16, 6, true, "RGB F16"},
		{RGBAF32, 4, 32, 16, true, "RGBA F32"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.channels, tt.typ.Channels())
			assert.Equal(t, tt.bits, tt.typ.BitDepth())
			assert.Equal(t, tt.bytes, tt.typ.ByteCount())
			assert.Equal(t, tt.float, tt.typ.IsFloat())
			assert.Equal(t, tt.label, tt.typ.String())
		})
	}
}

func TestEveryTypeHasByteCount(t *testing.T) {
	for _, typ := range Types() {
		assert.Greater(t, typ.ByteCount(), 0, typ.String())
	}
	assert.False(t, TypeNone.IsValid())
	assert.False(t, Type(99).IsValid())
}

func TestParseType(t *testing.T) {
	for _, input := range []string{"RGB U16", "rgb_u16", "rgbu16", " RGB-U16 "} {
		typ, err := ParseType(input)
		require.NoError(t, err, input)
		assert.Equal(t, RGBU16, typ)
	}
	for _, typ := range Types() {
		got, err := ParseType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
	_, err := ParseType("CMYK U8")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestIntAndFloatType(t *testing.T) {
	assert.Equal(t, RGBU10, IntType(3, 10))
	assert.Equal(t, LAU8, IntType(2, 8))
	assert.Equal(t, TypeNone, IntType(3, 12))
	assert.Equal(t, RGBAF16, FloatType(4, 16))
	assert.Equal(t, TypeNone, FloatType(3, 8))
}

func TestProxyScale(t *testing.T) {
	sizes := []Size{{1, 1}, {2, 3}, {1920, 1080}, {1921, 1079}, {7, 9}}
	for _, s := range sizes {
		assert.Equal(t, s, ProxyScale(s, ProxyNone))
		for level := Proxy1_2; level <= Proxy1_8; level++ {
			div := float64(int(1) << uint(level))
			got := ProxyScale(s, level)
			assert.Equal(t, int(ceil(float64(s.W)/div)), got.W, "%s %s", s, level)
			assert.Equal(t, int(ceil(float64(s.H)/div)), got.H, "%s %s", s, level)
			assert.True(t, got.IsValid())
		}
	}
}

func ceil(v float64) float64 {
	i := float64(int(v))
	if v > i {
		return i + 1
	}
	return i
}

func TestParseProxy(t *testing.T) {
	p, err := ParseProxy("1/4")
	require.NoError(t, err)
	assert.Equal(t, Proxy1_4, p)

	p, err = ParseProxy("3")
	require.NoError(t, err)
	assert.Equal(t, Proxy1_8, p)

	p, err = ParseProxy("None")
	require.NoError(t, err)
	assert.Equal(t, ProxyNone, p)

	_, err = ParseProxy("1/16")
	assert.Error(t, err)
}
