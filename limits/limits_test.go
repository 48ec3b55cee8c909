package limits

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckFrameCount(t *testing.T) {
	defer SetMaxSequenceFrames(DefaultMaxSequenceFrames)
	SetMaxSequenceFrames(10)

	tests := []struct {
		name    string
		input   int64
		want    int64
		wantErr bool
	}{
		{"zero", 0, 0, false},
		{"under", 9, 9, false},
		{"at limit", 10, 10, false},
		{"over", 11, 10, true},
		{"far over", 1 << 40, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckFrameCount(tt.input)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrSequenceRangeExceeded))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSetMaxSequenceFramesRestoresDefault(t *testing.T) {
	defer SetMaxSequenceFrames(DefaultMaxSequenceFrames)

	SetMaxSequenceFrames(5)
	assert.Equal(t, int64(5), MaxSequenceFrames())

	SetMaxSequenceFrames(0)
	assert.Equal(t, int64(DefaultMaxSequenceFrames), MaxSequenceFrames())

	SetMaxSequenceFrames(-3)
	assert.Equal(t, int64(DefaultMaxSequenceFrames), MaxSequenceFrames())
}

func TestValidateTimeout(t *testing.T) {
	assert.NoError(t, ValidateTimeout(0))
	assert.NoError(t, ValidateTimeout(30))
	assert.NoError(t, ValidateTimeout(MaxTimeoutSeconds))
	assert.ErrorIs(t, ValidateTimeout(-1), ErrInvalidTimeout)
	assert.ErrorIs(t, ValidateTimeout(MaxTimeoutSeconds+1), ErrInvalidTimeout)
}

func TestApplyEnvironmentOverrides(t *testing.T) {
	defer SetMaxSequenceFrames(DefaultMaxSequenceFrames)

	t.Run("valid value", func(t *testing.T) {
		t.Setenv(EnvMaxSequenceFrames, "250")
		ApplyEnvironmentOverrides()
		assert.Equal(t, int64(250), MaxSequenceFrames())
	})

	t.Run("invalid value is ignored", func(t *testing.T) {
		SetMaxSequenceFrames(DefaultMaxSequenceFrames)
		t.Setenv(EnvMaxSequenceFrames, "lots")
		ApplyEnvironmentOverrides()
		assert.Equal(t, int64(DefaultMaxSequenceFrames), MaxSequenceFrames())
	})

	t.Run("negative value is ignored", func(t *testing.T) {
		SetMaxSequenceFrames(DefaultMaxSequenceFrames)
		t.Setenv(EnvMaxSequenceFrames, "-7")
		ApplyEnvironmentOverrides()
		assert.Equal(t, int64(DefaultMaxSequenceFrames), MaxSequenceFrames())
	})
}

func BenchmarkCheckFrameCount(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = CheckFrameCount(int64(i))
	}
}
