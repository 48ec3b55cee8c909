package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgsValues(t *testing.T) {
	a := NewArgs([]string{"-crop", "1", "2", "30", "40", "-scale", "0.5", "-tags_auto", "off", "rest"})

	flag, ok := a.Next()
	require.True(t, ok)
	assert.Equal(t, "-crop", flag)
	box, err := a.Ints(flag, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 30, 40}, box)

	flag, _ = a.Next()
	scale, err := a.Float(flag)
	require.NoError(t, err)
	assert.Equal(t, 0.5, scale)

	flag, _ = a.Next()
	on, err := a.Bool(flag)
	require.NoError(t, err)
	assert.False(t, on)

	rest, ok := a.Next()
	assert.True(t, ok)
	assert.Equal(t, "rest", rest)
	_, ok = a.Next()
	assert.False(t, ok)
}

func TestArgsErrors(t *testing.T) {
	_, err := NewArgs(nil).String("-layer")
	assert.ErrorIs(t, err, ErrMissingValue)

	_, err = NewArgs([]string{"two"}).Int("-layer")
	assert.ErrorIs(t, err, ErrBadValue)

	_, err = NewArgs([]string{"1", "x"}).Floats("-scale_separate", 2)
	assert.ErrorIs(t, err, ErrBadValue)

	_, err = NewArgs([]string{"sometimes"}).Bool("-seq")
	assert.ErrorIs(t, err, ErrBadValue)
}

func TestIsFlag(t *testing.T) {
	assert.True(t, IsFlag("-scale"))
	assert.True(t, IsFlag("-dpx_version"))
	assert.False(t, IsFlag("-"))
	assert.False(t, IsFlag("-5"))
	assert.False(t, IsFlag("-0.25"))
	assert.False(t, IsFlag("input.dpx"))
	assert.True(t, IsHelp("-help"))
	assert.False(t, IsHelp("help"))
}

func TestLogOptions(t *testing.T) {
	var o LogOptions
	handled, err := o.ParseFlag("-log_level", NewArgs([]string{"debug"}))
	assert.True(t, handled)
	require.NoError(t, err)
	assert.Equal(t, "debug", o.Level)

	handled, err = o.ParseFlag("-log_level", NewArgs([]string{"chatty"}))
	assert.True(t, handled)
	assert.ErrorIs(t, err, ErrBadValue)

	handled, _ = o.ParseFlag("-log_json", NewArgs(nil))
	assert.True(t, handled)
	assert.True(t, o.JSON)

	handled, _ = o.ParseFlag("-scale", NewArgs(nil))
	assert.False(t, handled)
}

func TestConfigureLogging(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)
	defer logrus.SetLevel(logrus.InfoLevel)
	defer logrus.SetFormatter(&logrus.TextFormatter{})

	var buf bytes.Buffer
	t.Setenv(EnvLogLevel, "error")
	ConfigureLogging(LogOptions{}, &buf)
	assert.Equal(t, logrus.ErrorLevel, logrus.GetLevel())

	ConfigureLogging(LogOptions{Level: "debug", JSON: true}, &buf)
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	logrus.WithField("function", "TestConfigureLogging").Debug("hello")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])

	t.Setenv(EnvLogLevel, "")
	ConfigureLogging(LogOptions{}, &buf)
	assert.Equal(t, DefaultLogLevel, logrus.GetLevel())
}
