package dpx

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/opd-ai/djv/pixel"
	"github.com/opd-ai/djv/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagsRoundTrip(t *testing.T) {
	tags := pixel.Tags{
		pixel.TagTime:         "2019:03:01:12:00:00",
		pixel.TagCreator:      "darby",
		pixel.TagProject:      "shot_010",
		pixel.TagCopyright:    "(c) studio",
		pixel.TagKeycode:      "1:2:3:4:5",
		pixel.TagTimecode:     "01:02:03:04",
		TagSourceOffset:       "10 20",
		TagSourceCenter:       "1.5 2.25",
		TagSourceSize:         "2048 1556",
		TagSourceFile:         "scan.dpx",
		TagSourceBorder:       "1 2 3 4",
		TagSourcePixelAspect:  "1 1",
		TagFilmFormat:         "Academy",
		TagFilmFrame:          "12",
		TagFilmFrameRate:      "24",
		TagFilmShutter:        "180",
		TagFilmSlate:          "take 3",
		TagTVInterlace:        "0",
		TagTVSampleRate:       "48000 0.5",
		TagTVFrameRate:        "25",
		TagTVGamma:            "2.2",
		TagTVIntegrationTimes: "0.02",
	}

	h := NewHeader()
	h.SetTags(tags)
	assert.Equal(t, tags, h.Tags())

	assert.Equal(t, "01", textString(h.Film.ID[:]))
	assert.Equal(t, "000003", textString(h.Film.Prefix[:]))
	assert.Equal(t, "0004", textString(h.Film.Count[:]))
	assert.Equal(t, sequence.TimeToTimecode(1, 2, 3, 4), h.TV.Timecode)

	speed, ok := h.Speed()
	require.True(t, ok)
	assert.Equal(t, sequence.FPS25, speed)
}

func TestTagsSurviveEncoding(t *testing.T) {
	tags := pixel.Tags{
		pixel.TagCreator:     "darby",
		pixel.TagTimecode:    "10:00:00:00",
		TagFilmFrameID:       "A001",
		TagSourceInputSerial: "SN-42",
		TagTVBlackLevel:      "64",
	}
	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		h := NewHeader()
		setText(h.File.Version[:], "V2.0")
		h.Image.ElemSize = 1
		h.SetTags(tags)

		var buf bytes.Buffer
		require.NoError(t, WriteHeader(&buf, h, order))
		got, _, err := ReadHeader(&buf)
		require.NoError(t, err)
		assert.Equal(t, tags, got.Tags())
	}
}

func TestSetTagsSkipsBadValues(t *testing.T) {
	h := NewHeader()
	h.SetTags(pixel.Tags{
		TagSourceOffset:   "10",
		TagFilmFrame:      "twelve",
		TagTVInterlace:    "300",
		pixel.TagKeycode:  "1:2:3",
		pixel.TagTimecode: "1:2:3:4:5",
		TagFilmHold:       "2",
	})
	assert.Equal(t, pixel.Tags{TagFilmHold: "2"}, h.Tags())
}

func TestTextFields(t *testing.T) {
	assert.False(t, validText(nil))
	assert.False(t, validText([]byte{0, 'a'}))
	assert.False(t, validText([]byte{'a', 0xff}))
	assert.True(t, validText([]byte{'a', 'b', 0, 0xff}))

	var b [4]byte
	setText(b[:], "abcdef")
	assert.Equal(t, "abcd", textString(b[:]))
	setText(b[:], "x")
	assert.Equal(t, [4]byte{'x'}, b)
}

func TestUndefinedNumbers(t *testing.T) {
	assert.True(t, validU32(999999))
	assert.False(t, validU32(1000000))
	assert.False(t, validU32(0xffffffff))
	assert.True(t, validF32(-12.5))
	assert.False(t, validF32(2e6))
	assert.False(t, validFrameRate(0))
	assert.True(t, validFrameRate(23.976))
}
