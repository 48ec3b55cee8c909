package exr

import (
	"strings"

	"github.com/opd-ai/djv/pixel"
	"github.com/sirupsen/logrus"
)

// Layer maps one image layer onto channels of a part.
type Layer struct {
	Part int
	Name string
	// Channels index the part's channel list in pixel order.
	Channels []int
	Info     pixel.Info
}

// Layers groups the channels of every part into layers. Channels sharing
// a prefix before the last dot form a group. R, G and B (with A) become one
// RGB layer, Y (with A) one luminance layer, and every remaining channel a
// luminance layer of its own. Subsampled channels are skipped.
func Layers(headers []*Header) []Layer {
	var out []Layer
	for p, h := range headers {
		for _, g := range groupChannels(h.Channels) {
			out = append(out, groupLayers(p, h, g)...)
		}
	}
	return out
}

type channelGroup struct {
	prefix  string
	members []int
}

func splitChannel(name string) (prefix, base string) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

func groupChannels(list []Channel) []channelGroup {
	var groups []channelGroup
	index := map[string]int{}
	for i, c := range list {
		prefix, _ := splitChannel(c.Name)
		g, ok := index[prefix]
		if !ok {
			g = len(groups)
			index[prefix] = g
			groups = append(groups, channelGroup{prefix: prefix})
		}
		groups[g].members = append(groups[g].members, i)
	}
	return groups
}

func joinName(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ".")
}

func groupLayers(part int, h *Header, g channelGroup) []Layer {
	named := map[string]int{}
	for _, i := range g.members {
		c := h.Channels[i]
		if c.subsampled() {
			logrus.WithFields(logrus.Fields{
				"function": "groupLayers",
				"channel":  c.Name,
				"sampling": [2]int32{c.XSampling, c.YSampling},
			}).Debug("Skipping subsampled channel")
			continue
		}
		_, base := splitChannel(c.Name)
		named[strings.ToLower(base)] = i
	}
	used := map[int]bool{}
	var out []Layer
	take := func(bases ...string) []int {
		var idx []int
		for _, b := range bases {
			i, ok := named[b]
			if !ok {
				return nil
			}
			idx = append(idx, i)
		}
		if a, ok := named["a"]; ok {
			idx = append(idx, a)
		}
		return idx
	}
	chans := take("r", "g", "b")
	if chans == nil {
		chans = take("y")
	}
	if chans != nil {
		for _, i := range chans {
			used[i] = true
		}
		out = append(out, newLayer(part, joinName(h.Name, g.prefix), h, chans))
	}
	for _, i := range g.members {
		if used[i] || h.Channels[i].subsampled() {
			continue
		}
		out = append(out, newLayer(part, joinName(h.Name, h.Channels[i].Name), h, []int{i}))
	}
	return out
}

// newLayer picks F16 when every channel is half, otherwise F32.
func newLayer(part int, name string, h *Header, chans []int) Layer {
	bits := 16
	for _, i := range chans {
		if h.Channels[i].Type != PixelHalf {
			bits = 32
		}
	}
	return Layer{
		Part:     part,
		Name:     name,
		Channels: chans,
		Info: pixel.Info{
			Name:   name,
			Size:   pixel.Size{W: h.Width(), H: h.Height()},
			Type:   pixel.FloatType(len(chans), bits),
			Endian: pixel.EndianLSB,
			Align:  1,
		},
	}
}

// writeChannels returns the channel names stored for an image with n
// channels, in pixel order.
func writeChannels(n int) []string {
	switch n {
	case 1:
		return []string{"Y"}
	case 2:
		return []string{"Y", "A"}
	case 3:
		return []string{"R", "G", "B"}
	}
	return []string{"R", "G", "B", "A"}
}
