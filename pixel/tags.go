package pixel

import "sort"

// Standard tag names.
const (
	TagProject     = "Project"
	TagCreator     = "Creator"
	TagDescription = "Description"
	TagCopyright   = "Copyright"
	TagTime        = "Time"
	TagUTCOffset   = "UTC Offset"
	TagKeycode     = "Keycode"
	TagTimecode    = "Timecode"
)

// StandardTags lists the tag names every codec understands.
var StandardTags = []string{
	TagProject, TagCreator, TagDescription, TagCopyright,
	TagTime, TagUTCOffset, TagKeycode, TagTimecode,
}

// Tags is free form image metadata.
type Tags map[string]string

// Get returns the value of a tag, or "".
func (t Tags) Get(name string) string {
	return t[name]
}

// Has reports whether a tag is set.
func (t Tags) Has(name string) bool {
	_, ok := t[name]
	return ok
}

// Clone returns an independent copy.
func (t Tags) Clone() Tags {
	out := make(Tags, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Merge returns a copy of t with every tag of overlay applied on top.
func (t Tags) Merge(overlay Tags) Tags {
	out := t.Clone()
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// Keys returns the tag names in sorted order.
func (t Tags) Keys() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
