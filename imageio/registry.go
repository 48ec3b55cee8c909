package imageio

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opd-ai/djv/fileinfo"
	"github.com/sirupsen/logrus"
)

// Registry maps file extensions to plugins. It is built once and is safe
// for concurrent lookups afterwards.
type Registry struct {
	plugins []Plugin
	byName  map[string]Plugin
	byExt   map[string]Plugin
}

// NewRegistry registers plugins in order. Two plugins with the same name or
// a shared extension are rejected.
func NewRegistry(plugins ...Plugin) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]Plugin, len(plugins)),
		byExt:  make(map[string]Plugin),
	}
	for _, p := range plugins {
		name := strings.ToLower(p.Name())
		if _, exists := r.byName[name]; exists {
			return nil, fmt.Errorf("%w: name %q", ErrDuplicatePlugin, name)
		}
		for _, ext := range p.Extensions() {
			ext = strings.ToLower(ext)
			if other, exists := r.byExt[ext]; exists {
				return nil, fmt.Errorf("%w: extension %q claimed by %s and %s", ErrDuplicatePlugin, ext, other.Name(), p.Name())
			}
			r.byExt[ext] = p
		}
		r.byName[name] = p
		r.plugins = append(r.plugins, p)

		logrus.WithFields(logrus.Fields{
			"function":   "NewRegistry",
			"plugin":     p.Name(),
			"extensions": p.Extensions(),
		}).Debug("Registered image I/O plugin")
	}
	return r, nil
}

// Plugins returns the registered plugins in registration order.
func (r *Registry) Plugins() []Plugin {
	return append([]Plugin(nil), r.plugins...)
}

// Plugin returns the plugin with the given name.
func (r *Registry) Plugin(name string) (Plugin, bool) {
	p, ok := r.byName[strings.ToLower(name)]
	return p, ok
}

// Extensions returns every registered extension in sorted order.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the plugin for fi's extension.
func (r *Registry) Lookup(fi fileinfo.FileInfo) (Plugin, error) {
	ext := fi.Extension()
	if p, ok := r.byExt[ext]; ok {
		return p, nil
	}
	return nil, NewError("lookup", fi.Path(), fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext))
}

// OpenRead opens fi with the plugin registered for its extension.
func (r *Registry) OpenRead(fi fileinfo.FileInfo) (Reader, Info, error) {
	p, err := r.Lookup(fi)
	if err != nil {
		return nil, Info{}, err
	}
	logrus.WithFields(logrus.Fields{
		"function":  "Registry.OpenRead",
		"plugin":    p.Name(),
		"file_name": fi.Path(),
	}).Debug("Opening for read")
	return p.OpenRead(fi)
}

// OpenWrite creates fi with the plugin registered for its extension.
func (r *Registry) OpenWrite(fi fileinfo.FileInfo, info Info) (Writer, error) {
	p, err := r.Lookup(fi)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"function":  "Registry.OpenWrite",
		"plugin":    p.Name(),
		"file_name": fi.Path(),
	}).Debug("Opening for write")
	return p.OpenWrite(fi, info)
}

// OptionFlags returns the command line spelling of every plugin option,
// "<plugin>_<option>".
func (r *Registry) OptionFlags() []string {
	var out []string
	for _, p := range r.plugins {
		setter, ok := p.(OptionSetter)
		if !ok {
			continue
		}
		for _, name := range setter.OptionNames() {
			out = append(out, strings.ToLower(p.Name())+"_"+name)
		}
	}
	sort.Strings(out)
	return out
}

// SetOption routes a "<plugin>_<option>" flag to its plugin.
func (r *Registry) SetOption(flag, value string) error {
	flag = strings.TrimLeft(strings.ToLower(flag), "-")
	for _, p := range r.plugins {
		prefix := strings.ToLower(p.Name()) + "_"
		if !strings.HasPrefix(flag, prefix) {
			continue
		}
		setter, ok := p.(OptionSetter)
		if !ok {
			break
		}
		return setter.SetOption(strings.TrimPrefix(flag, prefix), value)
	}
	return fmt.Errorf("%w: %q", ErrUnknownOption, flag)
}
