// Package y4m reads and writes YUV4MPEG2 streams, a single file movie
// container of uncompressed 8 bit YCbCr frames.
//
// Frames are numbered from zero. Colour frames decode to RGB U8 and mono
// streams to L U8, using BT.601 studio range coefficients.
package y4m

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/opd-ai/djv/fileinfo"
	"github.com/opd-ai/djv/imageio"
	"github.com/opd-ai/djv/limits"
	"github.com/opd-ai/djv/pixel"
	"github.com/opd-ai/djv/sequence"
	"github.com/sirupsen/logrus"
)

// PluginName is the registry name and option prefix.
const PluginName = "y4m"

// Options configure the writer.
type Options struct {
	Chroma Chroma
}

// DefaultOptions writes 4:2:0 streams.
func DefaultOptions() Options {
	return Options{Chroma: Chroma420JPEG}
}

// Plugin is the YUV4MPEG2 codec plugin.
type Plugin struct {
	mu   sync.RWMutex
	opts Options
}

// NewPlugin creates a plugin with DefaultOptions.
func NewPlugin() *Plugin {
	return &Plugin{opts: DefaultOptions()}
}

func (p *Plugin) Name() string         { return PluginName }
func (p *Plugin) Extensions() []string { return []string{".y4m"} }

func (p *Plugin) Capabilities() imageio.Capabilities {
	return imageio.Capabilities{RandomAccess: true, OneShot: true}
}

func (p *Plugin) Probe(path string) bool {
	return imageio.HasExtension(path, p.Extensions())
}

// Options returns a copy of the current options.
func (p *Plugin) Options() Options {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.opts
}

// SetOption accepts "chroma".
func (p *Plugin) SetOption(name, value string) error {
	if name != "chroma" {
		return fmt.Errorf("%w: %s", imageio.ErrUnknownOption, name)
	}
	c, err := ParseChroma(value)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opts.Chroma = c
	return nil
}

func (p *Plugin) OptionNames() []string { return []string{"chroma"} }

// WriteType stores L U8 for mono streams and RGB U8 otherwise.
func (p *Plugin) WriteType(pixel.Type) pixel.Type {
	if p.Options().Chroma == ChromaMono {
		return pixel.LU8
	}
	return pixel.RGBU8
}

// OpenRead indexes every frame of the stream.
func (p *Plugin) OpenRead(fi fileinfo.FileInfo) (imageio.Reader, imageio.Info, error) {
	path := fi.Path()
	f, err := os.Open(path)
	if err != nil {
		return nil, imageio.Info{}, imageio.NewError("open", path, err)
	}
	r := &reader{f: f, path: path}
	if err := r.index(); err != nil {
		f.Close()
		return nil, imageio.Info{}, imageio.NewError("open", path, err)
	}
	r.pool = imageio.AcquireThreadPool(0)

	layer := pixel.NewInfo(r.header.Size, pixel.RGBU8)
	if r.header.Chroma == ChromaMono {
		layer.Type = pixel.LU8
	}
	info := imageio.NewInfo(path, layer)
	info.Sequence = sequence.NewRange(0, int64(len(r.offsets)-1), 0, r.header.Speed)

	logrus.WithFields(logrus.Fields{
		"function": "Plugin.OpenRead",
		"file":     path,
		"frames":   len(r.offsets),
		"chroma":   r.header.Chroma.String(),
		"speed":    r.header.Speed.String(),
	}).Debug("Indexed Y4M stream")
	return r, info, nil
}

// OpenWrite creates the file and writes the stream header. The frame size
// is taken from the first layer of info.
func (p *Plugin) OpenWrite(fi fileinfo.FileInfo, info imageio.Info) (imageio.Writer, error) {
	path := fi.Path()
	size := info.Layer(0).Size
	if !size.IsValid() {
		return nil, imageio.NewError("write", path, fmt.Errorf("%w: size %s", imageio.ErrUnsupportedFile, size))
	}
	speed := info.Sequence.Speed
	if !speed.IsValid() {
		speed = sequence.DefaultSpeed
	}
	header := NewStreamHeader(size, speed, p.Options().Chroma)

	f, err := os.Create(path)
	if err != nil {
		return nil, imageio.NewError("write", path, err)
	}
	w := &writer{
		f:      f,
		path:   path,
		header: header,
		frame:  newFrame(size, header.Chroma),
		pool:   imageio.AcquireThreadPool(0),
	}
	if err := w.commit([]byte(header.String() + "\n")); err != nil {
		w.pool.Release()
		f.Close()
		return nil, imageio.NewError("write", path, err)
	}
	logrus.WithFields(logrus.Fields{
		"function": "Plugin.OpenWrite",
		"file":     path,
		"header":   header.String(),
	}).Debug("Opened Y4M stream for write")
	return w, nil
}

type reader struct {
	mu      sync.Mutex
	f       *os.File
	path    string
	header  StreamHeader
	offsets []int64
	pool    *imageio.ThreadPool
	closed  bool
}

// readLine reads a newline terminated line starting at off.
func readLine(r io.ReaderAt, off int64) (string, error) {
	br := bufio.NewReaderSize(io.NewSectionReader(r, off, maxLineLength), 256)
	line, err := br.ReadString('\n')
	if err != nil {
		if err == io.EOF && line == "" {
			return "", io.EOF
		}
		return "", fmt.Errorf("%w: unterminated header line", imageio.ErrIncompleteFile)
	}
	return line, nil
}

// index parses the stream header and records the payload offset of every
// frame. A truncated final frame is dropped.
func (r *reader) index() error {
	st, err := r.f.Stat()
	if err != nil {
		return err
	}
	line, err := readLine(r.f, 0)
	if err == io.EOF {
		return fmt.Errorf("%w: empty file", imageio.ErrIncompleteFile)
	}
	if err != nil {
		return err
	}
	if r.header, err = ParseStreamHeader(strings.TrimSuffix(line, "\n")); err != nil {
		return err
	}

	frameBytes := r.header.Chroma.FrameBytes(r.header.Size)
	pos := int64(len(line))
	for pos < st.Size() {
		if _, err := limits.CheckFrameCount(int64(len(r.offsets)) + 1); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "reader.index",
				"file":     r.path,
				"frames":   len(r.offsets),
				"error":    err.Error(),
			}).Warn("Truncating Y4M stream")
			break
		}
		line, err := readLine(r.f, pos)
		if err != nil {
			return err
		}
		if !strings.HasPrefix(line, frameMagic) {
			return fmt.Errorf("%w: frame %d header %.16q", imageio.ErrUnsupportedFile, len(r.offsets), line)
		}
		data := pos + int64(len(line))
		if data+frameBytes > st.Size() {
			logrus.WithFields(logrus.Fields{
				"function": "reader.index",
				"file":     r.path,
				"frame":    len(r.offsets),
			}).Warn("Ignoring truncated Y4M frame")
			break
		}
		r.offsets = append(r.offsets, data)
		pos = data + frameBytes
	}
	if len(r.offsets) == 0 {
		return fmt.Errorf("%w: no frames", imageio.ErrIncompleteFile)
	}
	return nil
}

func (r *reader) ReadFrame(fr imageio.FrameInfo) (*pixel.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, imageio.ErrClosed
	}
	if fr.Frame < 0 || fr.Frame >= int64(len(r.offsets)) {
		return nil, imageio.NewError("read", r.path, fmt.Errorf("%w: frame %d of %d", imageio.ErrIncompleteFile, fr.Frame, len(r.offsets)))
	}

	f := newFrame(r.header.Size, r.header.Chroma)
	off := r.offsets[fr.Frame]
	for _, p := range f.planes() {
		if _, err := r.f.ReadAt(p.Pix, off); err != nil {
			return nil, imageio.NewError("read", r.path, fmt.Errorf("%w: frame %d: %v", imageio.ErrIncompleteFile, fr.Frame, err))
		}
		off += int64(len(p.Pix))
	}
	img, err := f.decode(r.pool)
	if err != nil {
		return nil, imageio.NewError("read", r.path, err)
	}
	if fr.Proxy > pixel.ProxyNone {
		img = imageio.ProxyReduce(img, fr.Proxy, r.pool)
	}
	return img, nil
}

func (r *reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.pool.Release()
	return r.f.Close()
}

// file is the part of *os.File the writer needs.
type file interface {
	io.WriterAt
	Truncate(size int64) error
	Close() error
}

type writer struct {
	f      file
	path   string
	header StreamHeader
	frame  *frame
	pool   *imageio.ThreadPool
	guard  imageio.WriteGuard
	// offset is the end of the last complete frame. A failed write leaves
	// it unchanged so the frame can be written again in place.
	offset int64
	buf    []byte
}

func (w *writer) commit(data []byte) error {
	n, err := w.f.WriteAt(data, w.offset)
	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return err
	}
	w.offset += int64(n)
	return nil
}

func (w *writer) WriteFrame(img *pixel.Image, fr imageio.FrameInfo) error {
	if err := w.guard.Next(fr.Frame); err != nil {
		return imageio.NewError("write", w.path, err)
	}
	if img.Size != w.header.Size {
		w.guard.Undo()
		return imageio.NewError("write", w.path, fmt.Errorf("%w: frame %s, stream %s", pixel.ErrSizeMismatch, img.Size, w.header.Size))
	}
	if err := w.frame.encode(img, w.pool); err != nil {
		w.guard.Undo()
		return imageio.NewError("write", w.path, err)
	}
	w.buf = append(w.buf[:0], frameMagic+"\n"...)
	for _, p := range w.frame.planes() {
		w.buf = append(w.buf, p.Pix...)
	}
	if err := w.commit(w.buf); err != nil {
		w.guard.Undo()
		return imageio.NewError("write", w.path, err)
	}
	return nil
}

func (w *writer) Close() error {
	if !w.guard.Close() {
		return nil
	}
	w.pool.Release()
	// Drop anything a failed frame left past the last complete one.
	err := w.f.Truncate(w.offset)
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return imageio.NewError("close", w.path, err)
	}
	if !w.guard.Started() {
		logrus.WithFields(logrus.Fields{
			"function": "writer.Close",
			"file":     w.path,
		}).Warn("Closed Y4M stream without frames")
	}
	return nil
}
