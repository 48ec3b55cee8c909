package imageio

import (
	"fmt"

	"github.com/opd-ai/djv/fileinfo"
	"github.com/opd-ai/djv/pixel"
	"github.com/sirupsen/logrus"
)

// FrameDecoder reads single image files.
type FrameDecoder interface {
	// DecodeInfo reads only the header of path.
	DecodeInfo(path string) (Info, error)
	Decode(path string) (*pixel.Image, error)
}

// LayerDecoder is implemented by FrameDecoders whose files hold more than
// one layer. Layer indexes follow Info.Layers and are clamped.
type LayerDecoder interface {
	DecodeLayer(path string, layer int) (*pixel.Image, error)
}

// FrameEncoder writes single image files.
type FrameEncoder interface {
	Encode(path string, img *pixel.Image) error
}

// WriteGuard enforces increasing frame order and single finalization for
// Writer implementations.
type WriteGuard struct {
	started bool
	closed  bool
	last    int64

	prevStarted bool
	prevLast    int64
}

// Next records frame as written. It fails when the writer is closed or
// frame does not follow the previous one.
func (g *WriteGuard) Next(frame int64) error {
	if g.closed {
		return ErrClosed
	}
	if g.started && frame <= g.last {
		return fmt.Errorf("%w: frame %d after %d", ErrFrameOrder, frame, g.last)
	}
	g.prevStarted, g.prevLast = g.started, g.last
	g.started = true
	g.last = frame
	return nil
}

// Undo forgets the frame recorded by the last successful Next so a failed
// write of that frame can be retried.
func (g *WriteGuard) Undo() {
	g.started, g.last = g.prevStarted, g.prevLast
}

// Close marks the writer closed and reports whether this was the first
// call.
func (g *WriteGuard) Close() bool {
	if g.closed {
		return false
	}
	g.closed = true
	return true
}

// Closed reports whether Close has been called.
func (g *WriteGuard) Closed() bool {
	return g.closed
}

// Started reports whether any frame has been written.
func (g *WriteGuard) Started() bool {
	return g.started
}

type sequenceReader struct {
	fi      fileinfo.FileInfo
	decoder FrameDecoder
	pool    *ThreadPool
	closed  bool
}

// NewSequenceReader opens fi for reading one file per frame. The header of
// the first frame describes the whole sequence.
func NewSequenceReader(fi fileinfo.FileInfo, decoder FrameDecoder) (Reader, Info, error) {
	path := fi.Path()
	if fi.Type == fileinfo.Sequence && !fi.IsSequenceWildcard() {
		path = fi.FileName(fi.Sequence.Frame(0))
	}
	info, err := decoder.DecodeInfo(path)
	if err != nil {
		return nil, Info{}, err
	}
	info.FileName = fi.Path()
	if fi.Type == fileinfo.Sequence {
		speed := info.Sequence.Speed
		info.Sequence = fi.Sequence
		if speed.IsValid() {
			info.Sequence.Speed = speed
		}
	}
	if info.Tags == nil {
		info.Tags = pixel.Tags{}
	}

	logrus.WithFields(logrus.Fields{
		"function":  "NewSequenceReader",
		"file_name": info.FileName,
		"frames":    info.Sequence.Len(),
		"layer":     info.Layer(0).String(),
	}).Debug("Opened sequence for read")

	return &sequenceReader{fi: fi, decoder: decoder, pool: AcquireThreadPool(0)}, info, nil
}

func (r *sequenceReader) ReadFrame(frame FrameInfo) (*pixel.Image, error) {
	if r.closed {
		return nil, ErrClosed
	}
	path := r.fi.FileName(frame.Frame)
	var img *pixel.Image
	var err error
	if ld, ok := r.decoder.(LayerDecoder); ok {
		img, err = ld.DecodeLayer(path, frame.Layer)
	} else {
		img, err = r.decoder.Decode(path)
	}
	if err != nil {
		return nil, err
	}
	if frame.Proxy > pixel.ProxyNone {
		img = ProxyReduce(img, frame.Proxy, r.pool)
	}
	return img, nil
}

func (r *sequenceReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.pool.Release()
	return nil
}

type sequenceWriter struct {
	fi      fileinfo.FileInfo
	encoder FrameEncoder
	guard   WriteGuard
}

// NewSequenceWriter opens fi for writing one file per frame.
func NewSequenceWriter(fi fileinfo.FileInfo, encoder FrameEncoder) Writer {
	return &sequenceWriter{fi: fi, encoder: encoder}
}

func (w *sequenceWriter) WriteFrame(img *pixel.Image, frame FrameInfo) error {
	if err := w.guard.Next(frame.Frame); err != nil {
		return NewError("write", w.fi.Path(), err)
	}
	if err := w.encoder.Encode(w.fi.FileName(frame.Frame), img); err != nil {
		w.guard.Undo()
		return err
	}
	return nil
}

func (w *sequenceWriter) Close() error {
	w.guard.Close()
	return nil
}
