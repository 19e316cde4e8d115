// Package replay reads and writes recorded detection streams as JSONL,
// one frame per line, and runs them through a tracker offline. It is
// the basis for parameter tuning: replay the same recording under
// different configurations and compare metrics.
package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/boxtrack/internal/track"
)

// Frame is one line of a recording: the frame number and its raw
// detections.
type Frame struct {
	Frame      int64             `json:"frame"`
	Detections []track.Detection `json:"detections"`
}

// Reader decodes frames from a JSONL stream.
type Reader struct {
	scanner *bufio.Scanner
	line    int
	closer  io.Closer
}

// NewReader wraps an open JSONL stream.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	// Frames with many detections exceed the default 64KB line limit.
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	return &Reader{scanner: scanner}
}

// OpenFile opens a recording file for reading. Close releases it.
func OpenFile(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording %s: %w", path, err)
	}
	r := NewReader(f)
	r.closer = f
	return r, nil
}

// ReadFrame returns the next frame, or io.EOF at end of stream. Blank
// lines are skipped.
func (r *Reader) ReadFrame() (*Frame, error) {
	for r.scanner.Scan() {
		r.line++
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var f Frame
		if err := json.Unmarshal(line, &f); err != nil {
			return nil, fmt.Errorf("bad frame at line %d: %w", r.line, err)
		}
		return &f, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return nil, io.EOF
}

// ReadAll consumes the remaining frames.
func (r *Reader) ReadAll() ([]*Frame, error) {
	var frames []*Frame
	for {
		f, err := r.ReadFrame()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
}

// Close releases the underlying file, if the reader owns one.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Writer encodes frames as JSONL.
type Writer struct {
	w      *bufio.Writer
	closer io.Closer
}

// NewWriter wraps an open stream for writing.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// CreateFile creates (or truncates) a recording file for writing.
func CreateFile(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording %s: %w", path, err)
	}
	w := NewWriter(f)
	w.closer = f
	return w, nil
}

// WriteFrame appends one frame line.
func (w *Writer) WriteFrame(f *Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame %d: %w", f.Frame, err)
	}
	if _, err := w.w.Write(data); err != nil {
		return fmt.Errorf("write frame %d: %w", f.Frame, err)
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write frame %d: %w", f.Frame, err)
	}
	return nil
}

// Close flushes buffered frames and releases the underlying file.
func (w *Writer) Close() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("flush recording: %w", err)
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
