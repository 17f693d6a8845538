// Package jsonl writes detection results as JSON lines.
package jsonl

import (
	"bufio"
	"encoding/json"
	"io"

	gio "github.com/hed1ad/isoforest/pkg/io"
)

var _ gio.Writer = (*Writer)(nil)

// Writer encodes one Result per line.
type Writer struct {
	buf    *bufio.Writer
	enc    *json.Encoder
	closer io.Closer
}

// NewWriter returns a writer on w. If w is an io.Closer it is closed by Close.
func NewWriter(w io.Writer) *Writer {
	buf := bufio.NewWriter(w)
	jw := &Writer{
		buf: buf,
		enc: json.NewEncoder(buf),
	}
	if c, ok := w.(io.Closer); ok {
		jw.closer = c
	}
	return jw
}

// Write outputs a single result.
func (w *Writer) Write(result gio.Result) error {
	return w.enc.Encode(result)
}

// WriteAll outputs multiple results.
func (w *Writer) WriteAll(results []gio.Result) error {
	for _, r := range results {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return w.buf.Flush()
}

// Flush writes buffered output.
func (w *Writer) Flush() error {
	return w.buf.Flush()
}

// Close flushes and releases resources.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		return err
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
