// Package eventlog exports SimLog entries as zstd-compressed JSON lines.
package eventlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/Garsondee/frontline/internal/game"
)

// Writer appends JSON lines to a zstd stream. It is not safe for concurrent use.
type Writer struct {
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer

	synced int // SimLog entries already written by Sync
	lines  int
}

// Create opens path for writing, truncating any existing file.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, enc: enc, w: bufio.NewWriterSize(enc, 128*1024)}, nil
}

// Write appends v as one JSON line.
func (w *Writer) Write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.lines++
	return nil
}

// WriteEntries appends each entry in order.
func (w *Writer) WriteEntries(entries []game.SimLogEntry) error {
	for _, e := range entries {
		if err := w.Write(e); err != nil {
			return err
		}
	}
	return nil
}

// Sync writes the SimLog entries added since the previous Sync.
func (w *Writer) Sync(sl *game.SimLog) error {
	fresh := sl.Since(w.synced)
	if err := w.WriteEntries(fresh); err != nil {
		return err
	}
	w.synced += len(fresh)
	return nil
}

// Lines is how many lines have been written.
func (w *Writer) Lines() int { return w.lines }

// Close flushes and closes the stream.
func (w *Writer) Close() error {
	var errs []error
	if w.w != nil {
		errs = append(errs, w.w.Flush())
		w.w = nil
	}
	if w.enc != nil {
		errs = append(errs, w.enc.Close())
		w.enc = nil
	}
	if w.f != nil {
		errs = append(errs, w.f.Close())
		w.f = nil
	}
	return errors.Join(errs...)
}

// ReadEntries decodes a whole event log.
func ReadEntries(path string) ([]game.SimLogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads zstd-compressed JSON lines of SimLog entries from r.
func Decode(r io.Reader) ([]game.SimLogEntry, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []game.SimLogEntry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e game.SimLogEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
