package sampler

import (
	"bytes"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/joule-sh/joule/pkg/types"
)

// Records in the shared file are separated by a single null byte.
const recordSeparator = 0x00

// Tunable bounds for the shared-file reader. The tail window must exceed the
// largest single record the helper can produce.
const (
	DefaultTailWindow        = 64 * 1024
	DefaultMinRecordSize     = 128
	DefaultTruncateThreshold = 4 << 20
)

// FileReader consumes the privileged helper's ever-growing output file
// without ever loading it in full. It keeps the last successfully decoded
// metrics so a malformed tail (partial write, truncation race) degrades to
// last-known values instead of failing.
type FileReader struct {
	path string

	// Tunables; adjust before first use.
	TailWindow        int64
	MinRecordSize     int
	TruncateThreshold int64

	mu           sync.Mutex
	lastModTime  time.Time
	lastMetrics  *types.SamplerMetrics
	lastTruncate time.Time
}

func NewFileReader(path string) *FileReader {
	return &FileReader{
		path:              path,
		TailWindow:        DefaultTailWindow,
		MinRecordSize:     DefaultMinRecordSize,
		TruncateThreshold: DefaultTruncateThreshold,
	}
}

// Latest returns the most recent metrics and whether this call decoded a new
// record. A missing file, an unchanged modification time, or an unparseable
// tail all return the last-known metrics with updated=false.
func (r *FileReader) Latest() (*types.SamplerMetrics, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, err := os.Stat(r.path)
	if err != nil {
		return r.lastMetrics, false
	}

	// The helper appends continuously; an unchanged mtime means there is
	// nothing new to parse.
	if st.ModTime().Equal(r.lastModTime) {
		return r.lastMetrics, false
	}

	buf, err := r.readTail()
	if err != nil {
		logrus.WithField("path", r.path).Debugf("sampler tail read failed: %v", err)
		return r.lastMetrics, false
	}

	// Remember the mtime even when the tail turns out malformed, so a
	// stalled writer does not cause the same bad bytes to be re-parsed
	// every tick.
	r.lastModTime = st.ModTime()

	candidate := lastChunk(buf)
	if len(candidate) < r.MinRecordSize {
		logrus.WithFields(logrus.Fields{
			"path": r.path,
			"size": len(candidate),
		}).Debug("sampler tail below minimum plausible record size, skipping")
		return r.lastMetrics, false
	}

	rec, err := DecodeRecord(candidate)
	if err != nil {
		// Expected right after a truncation raced the writer; the next
		// append makes the tail whole again.
		logrus.WithField("path", r.path).Debugf("sampler tail undecodable, keeping last-known: %v", err)
		return r.lastMetrics, false
	}

	r.lastMetrics = rec.Metrics()
	return r.lastMetrics, true
}

// Truncate rewrites the file down to its last complete record once it has
// grown past the threshold. Best-effort: the append-only writer may interleave
// a write, which the next Latest call detects and tolerates.
func (r *FileReader) Truncate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, err := os.Stat(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "failed to stat sampler file")
	}

	if st.Size() < r.TruncateThreshold {
		return nil
	}

	buf, err := r.readTail()
	if err != nil {
		return errors.Wrap(err, "failed to read sampler tail")
	}

	record, ok := r.lastCompleteRecord(buf)
	if !ok {
		return errors.New("no complete record in sampler tail")
	}

	f, err := os.OpenFile(r.path, os.O_WRONLY, 0)
	if err != nil {
		return errors.Wrap(err, "failed to open sampler file for truncation")
	}
	defer f.Close()

	if _, err := f.WriteAt(record, 0); err != nil {
		return errors.Wrap(err, "failed to rewrite sampler file")
	}
	if err := f.Truncate(int64(len(record))); err != nil {
		return errors.Wrap(err, "failed to truncate sampler file")
	}

	r.lastTruncate = time.Now()
	// Force a fresh parse on the next Latest call.
	r.lastModTime = time.Time{}

	logrus.WithFields(logrus.Fields{
		"path": r.path,
		"from": st.Size(),
		"to":   len(record),
	}).Debug("sampler file truncated")

	return nil
}

// LastTruncateTime reports when Truncate last rewrote the file.
func (r *FileReader) LastTruncateTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastTruncate
}

// LastModTime reports the modification time of the last consumed write.
func (r *FileReader) LastModTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastModTime
}

// readTail reads at most TailWindow bytes from the end of the file.
func (r *FileReader) readTail() ([]byte, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}

	offset := st.Size() - r.TailWindow
	if offset < 0 {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	return io.ReadAll(f)
}

// lastChunk returns the bytes after the last record separator in the window,
// or the whole window if no separator is present.
func lastChunk(buf []byte) []byte {
	buf = bytes.TrimRight(buf, "\x00")
	idx := bytes.LastIndexByte(buf, recordSeparator)
	if idx < 0 {
		return buf
	}
	return buf[idx+1:]
}

// lastCompleteRecord walks chunks from the end of the window until one
// decodes, so a half-written trailing record is skipped rather than kept.
func (r *FileReader) lastCompleteRecord(buf []byte) ([]byte, bool) {
	chunks := bytes.Split(bytes.TrimRight(buf, "\x00"), []byte{recordSeparator})
	for i := len(chunks) - 1; i >= 0; i-- {
		chunk := chunks[i]
		if len(chunk) < r.MinRecordSize {
			continue
		}
		if _, err := DecodeRecord(chunk); err != nil {
			continue
		}
		return chunk, true
	}
	return nil, false
}
