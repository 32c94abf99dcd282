package trace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const (
	defaultMaxSizeBytes    = 10 << 20
	defaultMaxRotatedFiles = 5
)

var errExporterClosed = errors.New("trace exporter closed")

// FileExporterOption configures a FileExporter.
type FileExporterOption func(*FileExporter)

// WithMaxSize sets the size a trace file may reach before it is rotated
// (default: 10MB).
func WithMaxSize(bytes int64) FileExporterOption {
	return func(fe *FileExporter) { fe.maxSize = bytes }
}

// WithMaxRotatedFiles sets how many rotated generations are kept next to the
// live file (default: 5). Zero discards the live file on rotation.
func WithMaxRotatedFiles(count int) FileExporterOption {
	return func(fe *FileExporter) { fe.keep = count }
}

// FileExporter appends one JSON object per run to a file. Once the file
// reaches the size limit the next record starts a fresh file and the old one
// becomes path.1, path.1 becomes path.2, and so on.
type FileExporter struct {
	path    string
	maxSize int64
	keep    int

	mu     sync.Mutex
	file   *os.File
	size   int64
	closed bool
}

// NewFileExporter opens (or creates) the trace file at path, creating its
// directory as needed.
func NewFileExporter(path string, opts ...FileExporterOption) (*FileExporter, error) {
	if path == "" {
		return nil, errors.New("trace file path is empty")
	}

	fe := &FileExporter{path: path, maxSize: defaultMaxSizeBytes, keep: defaultMaxRotatedFiles}
	for _, opt := range opts {
		opt(fe)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}
	if err := fe.open(); err != nil {
		return nil, err
	}
	return fe, nil
}

func (fe *FileExporter) open() error {
	f, err := os.OpenFile(fe.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open trace file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat trace file: %w", err)
	}
	fe.file, fe.size = f, info.Size()
	return nil
}

// Export appends record as a single line.
func (fe *FileExporter) Export(ctx context.Context, record *TraceRecord) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode trace record: %w", err)
	}
	line = append(line, '\n')

	fe.mu.Lock()
	defer fe.mu.Unlock()

	if fe.closed {
		return errExporterClosed
	}
	if fe.size > 0 && fe.size >= fe.maxSize {
		if err := fe.rotate(); err != nil {
			return fmt.Errorf("rotate trace file: %w", err)
		}
	}

	n, err := fe.file.Write(line)
	fe.size += int64(n)
	if err != nil {
		return fmt.Errorf("write trace record: %w", err)
	}
	return nil
}

// Close syncs and closes the file. Later calls return nil.
func (fe *FileExporter) Close() error {
	fe.mu.Lock()
	defer fe.mu.Unlock()

	if fe.closed {
		return nil
	}
	fe.closed = true

	syncErr := fe.file.Sync()
	closeErr := fe.file.Close()
	return errors.Join(syncErr, closeErr)
}

func (fe *FileExporter) generation(n int) string {
	return fmt.Sprintf("%s.%d", fe.path, n)
}

// rotate shifts every kept generation up by one, dropping the oldest, and
// reopens an empty live file. Caller holds mu.
func (fe *FileExporter) rotate() error {
	if err := fe.file.Close(); err != nil {
		return err
	}

	if fe.keep <= 0 {
		if err := os.Remove(fe.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return fe.open()
	}

	if err := os.Remove(fe.generation(fe.keep)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	for n := fe.keep - 1; n >= 1; n-- {
		if err := os.Rename(fe.generation(n), fe.generation(n+1)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if err := os.Rename(fe.path, fe.generation(1)); err != nil {
		return err
	}
	return fe.open()
}
