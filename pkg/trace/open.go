package trace

import (
	"path/filepath"
	"strings"
)

// Open returns the exporter for path: a no-op for "", SQLite for .db and
// .sqlite files, and a JSON Lines file otherwise. Options apply to the JSON
// Lines exporter only.
func Open(path string, opts ...FileExporterOption) (Exporter, error) {
	if path == "" {
		return &NoopExporter{}, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		exporter, err := NewSQLiteExporter(path)
		if err != nil {
			return nil, err
		}
		return exporter, nil
	}

	exporter, err := NewFileExporter(path, opts...)
	if err != nil {
		return nil, err
	}
	return exporter, nil
}
