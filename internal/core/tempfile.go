package core

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// withTempFile writes data to a transient file and invokes fn with its path.
// The file is removed when fn returns, on success and failure alike; a
// removal failure is logged and does not override fn's result.
//
// The original filename's extension is preserved so downstream parsers can
// dispatch on it.
func withTempFile(dir, filename string, data []byte, fn func(path string) error) error {
	pattern := "upload-*" + filepath.Ext(filename)
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()

	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			slog.Error("temp file cleanup failed", "path", path, "error", rmErr)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	return fn(path)
}
