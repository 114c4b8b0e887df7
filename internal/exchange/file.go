package exchange

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileName returns the backup file name for now: prefix_YYYY-MM-DD.json,
// .jsonl for JSON Lines, with .zst appended when compressed. The date is
// taken in UTC.
func FileName(prefix string, now time.Time, opts Options) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	name := fmt.Sprintf("%s_%s.%s", prefix, now.UTC().Format(time.DateOnly), opts.Format.orDefault())
	if opts.Compress {
		name += zstdExt
	}
	return name
}

// WriteFile atomically replaces path with data using the temp-file, fsync,
// rename pattern. A failed write leaves any existing file untouched.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".backup-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing backup: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
