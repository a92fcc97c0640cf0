package fsx

import "fmt"
import "os"
import "path/filepath"
import "time"

const (
	appendLockTimeout    = 30 * time.Second
	appendLockRetry      = 10 * time.Millisecond
	appendLockStaleAfter = 2 * time.Minute
)

// AppendLineLocked appends one newline-terminated record under a
// cross-process lock file and fsyncs before returning.
func AppendLineLocked(path string, line []byte, mode os.FileMode) error {
	cleanPath := filepath.Clean(path)
	if parent := filepath.Dir(cleanPath); parent != "." {
		if err := os.MkdirAll(parent, 0o750); err != nil {
			return fmt.Errorf("create append directory: %w", err)
		}
	}
	payload := make([]byte, 0, len(line)+1)
	payload = append(payload, line...)
	payload = append(payload, '\n')

	return withLock(cleanPath, func() error {
		// #nosec G304 -- append path comes from the resolved descriptor.
		file, err := os.OpenFile(cleanPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, mode)
		if err != nil {
			return fmt.Errorf("open append file: %w", err)
		}
		defer func() {
			_ = file.Close()
		}()
		if _, err := file.Write(payload); err != nil {
			return fmt.Errorf("append file line: %w", err)
		}
		if err := file.Sync(); err != nil {
			return fmt.Errorf("sync append file: %w", err)
		}
		return nil
	})
}

func withLock(path string, fn func() error) error {
	lockPath := path + ".lock"
	start := time.Now()
	for {
		lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_ = lockFile.Close()
			defer func() {
				_ = os.Remove(lockPath)
			}()
			return fn()
		}
		if !os.IsExist(err) {
			return fmt.Errorf("acquire append lock: %w", err)
		}
		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > appendLockStaleAfter {
			_ = os.Remove(lockPath)
			continue
		}
		if time.Since(start) >= appendLockTimeout {
			return fmt.Errorf("append lock timeout")
		}
		time.Sleep(appendLockRetry)
	}
}
