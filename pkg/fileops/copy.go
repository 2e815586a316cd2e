package fileops

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// AtomicWrite replaces destPath with whatever write produces. The
// destination either keeps its old content or receives the full new
// content.
//
// The function uses a temporary file approach:
//  1. Creates a temporary file next to the destination
//  2. Lets write fill it
//  3. Syncs data to disk
//  4. Renames the temporary file over the destination
//
// Parameters:
//   - destPath: path of the file to replace; its directory must exist
//   - perm: permissions of the new file
//   - write: produces the content
//
// Returns:
//   - error: from write, or from creating, syncing or renaming the file
func AtomicWrite(destPath string, perm os.FileMode, write func(io.Writer) error) error {
	tempFile, err := os.CreateTemp(filepath.Dir(destPath), "."+filepath.Base(destPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempPath := tempFile.Name()

	var ok bool
	defer func() {
		tempFile.Close()
		if !ok {
			os.Remove(tempPath)
		}
	}()

	if err := tempFile.Chmod(perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := write(tempFile); err != nil {
		return err
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(tempPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	ok = true
	return nil
}

// EnsureDirectoryExists creates a directory and all necessary parent directories.
// This is equivalent to `mkdir -p` and is safe to call multiple times.
func EnsureDirectoryExists(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
