package fileops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands a leading "~/" to the user's home directory.
//
// Usage example:
//
//	expanded := fileops.ExpandPath("~/work/app/src/index.js")
//	// Returns something like "/home/user/work/app/src/index.js"
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// IsWithin reports whether path is baseDir or lies below it. Both paths are
// compared as given; resolve symlinks first if that matters.
func IsWithin(path, baseDir string) bool {
	rel, err := filepath.Rel(baseDir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ValidateFileInDirectory ensures filePath is a regular file inside baseDir.
// A symlink is followed and its target must also be inside baseDir.
//
// Usage example:
//
//	if err := fileops.ValidateFileInDirectory("/proj/src/app.js", "/proj"); err != nil {
//	    return fmt.Errorf("skip: %w", err)
//	}
func ValidateFileInDirectory(filePath, baseDir string) error {
	absFilePath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("cannot resolve file path: %w", err)
	}
	absBaseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("cannot resolve base directory: %w", err)
	}

	if !IsWithin(absFilePath, absBaseDir) {
		return fmt.Errorf("file is not within base directory")
	}

	linkInfo, err := os.Lstat(absFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", filepath.Base(filePath))
		}
		return fmt.Errorf("cannot access file: %w", err)
	}

	if linkInfo.Mode()&os.ModeSymlink != 0 {
		resolved, err := filepath.EvalSymlinks(absFilePath)
		if err != nil {
			return fmt.Errorf("cannot resolve symlink: %w", err)
		}
		resolvedBase := absBaseDir
		if b, err := filepath.EvalSymlinks(absBaseDir); err == nil {
			resolvedBase = b
		}
		if !IsWithin(resolved, resolvedBase) {
			return fmt.Errorf("symlink resolves outside base directory")
		}
	}

	info, err := os.Stat(absFilePath)
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("path is not a regular file")
	}
	return nil
}
