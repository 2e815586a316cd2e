// Package fileops provides the small set of file operations reval shares
// between its packages.
//
// # Atomic Writes
//
// Use AtomicWrite() for files another process may read while they are being
// replaced, such as the settings file:
//
//	err := fileops.AtomicWrite(path, 0o600, func(w io.Writer) error {
//	    return yaml.NewEncoder(w).Encode(cfg)
//	})
//	// path holds either the old or the new content, never a partial write
//
// # Path Handling
//
// ExpandPath() resolves a leading "~/" against the home directory.
// ValidateFileInDirectory() checks that a path is a regular file that stays
// inside a base directory after symlinks are resolved.
package fileops
