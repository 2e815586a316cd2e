// Package vcs finds the files a reval session should push to the server
// after the working tree changed outside the editor (branch switch, stash
// pop, a formatter run).
package vcs

import (
	"path/filepath"
	"sort"

	"reval/internal/errors"
	"reval/internal/logging"
	"reval/pkg/fileops"

	"github.com/go-git/go-git/v6"
)

// ErrNotRepository is returned when no git repository encloses the path.
var ErrNotRepository = errors.New("not inside a git repository")

// ChangedFiles returns the absolute paths of files under root that the
// enclosing git working tree reports as modified, added, renamed or
// untracked. Deleted files are skipped since there is nothing to reload.
//
// The repository is located by walking up from root looking for .git, so
// root may be any directory inside the working tree. Results are sorted.
//
// go-git library functions used:
//   - git.PlainOpenWithOptions with DetectDotGit: opens the enclosing repository
//   - repo.Worktree(): working tree for status
//   - worktree.Status(): map of slash-separated paths, relative to the
//     worktree root, to their staging and worktree codes
func ChangedFiles(root string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", root)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, errors.WithHint(errors.Wrapf(ErrNotRepository, "%s", abs), "reload-changed only works inside a git working tree.")
		}
		return nil, errors.Wrap(err, "failed to open repository")
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get working tree")
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get working tree status")
	}

	top := worktree.Filesystem.Root()
	if resolved, err := filepath.EvalSymlinks(top); err == nil {
		top = resolved
	}

	var files []string
	for rel, fs := range status {
		if !changed(fs) {
			continue
		}
		path := filepath.Join(top, filepath.FromSlash(rel))
		if err := fileops.ValidateFileInDirectory(path, abs); err != nil {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)

	logging.Debug("Collected changed files", "root", abs, "worktree", top, "count", len(files))
	return files, nil
}

func changed(fs *git.FileStatus) bool {
	if fs.Worktree == git.Deleted || (fs.Staging == git.Deleted && fs.Worktree == git.Unmodified) {
		return false
	}
	switch {
	case fs.Worktree == git.Untracked, fs.Worktree == git.Modified, fs.Worktree == git.Added:
		return true
	case fs.Staging == git.Modified, fs.Staging == git.Added, fs.Staging == git.Renamed, fs.Staging == git.Copied:
		return true
	}
	return false
}
