package gqlsearch

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// SearchDirectory discovers files under root and searches them.
//
// With WithGitignore, files come from git ls-files so .gitignore is respected;
// outside a git checkout, or without the option, root is walked in lexical
// order. .git directories are never searched.
func (e *Engine) SearchDirectory(ctx context.Context, root string) (*Report, error) {
	paths, err := e.ListFiles(root)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("discovered files", "root", root, "count", len(paths))
	return e.SearchFiles(ctx, paths)
}

// ListFiles returns the files under root that pass the ignore and include
// globs.
func (e *Engine) ListFiles(root string) ([]string, error) {
	if e.gitignore {
		paths, err := e.gitListFiles(root)
		if err == nil {
			return paths, nil
		}
		// Not a git repo or git not available: fall back to walk.
		e.logger.Debug("git ls-files unavailable, walking", "root", root, "error", err)
	}
	return e.walkListFiles(root)
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for line := range strings.SplitSeq(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !e.filter.accept(line) {
			continue
		}
		absPath := filepath.Join(root, filepath.FromSlash(line))
		// Deleted-but-tracked files are still listed by --cached.
		if info, err := os.Stat(absPath); err != nil || !info.Mode().IsRegular() {
			continue
		}
		paths = append(paths, absPath)
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem in lexical order.
// Unreadable subdirectories are skipped; an unreadable root is an error.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			e.logger.Debug("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path != root && (d.Name() == ".git" || e.filter.pruneDir(rel)) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			// Follow links to regular files only; linked directories are not walked.
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}

		if e.filter.accept(rel) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// compiledPattern holds both the pattern string and compiled glob.
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// fileFilter applies ignore and include globs to slash-separated paths
// relative to the search root.
type fileFilter struct {
	ignore  []compiledPattern
	include []compiledPattern
}

func newFileFilter(ignore, include []string) (*fileFilter, error) {
	f := &fileFilter{}
	var err error
	if f.ignore, err = compilePatterns(ignore); err != nil {
		return nil, fmt.Errorf("ignore pattern: %w", err)
	}
	if f.include, err = compilePatterns(include); err != nil {
		return nil, fmt.Errorf("include pattern: %w", err)
	}
	return f, nil
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	var out []compiledPattern
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("%q: %w", pattern, err)
		}
		out = append(out, compiledPattern{pattern: pattern, glob: g})
	}
	return out, nil
}

// accept reports whether a file should be searched.
func (f *fileFilter) accept(relPath string) bool {
	if matchesAny(relPath, f.ignore) {
		return false
	}
	for dir := parentDir(relPath); dir != ""; dir = parentDir(dir) {
		if f.pruneDir(dir) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	return matchesAny(relPath, f.include)
}

// pruneDir reports whether a directory is excluded as a whole. A directory
// "vendor" matches the pattern "vendor/**".
func (f *fileFilter) pruneDir(relDir string) bool {
	if relDir == "" || relDir == "." {
		return false
	}
	return matchesAny(relDir, f.ignore) || matchesAny(relDir+"/**", f.ignore)
}

func parentDir(relPath string) string {
	i := strings.LastIndex(relPath, "/")
	if i < 0 {
		return ""
	}
	return relPath[:i]
}

// matchesAny checks if a path matches any of the given patterns. A path in
// the root (no slash) also matches patterns with a leading "**/" removed, so
// "**/*.ts" matches both "a.ts" and "src/a.ts".
func matchesAny(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if simplified, ok := strings.CutPrefix(cp.pattern, "**/"); ok {
				if g, err := glob.Compile(simplified, '/'); err == nil && g.Match(path) {
					return true
				}
			}
		}
	}
	return false
}
