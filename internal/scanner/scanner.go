// Package scanner walks a workspace and discovers the source files the
// rest of mu should parse and index.
package scanner

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/0ximu/mu/internal/lang"
)

// ignoreDirs are directory names skipped during the walk regardless of
// project-level ignore rules.
var ignoreDirs = map[string]bool{
	".git": true, ".hg": true, ".svn": true,
	".idea": true, ".vscode": true, ".vs": true,
	"node_modules": true, "bower_components": true, "vendor": true,
	"__pycache__": true, ".pytest_cache": true, ".mypy_cache": true, ".ruff_cache": true,
	".venv": true, "venv": true, "env": true,
	"dist": true, "build": true, "out": true, "bin": true, "obj": true, "target": true,
	".tox": true, ".nox": true, ".gradle": true, ".maven": true,
	".cache": true, ".tmp": true, "tmp": true, "temp": true, "coverage": true, "htmlcov": true,
	".mu": true,
}

// ignoreSuffixes are file suffixes skipped regardless of extension match.
var ignoreSuffixes = []string{".tmp", "~", ".pyc", ".pyo", ".o", ".a", ".so", ".dll", ".class"}

// File is one discovered source file.
type File struct {
	Path     string        // workspace-relative, forward-slash
	Language lang.Language
	Hash     string // sha256 hex digest of file contents
	Size     int64
}

// ScanError records one file or directory the scanner could not read.
// A scan never fails wholesale because of one bad file — errors
// accumulate and are returned alongside whatever files did succeed.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// Scanner walks one workspace root. Three layers of ignore policy
// apply, in order: the built-in ignoreDirs/ignoreSuffixes tables, the
// workspace's own ".gitignore" (standard gitignore glob semantics),
// and an optional ".mu/ignore" project config of extra glob patterns.
type Scanner struct {
	root      string
	fs        billy.Filesystem
	gitignore *gitignore.GitIgnore // nil when the workspace has no .gitignore
	ignore    []string             // extra glob patterns loaded from .mu/ignore
}

// New creates a Scanner rooted at root. Ignore patterns are read from
// a ".gitignore" and a ".mu/ignore" file in root, if present.
func New(root string) (*Scanner, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("scanner root: %w", err)
	}
	s := &Scanner{root: abs, fs: osfs.New(abs)}
	if gi, giErr := gitignore.CompileIgnoreFile(filepath.Join(abs, ".gitignore")); giErr == nil {
		s.gitignore = gi
	}
	s.ignore, _ = loadIgnoreFile(filepath.Join(abs, ".mu", "ignore"))
	return s, nil
}

// Root returns the absolute workspace root this scanner walks.
func (s *Scanner) Root() string {
	return s.root
}

// Scan walks the workspace and returns every recognized source file in
// deterministic lexicographic order by path, along with any per-file
// errors encountered along the way. Traversal and file reads go
// through the Scanner's billy.Filesystem, rooted at s.root, so the
// same code walks identically on every host OS billy supports.
func (s *Scanner) Scan(ctx context.Context) ([]File, []ScanError, error) {
	var files []File
	var errs []ScanError

	if err := s.walk(ctx, ".", &files, &errs); err != nil {
		return nil, errs, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, errs, nil
}

// walk recursively lists rel (workspace-relative, "." for the root)
// through s.fs and visits every entry, recursing into directories that
// survive the ignore policy and recording every file that does.
func (s *Scanner) walk(ctx context.Context, rel string, files *[]File, errs *[]ScanError) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := s.fs.ReadDir(rel)
	if err != nil {
		*errs = append(*errs, ScanError{Path: rel, Err: err})
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		childRel := entry.Name()
		if rel != "." {
			childRel = rel + "/" + entry.Name()
		}

		if entry.IsDir() {
			if s.shouldSkipDir(entry.Name(), childRel) {
				continue
			}
			if err := s.walk(ctx, childRel, files, errs); err != nil {
				return err
			}
			continue
		}

		if s.shouldSkipFile(childRel) {
			continue
		}

		language, ok := lang.LanguageForExtension(filepath.Ext(childRel))
		if !ok {
			continue
		}

		hash, size, hashErr := s.hashFile(childRel)
		if hashErr != nil {
			*errs = append(*errs, ScanError{Path: childRel, Err: hashErr})
			continue
		}

		*files = append(*files, File{Path: childRel, Language: language, Hash: hash, Size: size})
	}
	return nil
}

func (s *Scanner) shouldSkipDir(name, rel string) bool {
	if ignoreDirs[name] {
		return true
	}
	if s.gitignore != nil && s.gitignore.MatchesPath(rel) {
		return true
	}
	for _, pattern := range s.ignore {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

func (s *Scanner) shouldSkipFile(rel string) bool {
	if hasIgnoredSuffix(rel) {
		return true
	}
	if s.gitignore != nil && s.gitignore.MatchesPath(rel) {
		return true
	}
	for _, pattern := range s.ignore {
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, filepath.Base(rel)); matched {
			return true
		}
	}
	return false
}

func hasIgnoredSuffix(path string) bool {
	for _, suffix := range ignoreSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

// hashFile returns the sha256 hex digest and byte size of the file at
// rel, read through s.fs rather than the os package directly.
func (s *Scanner) hashFile(rel string) (string, int64, error) {
	f, err := s.fs.Open(rel)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

func loadIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, sc.Err()
}
