package fs

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// defaultIgnorePatterns always apply, whatever the config or .svignore say.
var defaultIgnorePatterns = []string{IgnoreFileName, ".git/"}

// ignoreRule is one parsed line of an ignore list.
type ignoreRule struct {
	glob     string
	anchored bool // contains '/': matched against the whole relative path
	dirOnly  bool // trailing '/': matches directories only
}

func (r ignoreRule) matches(rel string, isDir bool) bool {
	if r.dirOnly && !isDir {
		return false
	}
	target := path.Base(rel)
	if r.anchored {
		target = rel
	}
	ok, err := path.Match(r.glob, target)
	return err == nil && ok
}

// IgnoreMatcher decides which collected paths are skipped.
//
// A rule without '/' matches a base name anywhere in the tree. A rule with
// '/' matches the slash-separated path relative to the collection root. A
// trailing '/' restricts a rule to directories; an ignored directory is not
// descended into.
type IgnoreMatcher struct {
	rules []ignoreRule
}

// NewIgnoreMatcher parses raw rule lines. Blank lines and '#' comments are
// skipped, as are rules that are not valid globs.
func NewIgnoreMatcher(lines []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rule := ignoreRule{}
		if strings.HasSuffix(line, "/") {
			rule.dirOnly = true
			line = strings.TrimRight(line, "/")
		}
		line = strings.TrimPrefix(line, "/")
		if line == "" {
			continue
		}
		if _, err := path.Match(line, ""); err != nil {
			continue
		}
		rule.glob = line
		rule.anchored = strings.Contains(line, "/")
		m.rules = append(m.rules, rule)
	}
	return m
}

// Match reports whether rel (relative to the collection root, OS separators)
// is ignored.
func (m *IgnoreMatcher) Match(rel string, isDir bool) bool {
	if rel == "" {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, r := range m.rules {
		if r.matches(rel, isDir) {
			return true
		}
	}
	return false
}

// ParseIgnoreFile reads the lines of an ignore file. A missing file yields
// no lines and no error.
func ParseIgnoreFile(name string) ([]string, error) {
	f, err := os.Open(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return lines, nil
}
