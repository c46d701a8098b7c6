package ignore

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FileName is the per-project ignore file.
const FileName = ".ustgenignore"

// DefaultRules exclude VCS metadata, our own state directory and the usual
// build output folders of .NET and JVM projects.
var DefaultRules = []string{
	".git/",
	".ustgen/",
	"node_modules/",
	"bin/",
	"obj/",
	"target/",
	"build/",
	"out/",
	".gradle/",
	".idea/",
	".vs/",
}

type rule struct {
	pattern  string
	negated  bool
	dirOnly  bool
	anchored bool
}

// Matcher applies gitignore-like rules with "last rule wins" behavior.
// Patterns are doublestar globs.
type Matcher struct {
	rules   []rule
	include []string
}

// NewMatcher builds a matcher from user-provided ignore lines. Default
// excludes are prepended and can be overridden by user negation rules.
func NewMatcher(userRules []string) *Matcher {
	all := make([]string, 0, len(DefaultRules)+len(userRules))
	all = append(all, DefaultRules...)
	all = append(all, userRules...)

	rules := make([]rule, 0, len(all))
	for _, line := range all {
		if parsed, ok := parseRule(line); ok {
			rules = append(rules, parsed)
		}
	}
	return &Matcher{rules: rules}
}

// WithInclude restricts files to those matching at least one pattern.
// Directories are never filtered by include patterns.
func (m *Matcher) WithInclude(patterns []string) *Matcher {
	for _, p := range patterns {
		if p = normalizePath(strings.TrimSpace(p)); p != "" {
			m.include = append(m.include, p)
		}
	}
	return m
}

// LoadRules reads rootPath/.ustgenignore. A missing file yields no rules.
func LoadRules(rootPath string) ([]string, error) {
	f, err := os.Open(filepath.Join(rootPath, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	defer f.Close()

	var rules []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		rules = append(rules, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	return rules, nil
}

// ShouldIgnore returns true when relPath should be excluded.
func (m *Matcher) ShouldIgnore(relPath string, isDir bool) bool {
	relPath = normalizePath(relPath)
	ignored := false
	for _, rule := range m.rules {
		if ruleMatches(rule, relPath, isDir) {
			ignored = !rule.negated
		}
	}
	if ignored || isDir || len(m.include) == 0 {
		return ignored
	}
	for _, p := range m.include {
		if matchPathPattern(p, relPath) {
			return false
		}
	}
	return true
}

func parseRule(line string) (rule, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return rule{}, false
	}

	parsed := rule{}
	if strings.HasPrefix(line, "!") {
		parsed.negated = true
		line = strings.TrimPrefix(line, "!")
	}
	if strings.HasPrefix(line, "/") {
		parsed.anchored = true
		line = strings.TrimPrefix(line, "/")
	}
	if strings.HasSuffix(line, "/") {
		parsed.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}

	line = normalizePath(line)
	if line == "" || !doublestar.ValidatePattern(line) {
		return rule{}, false
	}
	parsed.pattern = line
	return parsed, true
}

func ruleMatches(rule rule, relPath string, isDir bool) bool {
	if rule.dirOnly {
		if matchDirectoryPattern(rule, relPath) {
			return true
		}
		return isDir && matchPathPattern(rule.pattern, path.Base(relPath))
	}

	if rule.anchored || strings.Contains(rule.pattern, "/") {
		if matchPathPattern(rule.pattern, relPath) {
			return true
		}
		if rule.anchored {
			return false
		}
		// Unanchored path patterns may start at any directory.
		return matchPathPattern("**/"+rule.pattern, relPath)
	}

	for _, segment := range strings.Split(relPath, "/") {
		if matchPathPattern(rule.pattern, segment) {
			return true
		}
	}
	return false
}

// matchDirectoryPattern reports whether relPath is, or is below, a
// directory matched by rule.
func matchDirectoryPattern(rule rule, relPath string) bool {
	parts := strings.Split(relPath, "/")
	for i := range parts {
		candidate := strings.Join(parts[:i+1], "/")
		if matchPathPattern(rule.pattern, candidate) {
			return true
		}
		if rule.anchored || strings.Contains(rule.pattern, "/") {
			continue
		}
		if matchPathPattern(rule.pattern, parts[i]) {
			return true
		}
	}
	return false
}

func matchPathPattern(pattern, value string) bool {
	ok, err := doublestar.Match(pattern, value)
	return err == nil && ok
}

func normalizePath(p string) string {
	p = filepath.ToSlash(p)
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")
	return p
}
