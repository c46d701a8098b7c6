package semantic

import (
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

var metadataExtensions = []string{".dll", ".exe", ".jar"}

// AssemblyLocator resolves assembly names to metadata files. Explicit
// mappings win over a search of the library directories. Results, including
// misses, are cached; the cache is safe for concurrent use.
type AssemblyLocator struct {
	known    map[string]string
	libPaths []string
	cache    *lru.Cache[string, string]
}

func NewAssemblyLocator(known map[string]string, libPaths []string, cacheSize int) (*AssemblyLocator, error) {
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create assembly cache: %w", err)
	}
	return &AssemblyLocator{
		known:    known,
		libPaths: libPaths,
		cache:    cache,
	}, nil
}

func (l *AssemblyLocator) AssemblyLocation(assembly string) string {
	if assembly == "" {
		return ""
	}
	if loc, ok := l.cache.Get(assembly); ok {
		return loc
	}
	loc := l.resolve(assembly)
	l.cache.Add(assembly, loc)
	return loc
}

func (l *AssemblyLocator) resolve(assembly string) string {
	if loc, ok := l.known[assembly]; ok {
		return loc
	}
	for _, dir := range l.libPaths {
		for _, ext := range metadataExtensions {
			candidate := filepath.Join(dir, assembly+ext)
			info, err := os.Stat(candidate)
			if err != nil || info.IsDir() {
				continue
			}
			if abs, err := filepath.Abs(candidate); err == nil {
				return abs
			}
			return candidate
		}
	}
	return ""
}
