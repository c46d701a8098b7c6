package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	FileName = ".ustgen.toml"
	EnvFile  = ".env"

	DefaultMaxDepth  = 2048
	DefaultCacheSize = 512
)

// ErrInvalidConfig marks configuration values that fail validation.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Capture    Policy            `toml:"capture"`
	Analysis   Analysis          `toml:"analysis"`
	Assemblies map[string]string `toml:"assemblies"` // assembly name -> metadata location
	Include    []string          `toml:"include"`
	Exclude    []string          `toml:"exclude"`
}

type Analysis struct {
	Workers   int      `toml:"workers"`   // 0 = runtime.NumCPU()
	MaxDepth  int      `toml:"max_depth"` // deepest concrete nesting traversed
	Assembly  string   `toml:"assembly"`  // assembly name given to project sources
	LibPaths  []string `toml:"lib_paths"` // directories searched for referenced assemblies
	CacheSize int      `toml:"cache_size"`
}

// Default returns the configuration used when no file is present.
func Default(rootPath string) *Config {
	return &Config{
		Capture: DefaultPolicy(),
		Analysis: Analysis{
			MaxDepth:  DefaultMaxDepth,
			Assembly:  defaultAssembly(rootPath),
			CacheSize: DefaultCacheSize,
		},
	}
}

// Load reads .ustgen.toml from rootPath when present, then applies
// USTGEN_* overrides from the process environment or rootPath/.env.
func Load(rootPath string) (*Config, error) {
	cfg := Default(rootPath)

	data, err := os.ReadFile(filepath.Join(rootPath, FileName))
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	env, err := godotenv.Read(filepath.Join(rootPath, EnvFile))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", EnvFile, err)
	}
	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(dotenv map[string]string) error {
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v), true
		}
		v, ok := dotenv[key]
		return strings.TrimSpace(v), ok
	}

	if v, ok := lookup("USTGEN_ASSEMBLY"); ok && v != "" {
		c.Analysis.Assembly = v
	}
	for key, dst := range map[string]*int{
		"USTGEN_WORKERS":   &c.Analysis.Workers,
		"USTGEN_MAX_DEPTH": &c.Analysis.MaxDepth,
	} {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)
		}
		*dst = n
	}
	return nil
}

// Validate checks numeric bounds and glob syntax.
func (c *Config) Validate() error {
	if c.Analysis.Workers < 0 {
		return fmt.Errorf("%w: analysis.workers must be >= 0, got %d", ErrInvalidConfig, c.Analysis.Workers)
	}
	if c.Analysis.MaxDepth <= 0 {
		return fmt.Errorf("%w: analysis.max_depth must be > 0, got %d", ErrInvalidConfig, c.Analysis.MaxDepth)
	}
	if c.Analysis.CacheSize <= 0 {
		return fmt.Errorf("%w: analysis.cache_size must be > 0, got %d", ErrInvalidConfig, c.Analysis.CacheSize)
	}
	for _, pattern := range append(append([]string{}, c.Include...), c.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("%w: bad glob %q", ErrInvalidConfig, pattern)
		}
	}
	return nil
}

// WorkerCount resolves the configured worker count.
func (c *Config) WorkerCount() int {
	if c.Analysis.Workers > 0 {
		return c.Analysis.Workers
	}
	return runtime.NumCPU()
}

// Fingerprint identifies every setting that shapes a file's Root: the
// capture policy, traversal depth and assembly naming. Worker count and
// include/exclude globs only decide which files run, so they are left out.
func (c *Config) Fingerprint() string {
	data, err := toml.Marshal(struct {
		Capture    Policy            `toml:"capture"`
		MaxDepth   int               `toml:"max_depth"`
		Assembly   string            `toml:"assembly"`
		LibPaths   []string          `toml:"lib_paths"`
		Assemblies map[string]string `toml:"assemblies"`
	}{c.Capture, c.Analysis.MaxDepth, c.Analysis.Assembly, c.Analysis.LibPaths, c.Assemblies})
	if err != nil {
		return ""
	}
	return formatHash(xxhash.Sum64(data))
}

func defaultAssembly(rootPath string) string {
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		abs = rootPath
	}
	name := filepath.Base(abs)
	if name == "." || name == string(filepath.Separator) {
		return "project"
	}
	return name
}

func formatHash(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}
