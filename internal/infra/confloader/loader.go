package confloader

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "RCUHT_"

// Source names reported by Loader.Sources.
const (
	SourceFile  = "file"
	SourceEnv   = "env"
	SourceFlags = "flags"
)

// Loader layers configuration sources over a target struct.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	sources   []string
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the YAML file to read. An empty path skips the file.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// NewLoader creates a configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FilePath returns the configured file path.
func (l *Loader) FilePath() string {
	return l.filePath
}

// Load reads the file, the environment and flags, in that order, and
// unmarshals the merged result into target. Fields that no source sets
// keep their current value, so callers pass a struct filled with defaults.
//
// Every call starts from an empty key space: a key deleted from the file
// since the previous Load falls back to target's preset value.
func (l *Loader) Load(target any, flags map[string]any) error {
	l.k = koanf.New(".")
	l.sources = l.sources[:0]

	if l.filePath != "" {
		if err := l.k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return fmt.Errorf("load config file %s: %w", l.filePath, err)
		}
		l.sources = append(l.sources, SourceFile)
	}

	if hasEnv(l.envPrefix) {
		provider := env.Provider(l.envPrefix, ".", func(s string) string {
			return EnvKey(l.envPrefix, s)
		})
		if err := l.k.Load(provider, nil); err != nil {
			return fmt.Errorf("load env: %w", err)
		}
		l.sources = append(l.sources, SourceEnv)
	}

	if len(flags) > 0 {
		if err := l.k.Load(mapProvider(flags), nil); err != nil {
			return fmt.Errorf("load flags: %w", err)
		}
		l.sources = append(l.sources, SourceFlags)
	}

	if err := l.k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

func hasEnv(prefix string) bool {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, prefix) {
			return true
		}
	}
	return false
}

// EnvKey maps an environment variable name to a config key. The first
// underscore after the prefix separates the section from the key, so
// RCUHT_BENCH_WRITE_INTERVAL becomes bench.write_interval.
func EnvKey(prefix, name string) string {
	s := strings.ToLower(strings.TrimPrefix(name, prefix))
	if section, key, ok := strings.Cut(s, "_"); ok {
		return section + "." + key
	}
	return s
}

// Sources lists the sources applied by the last Load, lowest priority
// first. Defaults are implied and not listed.
func (l *Loader) Sources() []string {
	return append([]string(nil), l.sources...)
}

// All returns the merged key space of the last Load as a nested map.
func (l *Loader) All() map[string]any {
	return l.k.Raw()
}
