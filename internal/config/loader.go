package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. GQLSEARCH_WORKERS.
const EnvPrefix = "GQLSEARCH"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string
}

// NewLoader creates a loader that looks for .gqlsearch.yml (or .yaml) in
// rootDir. A non-empty configFile is read instead and must exist.
func NewLoader(rootDir, configFile string) Loader {
	return &loader{
		rootDir:    rootDir,
		configFile: configFile,
	}
}

func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName(".gqlsearch")
		v.SetConfigType("yaml")
		v.AddConfigPath(l.rootDir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range []string{
		"workers", "parallel", "syntax_aware", "gitignore",
		"cache", "timeout", "ignore", "include",
	} {
		v.BindEnv(key)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("parallel", defaults.Parallel)
	v.SetDefault("syntax_aware", defaults.SyntaxAware)
	v.SetDefault("gitignore", defaults.Gitignore)
	v.SetDefault("cache", defaults.Cache)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("ignore", defaults.Ignore)
	v.SetDefault("include", defaults.Include)
}

// LoadFromDir loads configuration for a search rooted at rootDir.
func LoadFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir, "").Load()
}
