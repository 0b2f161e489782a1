// Package config loads gqlsearch settings from a .gqlsearch.yml file in the
// search root and GQLSEARCH_* environment variables.
package config

import "time"

// Config holds every setting the CLI can take from a file or the
// environment. Command-line flags override these values.
type Config struct {
	Workers     int           `yaml:"workers" mapstructure:"workers"`           // 0 means one per CPU
	Parallel    bool          `yaml:"parallel" mapstructure:"parallel"`         // worker pool on/off
	SyntaxAware bool          `yaml:"syntax_aware" mapstructure:"syntax_aware"` // tree-sitter extraction for JS/TS
	Gitignore   bool          `yaml:"gitignore" mapstructure:"gitignore"`       // list files with git ls-files
	Cache       string        `yaml:"cache" mapstructure:"cache"`               // SQLite result cache path, empty disables
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`           // 0 means no limit
	Ignore      []string      `yaml:"ignore" mapstructure:"ignore"`             // globs relative to the search root
	Include     []string      `yaml:"include" mapstructure:"include"`           // empty means every file
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Workers:  0,
		Parallel: true,
		Ignore:   []string{},
		Include:  []string{},
	}
}
