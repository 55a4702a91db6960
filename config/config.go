// Package config loads jbind configuration: defaults, a TOML or YAML
// project file, and JBIND_ environment variables, layered with viper.
// Unknown keys are configuration errors rather than silently ignored.
package config

import (
	"fmt"
	"strings"
)

// Config is the effective configuration of a run.
type Config struct {
	Run      RunConfig      `mapstructure:"run" toml:"run" yaml:"run"`
	Input    InputConfig    `mapstructure:"input" toml:"input" yaml:"input"`
	Filter   FilterConfig   `mapstructure:"filter" toml:"filter" yaml:"filter"`
	Naming   NamingConfig   `mapstructure:"naming" toml:"naming" yaml:"naming"`
	Members  MembersConfig  `mapstructure:"members" toml:"members" yaml:"members"`
	Output   OutputConfig   `mapstructure:"output" toml:"output" yaml:"output"`
	Manifest ManifestConfig `mapstructure:"manifest" toml:"manifest" yaml:"manifest"`
	Graph    GraphConfig    `mapstructure:"graph" toml:"graph" yaml:"graph"`

	// Path is the file the configuration was read from, if any.
	Path string `mapstructure:"-" toml:"-" yaml:"-"`
}

// RunConfig controls the run as a whole
type RunConfig struct {
	Workers  int    `mapstructure:"workers" toml:"workers" yaml:"workers"`    // 0 = runtime.NumCPU()
	Strict   bool   `mapstructure:"strict" toml:"strict" yaml:"strict"`       // recoverable diagnostics become fatal
	Requires string `mapstructure:"requires" toml:"requires" yaml:"requires"` // semver constraint on the generator, e.g. ">= 0.3"
}

// InputConfig lists what ingest reads
type InputConfig struct {
	Paths    []string `mapstructure:"paths" toml:"paths" yaml:"paths"`             // files, directories, archives or go-getter sources
	CacheDir string   `mapstructure:"cache_dir" toml:"cache_dir" yaml:"cache_dir"` // remote inputs (default: user cache dir)
	Refresh  bool     `mapstructure:"refresh" toml:"refresh" yaml:"refresh"`
}

// FilterConfig selects classes by glob over slash-form names
type FilterConfig struct {
	Include []string `mapstructure:"include" toml:"include" yaml:"include"` // empty = everything
	Exclude []string `mapstructure:"exclude" toml:"exclude" yaml:"exclude"`
}

// NamingConfig configures the Name Resolver
type NamingConfig struct {
	Module      string       `mapstructure:"module" toml:"module" yaml:"module"` // import path of the output directory
	Layout      string       `mapstructure:"layout" toml:"layout" yaml:"layout"` // packages, single
	Unit        string       `mapstructure:"unit" toml:"unit" yaml:"unit"`       // class, package
	PackageName string       `mapstructure:"package_name" toml:"package_name" yaml:"package_name"`
	TieBreak    string       `mapstructure:"tie_break" toml:"tie_break" yaml:"tie_break"` // sorted, ingest
	MaxSuffix   int          `mapstructure:"max_suffix" toml:"max_suffix" yaml:"max_suffix"`
	Rename      []RenameRule `mapstructure:"rename" toml:"rename" yaml:"rename"`
}

// RenameRule maps a foreign id ("pkg.Class", "pkg.Class#name" or
// "pkg.Class#name(desc)") to a host identifier. Rules are a list, not a
// table, because foreign ids contain dots.
type RenameRule struct {
	From string `mapstructure:"from" toml:"from" yaml:"from"`
	To   string `mapstructure:"to" toml:"to" yaml:"to"`
}

// MembersConfig configures the Overload & Signature Resolver
type MembersConfig struct {
	Visibility   string   `mapstructure:"visibility" toml:"visibility" yaml:"visibility"` // public, protected, package, private
	Collision    string   `mapstructure:"collision" toml:"collision" yaml:"collision"`    // suffix, signature
	Ignore       []string `mapstructure:"ignore" toml:"ignore" yaml:"ignore"`             // foreign member ids
	KeepRejected bool     `mapstructure:"keep_rejected" toml:"keep_rejected" yaml:"keep_rejected"`
}

// OutputConfig configures where generated units go
type OutputConfig struct {
	Dir   string   `mapstructure:"dir" toml:"dir" yaml:"dir"`
	Sink  string   `mapstructure:"sink" toml:"sink" yaml:"sink"` // disk, s3
	Prune bool     `mapstructure:"prune" toml:"prune" yaml:"prune"`
	S3    S3Config `mapstructure:"s3" toml:"s3" yaml:"s3"`
}

// S3Config configures the object storage sink
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint" toml:"endpoint" yaml:"endpoint"` // host:port, no scheme
	Bucket    string `mapstructure:"bucket" toml:"bucket" yaml:"bucket"`
	Prefix    string `mapstructure:"prefix" toml:"prefix" yaml:"prefix"`
	Region    string `mapstructure:"region" toml:"region" yaml:"region"`
	AccessKey string `mapstructure:"access_key" toml:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" toml:"secret_key" yaml:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl" toml:"use_ssl" yaml:"use_ssl"`
}

// ManifestConfig configures the run manifest store
type ManifestConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled" yaml:"enabled"`
	DSN     string `mapstructure:"dsn" toml:"dsn" yaml:"dsn"` // sqlite path or postgres:// URL
}

// GraphConfig configures graph export
type GraphConfig struct {
	MaxDepth int         `mapstructure:"max_depth" toml:"max_depth" yaml:"max_depth"` // bound on ancestor walks
	Neo4j    Neo4jConfig `mapstructure:"neo4j" toml:"neo4j" yaml:"neo4j"`
}

// Neo4jConfig configures the Neo4j export target
type Neo4jConfig struct {
	URI       string `mapstructure:"uri" toml:"uri" yaml:"uri"`
	User      string `mapstructure:"user" toml:"user" yaml:"user"`
	Password  string `mapstructure:"password" toml:"password" yaml:"password"`
	Database  string `mapstructure:"database" toml:"database" yaml:"database"`
	BatchSize int    `mapstructure:"batch_size" toml:"batch_size" yaml:"batch_size"`
	Clean     bool   `mapstructure:"clean" toml:"clean" yaml:"clean"`
}

// Renames returns the rename rules as the map naming expects.
func (c *Config) Renames() map[string]string {
	if len(c.Naming.Rename) == 0 {
		return nil
	}
	out := make(map[string]string, len(c.Naming.Rename))
	for _, r := range c.Naming.Rename {
		out[r.From] = r.To
	}
	return out
}

// Ignored reports whether a foreign member id is listed in members.ignore.
// An entry without a descriptor matches every overload of the name.
func (c *Config) Ignored(id string) bool {
	for _, ig := range c.Members.Ignore {
		if ig == id {
			return true
		}
		if !strings.Contains(ig, "(") && strings.HasPrefix(id, ig+"(") {
			return true
		}
	}
	return false
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Module: %s, Layout: %s, Output: %s (%s), Inputs: %d}",
		c.Naming.Module, c.Naming.Layout, c.Output.Dir, c.Output.Sink, len(c.Input.Paths))
}

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
