package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/teranos/jbind/errors"
)

// EnvPrefix prefixes environment overrides: JBIND_OUTPUT_DIR sets output.dir.
const EnvPrefix = "JBIND"

// Load reads the configuration. An empty path searches the working
// directory and its parents for one of FileNames; finding none is not
// an error and yields defaults plus environment overrides. Relative paths
// in the file resolve against the file's directory.
func Load(path string) (*Config, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err == nil {
			path = Find(wd)
		}
	}
	v := NewViper()
	if path != "" {
		if err := readFile(v, path); err != nil {
			return nil, err
		}
	}
	cfg, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}
	if path != "" {
		cfg.Path = path
		cfg.resolvePaths(filepath.Dir(path))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewViper returns a viper instance with defaults and environment
// bindings but no file.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindSensitiveEnvVars(v)
	SetDefaults(v)
	return v
}

// LoadWithViper decodes the merged view of v. Keys that no field takes
// are a configuration error.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return nil, errors.WrapConfiguration(err, "decode configuration")
	}
	return &cfg, nil
}

// Find walks up from dir looking for a configuration file.
func Find(dir string) string {
	for {
		for _, name := range FileNames {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func formatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml", nil
	case ".yaml", ".yml":
		return "yaml", nil
	}
	return "", errors.NewConfigurationError("%s: unsupported configuration format", path)
}

func readFile(v *viper.Viper, path string) error {
	format, err := formatOf(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapConfiguration(err, "read "+path)
	}
	if err := checkKeys(path, format, data); err != nil {
		return err
	}
	v.SetConfigType(format)
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return errors.WrapConfiguration(err, "parse "+path)
	}
	return nil
}

// checkKeys decodes the file strictly. viper lowercases and merges keys,
// so a misspelt key would otherwise vanish into defaults.
func checkKeys(path, format string, data []byte) error {
	var probe Config
	switch format {
	case "toml":
		md, err := toml.Decode(string(data), &probe)
		if err != nil {
			return errors.WrapConfiguration(err, "parse "+path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return errors.WithHint(
				errors.NewConfigurationError("%s: unknown keys: %s", path, strings.Join(keys, ", ")),
				"`jbind config show` prints every known key")
		}
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&probe); err != nil && err != io.EOF {
			return errors.WithHint(
				errors.WrapConfiguration(err, "parse "+path),
				"`jbind config show` prints every known key")
		}
	}
	return nil
}

func isLocalPath(p string) bool {
	return p != "" && !filepath.IsAbs(p) && !strings.Contains(p, "::") && !strings.Contains(p, "://")
}

func (c *Config) resolvePaths(dir string) {
	for i, p := range c.Input.Paths {
		if isLocalPath(p) {
			c.Input.Paths[i] = filepath.Join(dir, p)
		}
	}
	if isLocalPath(c.Input.CacheDir) {
		c.Input.CacheDir = filepath.Join(dir, c.Input.CacheDir)
	}
	if isLocalPath(c.Output.Dir) {
		c.Output.Dir = filepath.Join(dir, c.Output.Dir)
	}
	if isLocalPath(c.Manifest.DSN) {
		c.Manifest.DSN = filepath.Join(dir, c.Manifest.DSN)
	}
}
