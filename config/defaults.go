package config

import (
	"github.com/spf13/viper"
)

// File names searched for, in order, when no path is given.
var FileNames = []string{"jbind.toml", "jbind.yaml", "jbind.yml"}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("run.workers", 0)
	v.SetDefault("run.strict", false)
	v.SetDefault("run.requires", "")

	v.SetDefault("input.paths", []string{})
	v.SetDefault("input.cache_dir", "")
	v.SetDefault("input.refresh", false)

	v.SetDefault("filter.include", []string{})
	v.SetDefault("filter.exclude", []string{})

	v.SetDefault("naming.module", "")
	v.SetDefault("naming.layout", "packages")
	v.SetDefault("naming.unit", "class")
	v.SetDefault("naming.package_name", "bindings")
	v.SetDefault("naming.tie_break", "sorted")
	v.SetDefault("naming.max_suffix", 64)
	v.SetDefault("naming.rename", []RenameRule{})

	v.SetDefault("members.visibility", "public")
	v.SetDefault("members.collision", "suffix")
	v.SetDefault("members.ignore", []string{})
	v.SetDefault("members.keep_rejected", false)

	v.SetDefault("output.dir", "gen")
	v.SetDefault("output.sink", "disk")
	v.SetDefault("output.prune", false)
	v.SetDefault("output.s3.endpoint", "")
	v.SetDefault("output.s3.bucket", "")
	v.SetDefault("output.s3.prefix", "")
	v.SetDefault("output.s3.region", "")
	v.SetDefault("output.s3.access_key", "")
	v.SetDefault("output.s3.secret_key", "")
	v.SetDefault("output.s3.use_ssl", true)

	v.SetDefault("manifest.enabled", true)
	v.SetDefault("manifest.dsn", ".jbind/manifest.db")

	v.SetDefault("graph.max_depth", 256)
	v.SetDefault("graph.neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("graph.neo4j.user", "neo4j")
	v.SetDefault("graph.neo4j.password", "")
	v.SetDefault("graph.neo4j.database", "neo4j")
	v.SetDefault("graph.neo4j.batch_size", 500)
	v.SetDefault("graph.neo4j.clean", false)
}

// BindSensitiveEnvVars binds credentials to conventional environment
// variables in addition to their JBIND_ names.
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("output.s3.access_key", "JBIND_OUTPUT_S3_ACCESS_KEY", "AWS_ACCESS_KEY_ID")
	v.BindEnv("output.s3.secret_key", "JBIND_OUTPUT_S3_SECRET_KEY", "AWS_SECRET_ACCESS_KEY")
	v.BindEnv("graph.neo4j.password", "JBIND_GRAPH_NEO4J_PASSWORD", "NEO4J_PASSWORD")
	v.BindEnv("manifest.dsn", "JBIND_MANIFEST_DSN", "DATABASE_URL")
}

// Default returns the configuration that SetDefaults describes.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	if err != nil {
		// defaults always decode
		panic(err)
	}
	return cfg
}
