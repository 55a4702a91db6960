package config

import (
	"github.com/Masterminds/semver/v3"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/version"
)

var (
	layouts      = []string{"packages", "single"}
	units        = []string{"class", "package"}
	tieBreaks    = []string{"sorted", "ingest"}
	visibilities = []string{"public", "protected", "package", "private"}
	collisions   = []string{"suffix", "signature"}
	sinks        = []string{"disk", "s3"}
)

func oneOf(key, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return errors.NewConfigurationError("%s must be one of %v, got %q", key, allowed, value)
}

// Validate checks that the configuration is valid. Every error is a
// configuration error.
func (c *Config) Validate() error {
	if c.Run.Workers < 0 {
		return errors.NewConfigurationError("run.workers must be >= 0, got %d", c.Run.Workers)
	}
	if err := c.checkRequires(version.Get()); err != nil {
		return err
	}

	for _, p := range append(append([]string{}, c.Filter.Include...), c.Filter.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return errors.NewConfigurationError("filter pattern %q is malformed", p)
		}
	}

	if c.Naming.Module == "" {
		return errors.WithHint(
			errors.NewConfigurationError("naming.module cannot be empty"),
			"set it to the import path the output directory is reachable under")
	}
	if err := oneOf("naming.layout", c.Naming.Layout, layouts); err != nil {
		return err
	}
	if err := oneOf("naming.unit", c.Naming.Unit, units); err != nil {
		return err
	}
	if err := oneOf("naming.tie_break", c.Naming.TieBreak, tieBreaks); err != nil {
		return err
	}
	if c.Graph.MaxDepth < 1 {
		return errors.NewConfigurationError("graph.max_depth must be >= 1, got %d", c.Graph.MaxDepth)
	}
	if c.Naming.MaxSuffix < 0 {
		return errors.NewConfigurationError("naming.max_suffix must be >= 0, got %d", c.Naming.MaxSuffix)
	}
	seen := map[string]bool{}
	for _, r := range c.Naming.Rename {
		if r.From == "" || r.To == "" {
			return errors.NewConfigurationError("naming.rename entries need both from and to")
		}
		if seen[r.From] {
			return errors.NewConfigurationError("naming.rename lists %q twice", r.From)
		}
		seen[r.From] = true
	}

	if err := oneOf("members.visibility", c.Members.Visibility, visibilities); err != nil {
		return err
	}
	if err := oneOf("members.collision", c.Members.Collision, collisions); err != nil {
		return err
	}

	if err := oneOf("output.sink", c.Output.Sink, sinks); err != nil {
		return err
	}
	switch c.Output.Sink {
	case "disk":
		if c.Output.Dir == "" {
			return errors.NewConfigurationError("output.dir cannot be empty")
		}
	case "s3":
		if c.Output.S3.Endpoint == "" || c.Output.S3.Bucket == "" {
			return errors.NewConfigurationError("output.s3.endpoint and output.s3.bucket are required for the s3 sink")
		}
		if c.Output.Prune {
			return errors.NewConfigurationError("output.prune is only supported by the disk sink")
		}
	}

	if c.Output.Prune && !c.Manifest.Enabled {
		return errors.WithHint(
			errors.NewConfigurationError("output.prune needs the manifest"),
			"set manifest.enabled = true")
	}
	if c.Manifest.Enabled && c.Manifest.DSN == "" {
		return errors.NewConfigurationError("manifest.dsn cannot be empty when the manifest is enabled")
	}
	if c.Graph.Neo4j.BatchSize < 0 {
		return errors.NewConfigurationError("graph.neo4j.batch_size must be >= 0, got %d", c.Graph.Neo4j.BatchSize)
	}
	return nil
}

// checkRequires matches run.requires against the generator version.
// Development builds satisfy every constraint.
func (c *Config) checkRequires(info version.Info) error {
	if c.Run.Requires == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(c.Run.Requires)
	if err != nil {
		return errors.WrapConfiguration(err, "run.requires")
	}
	v, ok := info.Semver()
	if !ok {
		return nil
	}
	if ok, reasons := constraint.Validate(v); !ok {
		err := errors.NewConfigurationError("jbind %s does not satisfy run.requires %q", v, c.Run.Requires)
		for _, r := range reasons {
			err = errors.WithDetail(err, r.Error())
		}
		return err
	}
	return nil
}
