// Package config loads toolclear settings from TOML.
package config

import (
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/chazu/toolclear/pkg/bvh"
	"github.com/chazu/toolclear/pkg/collision"
	"github.com/chazu/toolclear/pkg/kernel"
	"github.com/chazu/toolclear/pkg/kernel/sdfx"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

var log = logging.MustGetLogger("toolclear:config")

var format = logging.MustStringFormatter(
	"%{color}%{time:15:04:05.000} %{module} ▶ %{level:.4s} %{id:03x} %{message}%{color:reset}",
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Collision holds the [collision] table.
type Collision struct {
	Clearance         float64 `toml:"clearance"`
	Sweep             bool    `toml:"sweep"`
	VerticalTolerance float64 `toml:"vertical_tolerance"`
}

// Kernel holds the [kernel] table.
type Kernel struct {
	MeshCells  int  `toml:"mesh_cells"`
	Tessellate bool `toml:"tessellate"`
}

// Logging is one [[logging]] backend. Output is stdout, stderr or a
// file path, which may reference environment variables.
type Logging struct {
	Output string `toml:"output"`
	Level  string `toml:"level"`
}

// Config is the whole configuration file.
type Config struct {
	toml.MetaData `toml:"-"`

	Index     bvh.Config `toml:"index"`
	Collision Collision  `toml:"collision"`
	Kernel    Kernel     `toml:"kernel"`
	Logging   []Logging  `toml:"logging"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	opts := collision.DefaultOptions()
	return Config{
		Index: bvh.DefaultConfig(),
		Collision: Collision{
			Clearance:         opts.Clearance,
			Sweep:             opts.Sweep,
			VerticalTolerance: opts.VerticalTolerance,
		},
		Kernel: Kernel{MeshCells: sdfx.DefaultMeshCells},
		Logging: []Logging{
			{Output: "stderr", Level: "warning"},
		},
	}
}

// Load decodes a TOML document on top of the current values, so keys
// the document omits keep their defaults.
func (c *Config) Load(r io.Reader) error {
	var logs []Logging
	c.Logging, logs = nil, c.Logging

	md, err := toml.DecodeReader(r, c)
	if err != nil {
		return errors.Wrap(err, "config: decoding")
	}
	c.MetaData = md
	if len(c.Logging) == 0 {
		c.Logging = logs
	}

	for _, key := range md.Undecoded() {
		log.Warningf("ignoring unknown configuration key %s", key)
	}
	return c.Validate()
}

// LoadFile loads the configuration at path on top of Default().
func LoadFile(path string) (Config, error) {
	c := Default()

	f, err := os.Open(path)
	if err != nil {
		return c, errors.Wrap(err, "config: opening")
	}
	defer f.Close()

	if err := c.Load(f); err != nil {
		return c, errors.Wrapf(err, "config: %s", path)
	}
	return c, nil
}

// Validate rejects settings the library would otherwise repair silently.
func (c *Config) Validate() error {
	switch {
	case c.Index.MaxLeafSize < 1:
		return errors.Wrapf(ErrInvalid, "index.max_leaf_size must be at least 1, got %d", c.Index.MaxLeafSize)
	case c.Index.MaxDepth < 1:
		return errors.Wrapf(ErrInvalid, "index.max_depth must be at least 1, got %d", c.Index.MaxDepth)
	case c.Index.SAHBins < 2 || c.Index.SAHBins > bvh.MaxSAHBins:
		return errors.Wrapf(ErrInvalid, "index.sah_bins must be within [2, %d], got %d", bvh.MaxSAHBins, c.Index.SAHBins)
	case c.Index.ParallelThreshold < 0:
		return errors.Wrapf(ErrInvalid, "index.parallel_threshold must not be negative")
	case c.Collision.Clearance < 0:
		return errors.Wrapf(ErrInvalid, "collision.clearance must not be negative, got %g", c.Collision.Clearance)
	case c.Collision.VerticalTolerance < 0 || c.Collision.VerticalTolerance > 1:
		return errors.Wrapf(ErrInvalid, "collision.vertical_tolerance must be within [0, 1], got %g", c.Collision.VerticalTolerance)
	case c.Kernel.MeshCells < 1:
		return errors.Wrapf(ErrInvalid, "kernel.mesh_cells must be at least 1, got %d", c.Kernel.MeshCells)
	}

	for i, l := range c.Logging {
		if _, err := logging.LogLevel(l.Level); err != nil {
			return errors.Wrapf(ErrInvalid, "logging[%d]: unknown level %q", i, l.Level)
		}
		if l.Output == "" {
			return errors.Wrapf(ErrInvalid, "logging[%d]: output is required", i)
		}
	}
	return nil
}

// IndexConfig returns the hierarchy build settings.
func (c *Config) IndexConfig() bvh.Config {
	return c.Index
}

// GeometryKernel returns the solid modeling kernel.
func (c *Config) GeometryKernel() kernel.Kernel {
	return &sdfx.Kernel{MeshCells: c.Kernel.MeshCells}
}

// CollisionOptions returns the toolpath check settings. Fixtures are
// tessellated with the geometry kernel only when kernel.tessellate is set.
func (c *Config) CollisionOptions() collision.Options {
	opts := collision.Options{
		Clearance:         c.Collision.Clearance,
		Sweep:             c.Collision.Sweep,
		VerticalTolerance: c.Collision.VerticalTolerance,
		Index:             c.IndexConfig(),
	}
	if c.Kernel.Tessellate {
		opts.Kernel = c.GeometryKernel()
	}
	return opts
}

// SetupLogging installs one go-logging backend per [[logging]] entry.
// The returned closer releases any log files that were opened.
func (c *Config) SetupLogging() (io.Closer, error) {
	files := closers{}
	var backends []logging.Backend

	for i, l := range c.Logging {
		var output io.Writer
		switch l.Output {
		case "stdout":
			output = os.Stdout
		case "stderr":
			output = os.Stderr
		default:
			f, err := os.OpenFile(os.ExpandEnv(l.Output), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0660)
			if err != nil {
				files.Close()
				return nil, errors.Wrapf(err, "logging[%d]", i)
			}
			files = append(files, f)
			output = f
		}

		level, err := logging.LogLevel(l.Level)
		if err != nil {
			files.Close()
			return nil, errors.Wrapf(ErrInvalid, "logging[%d]: unknown level %q", i, l.Level)
		}

		backend := logging.NewLogBackend(output, "", 0)
		leveled := logging.AddModuleLevel(logging.NewBackendFormatter(backend, format))
		leveled.SetLevel(level, "")
		backends = append(backends, leveled)
	}

	if len(backends) > 0 {
		logging.SetBackend(backends...)
	}
	return files, nil
}

type closers []io.Closer

func (cs closers) Close() error {
	var first error
	for _, c := range cs {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
