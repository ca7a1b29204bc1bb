package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/toolclear/pkg/bvh"
	"github.com/chazu/toolclear/pkg/kernel/sdfx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, bvh.DefaultConfig(), c.IndexConfig())

	opts := c.CollisionOptions()
	assert.True(t, opts.Sweep)
	assert.Zero(t, opts.Clearance)
	assert.Nil(t, opts.Kernel, "tessellation is opt-in")
}

func TestLoad(t *testing.T) {
	c := Default()
	err := c.Load(strings.NewReader(`
[index]
max_leaf_size = 2
strategy = "median"

[collision]
clearance = 1.5
sweep = false

[kernel]
mesh_cells = 32
tessellate = true

[[logging]]
output = "stdout"
level = "debug"
`))
	require.NoError(t, err)

	assert.Equal(t, 2, c.Index.MaxLeafSize)
	assert.Equal(t, bvh.SplitMedian, c.Index.Strategy)
	assert.Equal(t, bvh.DefaultConfig().MaxDepth, c.Index.MaxDepth, "omitted keys keep defaults")
	assert.Equal(t, []Logging{{Output: "stdout", Level: "debug"}}, c.Logging)

	opts := c.CollisionOptions()
	assert.Equal(t, 1.5, opts.Clearance)
	assert.False(t, opts.Sweep)
	assert.Equal(t, c.Index, opts.Index)
	require.NotNil(t, opts.Kernel)
	k, ok := opts.Kernel.(*sdfx.Kernel)
	require.True(t, ok)
	assert.Equal(t, 32, k.MeshCells)
}

func TestLoadKeepsDefaultLogging(t *testing.T) {
	c := Default()
	require.NoError(t, c.Load(strings.NewReader(`[collision]
clearance = 2
`)))
	assert.Equal(t, Default().Logging, c.Logging)
}

func TestLoadUnknownKey(t *testing.T) {
	c := Default()
	require.NoError(t, c.Load(strings.NewReader(`flavour = "vanilla"`)))
	assert.Len(t, c.Undecoded(), 1)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"syntax", `[index`, "decoding"},
		{"strategy", "[index]\nstrategy = \"octree\"", "decoding"},
		{"leaf size", "[index]\nmax_leaf_size = 0", "max_leaf_size"},
		{"depth", "[index]\nmax_depth = -1", "max_depth"},
		{"bins", "[index]\nsah_bins = 1", "sah_bins"},
		{"too many bins", "[index]\nsah_bins = 65", "within [2, 64]"},
		{"clearance", "[collision]\nclearance = -0.1", "clearance"},
		{"vertical tolerance", "[collision]\nvertical_tolerance = 2.0", "vertical_tolerance"},
		{"mesh cells", "[kernel]\nmesh_cells = 0", "mesh_cells"},
		{"level", "[[logging]]\noutput = \"stdout\"\nlevel = \"loud\"", "unknown level"},
		{"output", "[[logging]]\nlevel = \"info\"", "output is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			err := c.Load(strings.NewReader(tt.source))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidationErrorsWrapErrInvalid(t *testing.T) {
	c := Default()
	c.Collision.Clearance = -1
	require.ErrorIs(t, c.Validate(), ErrInvalid)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toolclear.toml")
	require.NoError(t, os.WriteFile(path, []byte("[collision]\nclearance = 0.25\n"), 0600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0.25, c.Collision.Clearance)
	assert.True(t, c.Collision.Sweep)

	_, err = LoadFile(filepath.Join(dir, "missing.toml"))
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSetupLoggingToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolclear.log")

	c := Default()
	c.Logging = []Logging{{Output: path, Level: "info"}}
	closer, err := c.SetupLogging()
	require.NoError(t, err)

	log.Info("hello from the config test")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from the config test")
	assert.Contains(t, string(data), "toolclear:config")
}

func TestSetupLoggingBadPath(t *testing.T) {
	c := Default()
	c.Logging = []Logging{{Output: filepath.Join(t.TempDir(), "missing", "x.log"), Level: "info"}}
	_, err := c.SetupLogging()
	require.Error(t, err)
}
