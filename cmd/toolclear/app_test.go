package main

import (
	"os"
	"testing"

	"github.com/chazu/toolclear/pkg/collision"
	"github.com/chazu/toolclear/pkg/config"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viseSource(t *testing.T) string {
	t.Helper()
	source, err := os.ReadFile("testdata/vise.lisp")
	require.NoError(t, err, "failed to read vise.lisp")
	return string(source)
}

func fastConfig() config.Config {
	cfg := config.Default()
	cfg.Kernel.MeshCells = 24
	return cfg
}

// TestE2ECheck exercises the full pipeline: setup source, engine,
// obstacle index, toolpath check and summary.
func TestE2ECheck(t *testing.T) {
	result := NewApp(fastConfig()).Check(viseSource(t))
	require.Empty(t, result.Errors)
	require.NotEmpty(t, result.IndexID)
	require.NotNil(t, result.Tool)
	assert.Equal(t, "6mm-endmill", result.Tool.Name)

	// The four cutting samples sit 2mm into the blank; the retract is
	// flagged because its sweep starts at the last cutting position.
	require.Len(t, result.Encounters, 5)
	for i, e := range result.Encounters[:4] {
		assert.Equal(t, i+1, e.SampleIndex)
		assert.Equal(t, collision.SeverityWarning, e.Severity)
		assert.Equal(t, []string{"blank"}, e.Fixtures)
	}
	last := result.Encounters[4]
	assert.Equal(t, 5, last.SampleIndex)
	assert.Equal(t, collision.SeverityCritical, last.Severity)

	assert.Equal(t, collision.Summary{
		Samples:  5,
		Warning:  4,
		Critical: 1,
		Fixtures: map[string]int{"blank": 5},
	}, result.Summary)
}

func TestE2ECheckWithoutSweep(t *testing.T) {
	cfg := fastConfig()
	cfg.Collision.Sweep = false

	result := NewApp(cfg).Check(viseSource(t))
	require.Empty(t, result.Errors)
	assert.Len(t, result.Encounters, 4)
	assert.Zero(t, result.Summary.Critical)
}

// TestE2EEmptySource ensures the pipeline handles empty input gracefully.
func TestE2EEmptySource(t *testing.T) {
	result := NewApp(fastConfig()).Check("")
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Encounters)
	assert.True(t, result.Summary.Clear())
}

func TestE2EEvalError(t *testing.T) {
	result := NewApp(fastConfig()).Check(`(stock "s")`)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "requires :size")
	assert.Empty(t, result.Encounters)
}

func TestE2EPathWithoutTool(t *testing.T) {
	result := NewApp(fastConfig()).Check(`
(stock "s" :size (vec3 10 10 10))
(cut (vec3 5 5 5))
`)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "defines no tool")
}

func TestE2EConflicts(t *testing.T) {
	result := NewApp(fastConfig()).Conflicts(viseSource(t))
	require.Empty(t, result.Errors)
	require.Len(t, result.Conflicts, 1)

	c := result.Conflicts[0]
	assert.Equal(t, "blank", c.A)
	assert.Equal(t, "clamp", c.B)
	assert.Equal(t, v3.Vec{X: 0, Y: 20, Z: 0}, c.Box.Min)
	assert.Equal(t, v3.Vec{X: 5, Y: 40, Z: 20}, c.Box.Max)
}

func TestE2EProbe(t *testing.T) {
	app := NewApp(fastConfig())
	down := v3.Vec{X: 0, Y: 0, Z: -1}

	result := app.Probe(viseSource(t), v3.Vec{X: 2, Y: 30, Z: 100}, down, 0)
	require.Empty(t, result.Errors)
	require.Len(t, result.Hits, 2)
	assert.Equal(t, "clamp", result.Hits[0].Fixture)
	assert.InDelta(t, 72, result.Hits[0].Distance, 1e-9)
	assert.Equal(t, "blank", result.Hits[1].Fixture)
	assert.InDelta(t, 80, result.Hits[1].Distance, 1e-9)
	assert.False(t, result.Hits[1].Exact)

	result = app.Probe(viseSource(t), v3.Vec{X: 2, Y: 30, Z: 100}, down, 75)
	require.Len(t, result.Hits, 1)

	result = app.Probe(viseSource(t), v3.Vec{X: 2, Y: 30, Z: 100}, v3.Vec{}, 0)
	require.Len(t, result.Errors, 1)
}

func TestE2EProbeTessellated(t *testing.T) {
	cfg := fastConfig()
	cfg.Kernel.Tessellate = true

	result := NewApp(cfg).Probe(viseSource(t), v3.Vec{X: 130.37, Y: 30.21, Z: 100}, v3.Vec{X: 0, Y: 0, Z: -1}, 0)
	require.Empty(t, result.Errors)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "dowel", result.Hits[0].Fixture)
	assert.True(t, result.Hits[0].Exact)
	assert.InDelta(t, 75, result.Hits[0].Distance, 1)
}

func TestE2EStats(t *testing.T) {
	cfg := fastConfig()
	cfg.Kernel.Tessellate = true

	result := NewApp(cfg).Stats(viseSource(t))
	require.Empty(t, result.Errors)
	assert.NotEmpty(t, result.IndexID)
	assert.Equal(t, 4, result.Fixtures)
	assert.Equal(t, 1, result.Tessellated)
	assert.Positive(t, result.Triangles)
	assert.Equal(t, 6, result.PathSamples)
	assert.Equal(t, 4, result.Tree.Primitives)
	assert.GreaterOrEqual(t, result.Tree.Nodes, 1)
}
