package main

import (
	"github.com/chazu/toolclear/pkg/bvh"
	"github.com/chazu/toolclear/pkg/collision"
	"github.com/chazu/toolclear/pkg/config"
	"github.com/chazu/toolclear/pkg/engine"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
)

// App runs setup programs through the evaluator and the collision index.
// Every command result carries its errors instead of returning them, so
// that a failed evaluation still renders as a report.
type App struct {
	config config.Config
	engine *engine.Engine
}

// EvalErrorData is a JSON-serializable evaluation error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// CheckResult is the outcome of checking a setup's toolpath.
type CheckResult struct {
	IndexID    string                `json:"index_id,omitempty"`
	Tool       *collision.Tool       `json:"tool,omitempty"`
	Encounters []collision.Encounter `json:"encounters"`
	Summary    collision.Summary     `json:"summary"`
	Errors     []EvalErrorData       `json:"errors"`
}

// ConflictsResult lists fixtures that overlap each other.
type ConflictsResult struct {
	Conflicts []collision.Conflict `json:"conflicts"`
	Errors    []EvalErrorData      `json:"errors"`
}

// ProbeResult lists the fixtures a probe ray struck.
type ProbeResult struct {
	Hits   []collision.ProbeHit `json:"hits"`
	Errors []EvalErrorData      `json:"errors"`
}

// StatsResult describes the obstacle index built for a setup.
type StatsResult struct {
	IndexID     string          `json:"index_id,omitempty"`
	Fixtures    int             `json:"fixtures"`
	Tessellated int             `json:"tessellated"`
	Triangles   int             `json:"triangles"`
	PathSamples int             `json:"path_samples"`
	Bounds      string          `json:"bounds"`
	Tree        bvh.Stats       `json:"tree"`
	Errors      []EvalErrorData `json:"errors"`
}

// session is an evaluated setup together with its obstacle index.
type session struct {
	setup *engine.Setup
	index *collision.ObstacleIndex
}

// NewApp creates an App whose engine builds solids with the configured
// geometry kernel.
func NewApp(cfg config.Config) *App {
	return &App{
		config: cfg,
		engine: engine.NewEngine(cfg.GeometryKernel()),
	}
}

// load evaluates source and indexes the fixtures it declares. A nil
// session comes with at least one error.
func (a *App) load(source string) (*session, []EvalErrorData) {
	setup, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		log.Errorf("evaluate: %v", err)
		return nil, fatal(err)
	}
	if len(evalErrs) > 0 {
		return nil, lo.Map(evalErrs, func(e engine.EvalError, _ int) EvalErrorData {
			return EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message}
		})
	}

	idx, err := collision.BuildObstacleIndex(setup.Fixtures, a.config.CollisionOptions())
	if err != nil {
		log.Errorf("building obstacle index: %v", err)
		return nil, fatal(err)
	}
	log.Infof("indexed %d fixtures and %d path samples (index %s)",
		idx.Len(), len(setup.Path), idx.ID)
	return &session{setup: setup, index: idx}, nil
}

func fatal(err error) []EvalErrorData {
	return []EvalErrorData{{Message: err.Error()}}
}

// Check evaluates source and checks its toolpath against its fixtures.
func (a *App) Check(source string) CheckResult {
	result := CheckResult{
		Encounters: []collision.Encounter{},
		Errors:     []EvalErrorData{},
	}

	s, errs := a.load(source)
	if s == nil {
		result.Errors = errs
		return result
	}
	result.IndexID = s.index.ID.String()

	if len(s.setup.Path) == 0 {
		result.Summary = collision.Summarize(nil)
		return result
	}
	if s.setup.Tool == nil {
		result.Errors = append(result.Errors, EvalErrorData{
			Message: "setup has a toolpath but defines no tool",
		})
		return result
	}
	result.Tool = s.setup.Tool

	encounters := collision.CheckToolpathAgainstIndex(s.setup.Path, *s.setup.Tool, s.index, a.config.CollisionOptions())
	if encounters != nil {
		result.Encounters = encounters
	}
	result.Summary = collision.Summarize(encounters)
	return result
}

// Conflicts evaluates source and reports overlapping fixtures.
func (a *App) Conflicts(source string) ConflictsResult {
	result := ConflictsResult{
		Conflicts: []collision.Conflict{},
		Errors:    []EvalErrorData{},
	}

	s, errs := a.load(source)
	if s == nil {
		result.Errors = errs
		return result
	}
	if c := s.index.Conflicts(); c != nil {
		result.Conflicts = c
	}
	return result
}

// Probe evaluates source and casts a ray through its fixtures.
func (a *App) Probe(source string, origin, dir v3.Vec, maxDistance float64) ProbeResult {
	result := ProbeResult{
		Hits:   []collision.ProbeHit{},
		Errors: []EvalErrorData{},
	}
	if dir.Length() == 0 {
		result.Errors = append(result.Errors, EvalErrorData{Message: "probe direction must not be zero"})
		return result
	}

	s, errs := a.load(source)
	if s == nil {
		result.Errors = errs
		return result
	}
	if hits := s.index.Probe(origin, dir, maxDistance); hits != nil {
		result.Hits = hits
	}
	return result
}

// Stats evaluates source and describes the index built from it.
func (a *App) Stats(source string) StatsResult {
	result := StatsResult{Errors: []EvalErrorData{}}

	s, errs := a.load(source)
	if s == nil {
		result.Errors = errs
		return result
	}

	idx := s.index
	result.IndexID = idx.ID.String()
	result.Fixtures = idx.Len()
	result.PathSamples = len(s.setup.Path)
	result.Bounds = idx.Tree.Bounds().String()
	result.Tree = idx.Tree.Stats()
	for i := 0; i < idx.Len(); i++ {
		if m, ok := idx.Mesh(i); ok {
			result.Tessellated++
			result.Triangles += m.Len()
		}
	}
	return result
}
