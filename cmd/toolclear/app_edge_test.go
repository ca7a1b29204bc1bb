package main

import (
	"fmt"
	"strings"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ---------------------------------------------------------------------------
// 1. Empty input: every result serializes its lists as [] rather than null.
// ---------------------------------------------------------------------------

func TestE2EEmptySourceExtended(t *testing.T) {
	app := NewApp(fastConfig())

	check := app.Check("")
	if check.Encounters == nil || check.Errors == nil {
		t.Error("Check lists should be non-nil empty slices")
	}
	conflicts := app.Conflicts("")
	if conflicts.Conflicts == nil || conflicts.Errors == nil {
		t.Error("Conflicts lists should be non-nil empty slices")
	}
	probe := app.Probe("", v3.Vec{}, v3.Vec{Z: -1}, 0)
	if probe.Hits == nil || probe.Errors == nil {
		t.Error("Probe lists should be non-nil empty slices")
	}
	stats := app.Stats("")
	if stats.Errors == nil {
		t.Error("Stats errors should be a non-nil empty slice")
	}
	if stats.Fixtures != 0 || stats.Tree.Nodes != 0 {
		t.Errorf("expected an empty index, got %+v", stats)
	}
}

func TestE2ECommentsAndWhitespaceOnly(t *testing.T) {
	app := NewApp(fastConfig())
	for _, source := range []string{
		";; just a note\n; and another",
		"   \n\t\n  ",
		"  ;; indented comment\n\n",
	} {
		result := app.Check(source)
		if len(result.Errors) != 0 {
			t.Errorf("%q: unexpected errors %v", source, result.Errors)
		}
		if !result.Summary.Clear() {
			t.Errorf("%q: expected a clear summary", source)
		}
	}
}

// ---------------------------------------------------------------------------
// 2. Syntax errors: reported as evaluation errors, nothing is checked.
// ---------------------------------------------------------------------------

func TestE2ESyntaxErrorWithLineInfo(t *testing.T) {
	app := NewApp(fastConfig())

	// Valid code on line 1, broken code on line 2 so line info is meaningful.
	result := app.Check("(+ 1 2)\n(stock \"blank\"")
	if len(result.Errors) == 0 {
		t.Fatal("expected at least one eval error for unmatched parens")
	}
	if len(result.Encounters) != 0 {
		t.Errorf("expected 0 encounters on syntax error, got %d", len(result.Encounters))
	}

	e := result.Errors[0]
	if e.Message == "" {
		t.Error("syntax error should have a non-empty message")
	}
	t.Logf("syntax error: line=%d, col=%d, message=%q", e.Line, e.Col, e.Message)
}

func TestE2EUndefinedSymbol(t *testing.T) {
	result := NewApp(fastConfig()).Conflicts(`(stock "blank" :size blank_size)`)
	if len(result.Errors) == 0 {
		t.Fatal("expected an error for an undefined symbol")
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("expected no conflicts, got %d", len(result.Conflicts))
	}
}

// ---------------------------------------------------------------------------
// 3. Degenerate and extreme geometry.
// ---------------------------------------------------------------------------

func TestE2EZeroSizeStockIsAnObstacle(t *testing.T) {
	// A zero-size box is a point; a tool envelope that touches it still
	// counts.
	source := `
(stock "pin" :size (vec3 0 0 0) :at (vec3 10 10 0))
(tool "t" :radius 1 :length 10)
(cut (vec3 11 10 0))
`
	result := NewApp(fastConfig()).Check(source)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Encounters) != 1 {
		t.Fatalf("expected 1 encounter with the point obstacle, got %d", len(result.Encounters))
	}
}

func TestE2ENegativeDimension(t *testing.T) {
	result := NewApp(fastConfig()).Check(`(stock "s" :size (vec3 10 -1 10))`)
	if len(result.Errors) == 0 {
		t.Fatal("expected an error for a negative stock size")
	}
	if !strings.Contains(result.Errors[0].Message, "must not be negative") {
		t.Errorf("unexpected message %q", result.Errors[0].Message)
	}
}

func TestE2EVeryLargeDimensions(t *testing.T) {
	source := `
(stock "slab" :size (vec3 1000000000 1000000000 10))
(tool "t" :radius 3 :length 40)
(cut (vec3 500000000 500000000 9))
`
	result := NewApp(fastConfig()).Check(source)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.Summary.Samples != 1 {
		t.Errorf("expected 1 flagged sample, got %d", result.Summary.Samples)
	}
}

func TestE2ENestedArithmeticDef(t *testing.T) {
	source := `
(def width (* 2 50))
(def depth (/ width 4))
(stock "blank" :size (vec3 width depth (+ 10 10)))
`
	result := NewApp(fastConfig()).Probe(source, v3.Vec{X: 99, Y: 24, Z: 100}, v3.Vec{Z: -1}, 0)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Hits) != 1 || result.Hits[0].Distance != 80 {
		t.Errorf("expected one hit at 80, got %+v", result.Hits)
	}
}

// ---------------------------------------------------------------------------
// 4. Many fixtures: the probe returns every block along the ray in order.
// ---------------------------------------------------------------------------

func TestE2EManyFixtures(t *testing.T) {
	const blocks = 50

	var b strings.Builder
	for i := 0; i < blocks; i++ {
		fmt.Fprintf(&b, "(stock \"block-%02d\" :size (vec3 1 1 1) :at (vec3 %d 0 0))\n", i, 2*i)
	}

	result := NewApp(fastConfig()).Probe(b.String(), v3.Vec{X: -5, Y: 0.5, Z: 0.5}, v3.Vec{X: 1}, 0)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Hits) != blocks {
		t.Fatalf("expected %d hits, got %d", blocks, len(result.Hits))
	}
	for i, h := range result.Hits {
		if want := fmt.Sprintf("block-%02d", i); h.Fixture != want {
			t.Errorf("hit %d: fixture %q, want %q", i, h.Fixture, want)
		}
		if want := float64(5 + 2*i); h.Distance != want {
			t.Errorf("hit %d: distance %g, want %g", i, h.Distance, want)
		}
	}
}

// ---------------------------------------------------------------------------
// 5. Rapid sequential evaluation on one App.
// ---------------------------------------------------------------------------

func TestE2ERapidEvaluation(t *testing.T) {
	// Sequential calls exercise the engine's generation counter. zygomys
	// keeps global state that is not safe for concurrent sandbox creation,
	// so calls are not issued in parallel.
	app := NewApp(fastConfig())

	sources := []string{
		`(stock "a" :size (vec3 100 50 10))`,
		`(stock "b" :size (vec3 200 100 20`,
		`(+ 1 2)`,
		``,
		`(fixture "c" :min (vec3 0 0 0) :max (vec3 1 1 1) :kind :clamp)`,
		`(tool "t" :radius -1 :length 1)`,
	}

	for i, source := range sources {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("iteration %d panicked: %v", i, r)
				}
			}()
			_ = app.Check(source)
		}()
	}
}
