// Package engine evaluates machining setup descriptions. A setup is a
// small Lisp program, run in a sandboxed zygomys interpreter, that
// declares the fixtures on the table, the tool and the toolpath to
// check.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/chazu/toolclear/pkg/collision"
	"github.com/chazu/toolclear/pkg/kernel"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("toolclear:engine")

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Setup is everything a setup program declared.
type Setup struct {
	Fixtures []collision.Fixture
	Tool     *collision.Tool
	Path     []collision.PathSample
}

// Fixture returns the fixture with the given name.
func (s *Setup) Fixture(name string) (collision.Fixture, bool) {
	for _, f := range s.Fixtures {
		if f.Name == name {
			return f, true
		}
	}
	return collision.Fixture{}, false
}

// Engine wraps the zygomys interpreter.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	kernel     kernel.Kernel
}

// NewEngine creates a new Engine. k backs solid fixtures such as posts;
// with a nil kernel those builtins report an error.
func NewEngine(k kernel.Kernel) *Engine {
	return &Engine{kernel: k}
}

// Evaluate runs a setup program and returns the setup it declared.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns setup + nil errors + nil error
//   - On parse/eval failure: returns nil setup + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Setup, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		s, evalErrs, err := e.evaluate(source)
		ch <- evalResult{setup: s, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Setup, []EvalError, error) {
	setup := &Setup{}

	// Empty source is a valid program that declares nothing.
	if strings.TrimSpace(source) == "" {
		return setup, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, &builder{setup: setup, kernel: e.kernel})

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	log.Debugf("evaluated setup: %d fixtures, %d path samples", len(setup.Fixtures), len(setup.Path))
	return setup, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
