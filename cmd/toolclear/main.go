// Command toolclear checks CNC toolpaths against the fixtures of a
// machining setup.
//
//	toolclear check setup.lisp
//	toolclear --config toolclear.toml conflicts setup.lisp
//	toolclear probe --from 50,30,100 --dir 0,0,-1 setup.lisp
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chazu/toolclear/pkg/config"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"
)

// Version defines the version number for the cli.
var Version = "0.1"

var log = logging.MustGetLogger("toolclear:cmd")

const (
	exitErrors     = 1
	exitEncounters = 2
)

var (
	globalFlags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "load settings from a TOML file",
		},
		cli.BoolFlag{
			Name:  "debug, d",
			Usage: "log debug output to stderr",
		},
	}

	jsonFlag = cli.BoolFlag{
		Name:  "json",
		Usage: "print the result as JSON",
	}
)

// runner carries state from the Before hook to the commands.
type runner struct {
	app     *App
	logging io.Closer
	stdin   io.Reader
}

func main() {
	if err := newCLI(os.Stdout, os.Stdin).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitErrors)
	}
}

func newCLI(stdout io.Writer, stdin io.Reader) *cli.App {
	r := &runner{stdin: stdin}

	app := cli.NewApp()
	app.Name = "toolclear"
	app.Usage = "check toolpaths against setup fixtures"
	app.Version = Version
	app.Writer = stdout
	app.Flags = globalFlags
	app.Before = r.before
	app.After = r.after
	app.Commands = []cli.Command{
		{
			Name:      "check",
			Usage:     "report path samples whose tool envelope reaches a fixture",
			ArgsUsage: "<setup file | ->",
			Flags: []cli.Flag{
				jsonFlag,
				cli.Float64Flag{
					Name:  "clearance",
					Usage: "override the configured clearance",
				},
				cli.BoolFlag{
					Name:  "no-sweep",
					Usage: "check each sample on its own instead of the motion between samples",
				},
			},
			Action: r.check,
		},
		{
			Name:      "conflicts",
			Usage:     "report fixtures that overlap each other",
			ArgsUsage: "<setup file | ->",
			Flags:     []cli.Flag{jsonFlag},
			Action:    r.conflicts,
		},
		{
			Name:      "probe",
			Usage:     "cast a ray through the fixtures",
			ArgsUsage: "<setup file | ->",
			Flags: []cli.Flag{
				jsonFlag,
				cli.StringFlag{
					Name:  "from",
					Usage: "ray origin as x,y,z",
					Value: "0,0,0",
				},
				cli.StringFlag{
					Name:  "dir",
					Usage: "ray direction as x,y,z",
					Value: "0,0,-1",
				},
				cli.Float64Flag{
					Name:  "max",
					Usage: "maximum distance, 0 for unbounded",
				},
			},
			Action: r.probe,
		},
		{
			Name:      "stats",
			Usage:     "describe the obstacle index built for a setup",
			ArgsUsage: "<setup file | ->",
			Flags: []cli.Flag{
				jsonFlag,
				cli.BoolFlag{
					Name:  "metrics",
					Usage: "also print the hierarchy metrics collected during the run",
				},
			},
			Action: r.stats,
		},
	}
	return app
}

func (r *runner) before(c *cli.Context) error {
	cfg := config.Default()
	if path := c.GlobalString("config"); path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return cli.NewExitError(err.Error(), exitErrors)
		}
	}
	if c.GlobalBool("debug") {
		cfg.Logging = []config.Logging{{Output: "stderr", Level: "debug"}}
	}

	closer, err := cfg.SetupLogging()
	if err != nil {
		return cli.NewExitError(err.Error(), exitErrors)
	}
	r.logging = closer
	r.app = NewApp(cfg)
	return nil
}

func (r *runner) after(c *cli.Context) error {
	if r.logging == nil {
		return nil
	}
	return r.logging.Close()
}

// source reads the setup named by the first argument; "-" is stdin.
func (r *runner) source(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", cli.NewExitError("expected exactly one setup file", exitErrors)
	}

	var (
		data []byte
		err  error
	)
	name := c.Args().First()
	if name == "-" {
		data, err = io.ReadAll(r.stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", cli.NewExitError(errors.Wrap(err, "reading setup").Error(), exitErrors)
	}
	log.Debugf("read %d bytes of setup from %s", len(data), name)
	return string(data), nil
}

func (r *runner) check(c *cli.Context) error {
	source, err := r.source(c)
	if err != nil {
		return err
	}

	app := r.app
	if c.IsSet("clearance") || c.Bool("no-sweep") {
		cfg := app.config
		if c.IsSet("clearance") {
			cfg.Collision.Clearance = c.Float64("clearance")
		}
		if c.Bool("no-sweep") {
			cfg.Collision.Sweep = false
		}
		if err := cfg.Validate(); err != nil {
			return cli.NewExitError(err.Error(), exitErrors)
		}
		app = NewApp(cfg)
	}

	result := app.Check(source)
	if err := output(c, result, func(w io.Writer) { renderCheck(w, result) }); err != nil {
		return err
	}

	switch {
	case len(result.Errors) > 0:
		return cli.NewExitError("", exitErrors)
	case !result.Summary.Clear():
		return cli.NewExitError("", exitEncounters)
	}
	return nil
}

func (r *runner) conflicts(c *cli.Context) error {
	source, err := r.source(c)
	if err != nil {
		return err
	}

	result := r.app.Conflicts(source)
	if err := output(c, result, func(w io.Writer) { renderConflicts(w, result) }); err != nil {
		return err
	}

	switch {
	case len(result.Errors) > 0:
		return cli.NewExitError("", exitErrors)
	case len(result.Conflicts) > 0:
		return cli.NewExitError("", exitEncounters)
	}
	return nil
}

func (r *runner) probe(c *cli.Context) error {
	origin, err := parseVec(c.String("from"))
	if err != nil {
		return cli.NewExitError(errors.Wrap(err, "--from").Error(), exitErrors)
	}
	dir, err := parseVec(c.String("dir"))
	if err != nil {
		return cli.NewExitError(errors.Wrap(err, "--dir").Error(), exitErrors)
	}
	source, err := r.source(c)
	if err != nil {
		return err
	}

	result := r.app.Probe(source, origin, dir, c.Float64("max"))
	if err := output(c, result, func(w io.Writer) { renderProbe(w, result) }); err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		return cli.NewExitError("", exitErrors)
	}
	return nil
}

func (r *runner) stats(c *cli.Context) error {
	source, err := r.source(c)
	if err != nil {
		return err
	}

	result := r.app.Stats(source)
	if err := output(c, result, func(w io.Writer) { renderStats(w, result) }); err != nil {
		return err
	}
	if c.Bool("metrics") {
		if err := renderMetrics(c.App.Writer); err != nil {
			return cli.NewExitError(err.Error(), exitErrors)
		}
	}
	if len(result.Errors) > 0 {
		return cli.NewExitError("", exitErrors)
	}
	return nil
}

// output writes v as JSON when --json is set and calls render otherwise.
func output(c *cli.Context, v interface{}, render func(io.Writer)) error {
	w := c.App.Writer
	if !c.Bool("json") {
		render(w)
		return nil
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return cli.NewExitError(errors.Wrap(err, "encoding result").Error(), exitErrors)
	}
	return nil
}

// parseVec parses "x,y,z".
func parseVec(s string) (v3.Vec, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return v3.Vec{}, errors.Errorf("expected x,y,z, got %q", s)
	}

	var c [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return v3.Vec{}, errors.Wrapf(err, "component %d", i)
		}
		c[i] = f
	}
	return v3.Vec{X: c[0], Y: c[1], Z: c[2]}, nil
}
