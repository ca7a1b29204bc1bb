package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chazu/toolclear/pkg/collision"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/samber/lo"
)

// metricPrefix selects the hierarchy metrics from the default registry.
const metricPrefix = "bvh_"

func formatVec(v v3.Vec) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

func renderErrors(w io.Writer, errs []EvalErrorData) bool {
	for _, e := range errs {
		if e.Line > 0 {
			fmt.Fprintln(w, color.RedString("error: line %d: %s", e.Line, e.Message))
		} else {
			fmt.Fprintln(w, color.RedString("error: %s", e.Message))
		}
	}
	return len(errs) > 0
}

func severityString(s collision.Severity) string {
	if s == collision.SeverityCritical {
		return color.New(color.FgRed, color.Bold).Sprintf("%-8s", s)
	}
	return color.YellowString("%-8s", s)
}

func renderCheck(w io.Writer, r CheckResult) {
	if renderErrors(w, r.Errors) {
		return
	}

	for _, e := range r.Encounters {
		fmt.Fprintf(w, "sample %5d  %s  %s  %s\n",
			e.SampleIndex, severityString(e.Severity), formatVec(e.Position), strings.Join(e.Fixtures, ", "))
	}

	s := r.Summary
	if s.Clear() {
		fmt.Fprintln(w, color.GreenString("clear: no path sample reaches a fixture"))
		return
	}

	fmt.Fprintf(w, "%d samples: %s critical, %s warning\n", s.Samples,
		color.RedString("%d", s.Critical), color.YellowString("%d", s.Warning))
	names := lo.Keys(s.Fixtures)
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-20s %d\n", name, s.Fixtures[name])
	}
}

func renderConflicts(w io.Writer, r ConflictsResult) {
	if renderErrors(w, r.Errors) {
		return
	}
	if len(r.Conflicts) == 0 {
		fmt.Fprintln(w, color.GreenString("no overlapping fixtures"))
		return
	}
	for _, c := range r.Conflicts {
		fmt.Fprintf(w, "%s  %s / %s  overlap %s\n", color.YellowString("conflict"), c.A, c.B, c.Box)
	}
}

func renderProbe(w io.Writer, r ProbeResult) {
	if renderErrors(w, r.Errors) {
		return
	}
	if len(r.Hits) == 0 {
		fmt.Fprintln(w, color.GreenString("probe hit nothing"))
		return
	}
	for _, h := range r.Hits {
		how := "envelope"
		if h.Exact {
			how = "surface"
		}
		fmt.Fprintf(w, "%10.3f  %-20s %s  %s\n", h.Distance, h.Fixture, formatVec(h.Point), how)
	}
}

func renderStats(w io.Writer, r StatsResult) {
	if renderErrors(w, r.Errors) {
		return
	}
	fmt.Fprintf(w, "index        %s\n", r.IndexID)
	fmt.Fprintf(w, "fixtures     %d (%d tessellated, %d triangles)\n", r.Fixtures, r.Tessellated, r.Triangles)
	fmt.Fprintf(w, "path samples %d\n", r.PathSamples)
	fmt.Fprintf(w, "bounds       %s\n", r.Bounds)
	fmt.Fprintf(w, "tree         %d nodes, %d leaves, depth %d\n", r.Tree.Nodes, r.Tree.Leaves, r.Tree.MaxDepth)
}

// renderMetrics prints the hierarchy counters gathered during this run.
func renderMetrics(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}

	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), metricPrefix) {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := lo.Map(m.GetLabel(), func(l *dto.LabelPair, _ int) string {
				return l.GetName() + "=" + l.GetValue()
			})
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}

			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				fmt.Fprintf(w, "%-40s %g\n", name, m.GetCounter().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%-40s count=%d sum=%g\n", name, h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
	return nil
}
