package bvh

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	strategyLabel = "strategy"
	kindLabel     = "kind"

	queryRegion = "region"
	queryPairs  = "pairs"
	queryRay    = "ray"
)

var (
	bvhBuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bvh_builds_total",
		Help: "The total number of bounding volume hierarchies built.",
	}, []string{strategyLabel})

	bvhBuildPrimitives = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bvh_build_primitives",
		Help:    "The number of primitives per hierarchy build.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})

	bvhQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bvh_queries_total",
		Help: "The total number of hierarchy queries.",
	}, []string{kindLabel})
)

func instrumentBuild(strategy SplitStrategy, primitives int) {
	bvhBuildsTotal.
		With(prometheus.Labels{strategyLabel: strategy.String()}).
		Inc()
	bvhBuildPrimitives.Observe(float64(primitives))
}

func instrumentQuery(kind string) {
	bvhQueriesTotal.
		With(prometheus.Labels{kindLabel: kind}).
		Inc()
}
