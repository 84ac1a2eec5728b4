package metrics

import (
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"operon/internal/model"
)

const (
	namespace = "operon"
	subsystem = "dispatch"
)

// Result labels of a dispatch.
const (
	ResultOperator   = "operator"
	ResultNoOperator = "no_operator"
	ResultError      = "error"
)

// Dispatcher resolves the operator of one kind for a genotype.
type Dispatcher interface {
	Dispatch(kind model.Kind, genotype model.Genotype) (model.Operator, error)
}

// Instrumented counts every dispatch it forwards on its own registry.
type Instrumented struct {
	next     Dispatcher
	registry *prometheus.Registry

	dispatches *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func NewInstrumented(next Dispatcher) *Instrumented {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Instrumented{
		next:     next,
		registry: reg,
		dispatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "total",
				Help:      "Operator dispatches by genotype variant, operator kind and result.",
			},
			[]string{"variant", "kind", "result"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "duration_seconds",
				Help:      "Operator resolution latency in seconds.",
				Buckets:   []float64{1e-6, 1e-5, 1e-4, 1e-3, 1e-2},
			},
			[]string{"kind"},
		),
	}
}

func (i *Instrumented) Dispatch(kind model.Kind, genotype model.Genotype) (model.Operator, error) {
	start := time.Now()
	op, err := i.next.Dispatch(kind, genotype)
	i.duration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	result := ResultOperator
	switch {
	case err != nil:
		result = ResultError
	case op == nil:
		result = ResultNoOperator
	}
	i.dispatches.WithLabelValues(variantOf(genotype), string(kind), result).Inc()
	return op, err
}

func (i *Instrumented) Registry() *prometheus.Registry {
	return i.registry
}

// Count is the dispatch total of one variant/kind/result combination.
type Count struct {
	Variant string `json:"variant"`
	Kind    string `json:"kind"`
	Result  string `json:"result"`
	Value   int    `json:"value"`
}

// Summary totals the dispatch counters gathered from the registry.
type Summary struct {
	Dispatches int     `json:"dispatches"`
	Operators  int     `json:"operators"`
	NoOperator int     `json:"no_operator"`
	Failures   int     `json:"failures"`
	Counts     []Count `json:"counts"`
}

func (i *Instrumented) Summary() (Summary, error) {
	families, err := i.registry.Gather()
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	want := prometheus.BuildFQName(namespace, subsystem, "total")
	for _, family := range families {
		if family.GetName() != want {
			continue
		}
		for _, metric := range family.GetMetric() {
			var c Count
			for _, label := range metric.GetLabel() {
				switch label.GetName() {
				case "variant":
					c.Variant = label.GetValue()
				case "kind":
					c.Kind = label.GetValue()
				case "result":
					c.Result = label.GetValue()
				}
			}
			c.Value = int(metric.GetCounter().GetValue())
			summary.Counts = append(summary.Counts, c)

			summary.Dispatches += c.Value
			switch c.Result {
			case ResultOperator:
				summary.Operators += c.Value
			case ResultNoOperator:
				summary.NoOperator += c.Value
			case ResultError:
				summary.Failures += c.Value
			}
		}
	}
	sort.Slice(summary.Counts, func(a, b int) bool {
		ca, cb := summary.Counts[a], summary.Counts[b]
		if ca.Kind != cb.Kind {
			return ca.Kind < cb.Kind
		}
		if ca.Variant != cb.Variant {
			return ca.Variant < cb.Variant
		}
		return ca.Result < cb.Result
	})
	return summary, nil
}

func variantOf(genotype model.Genotype) string {
	if genotype == nil {
		return "none"
	}
	return string(genotype.Variant())
}
