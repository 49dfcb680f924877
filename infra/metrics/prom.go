package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/groupmix/groupmix/core/metrics"
)

// PromSink records evaluation results in Prometheus metrics.
type PromSink struct {
	evaluations *prometheus.CounterVec
	violations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	diffs       prometheus.Counter
}

// NewPromSink registers evaluation metrics on the provided registerer. If
// reg is nil, the default registerer is used. Already registered collectors
// are reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	evaluations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "compliance_evaluations_total",
		Help: "Total number of per-constraint evaluations",
	}, []string{"constraint_type", "adheres"})
	violations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "compliance_violations_total",
		Help: "Total violation mass observed per constraint type",
	}, []string{"constraint_type"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "compliance_evaluation_seconds",
		Help:    "Time spent evaluating one constraint",
		Buckets: prometheus.DefBuckets,
	}, []string{"constraint_type"})
	diffs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "compliance_diffs_total",
		Help: "Total number of before/after comparisons",
	})

	s := &PromSink{}
	var err error
	if s.evaluations, err = registerCounterVec(reg, evaluations); err != nil {
		return nil, err
	}
	if s.violations, err = registerCounterVec(reg, violations); err != nil {
		return nil, err
	}
	if err := reg.Register(duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			duration = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	s.duration = duration
	if err := reg.Register(diffs); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			diffs = are.ExistingCollector.(prometheus.Counter)
		} else {
			return nil, err
		}
	}
	s.diffs = diffs
	return s, nil
}

func registerCounterVec(reg prometheus.Registerer, cv *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(cv); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec), nil
		}
		return nil, err
	}
	return cv, nil
}

// RecordEvaluation increments the counters for each record.
func (s *PromSink) RecordEvaluation(recs []coremetrics.EvaluationRecord) error {
	for _, r := range recs {
		kind := string(r.ConstraintType)
		s.evaluations.WithLabelValues(kind, strconv.FormatBool(r.Adheres)).Inc()
		s.violations.WithLabelValues(kind).Add(float64(r.Violations))
		s.duration.WithLabelValues(kind).Observe(r.Duration.Seconds())
	}
	return nil
}

// RecordDiff counts one comparison.
func (s *PromSink) RecordDiff(coremetrics.DiffRecord) error {
	s.diffs.Inc()
	return nil
}
