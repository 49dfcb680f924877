package metrics

import "errors"

// MultiSink fans records out to several sinks, collecting errors.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink wraps the given sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// RecordEvaluation forwards to every sink and joins their errors.
func (m *MultiSink) RecordEvaluation(recs []EvaluationRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordEvaluation(recs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordDiff forwards to every sink implementing DiffRecorder.
func (m *MultiSink) RecordDiff(rec DiffRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if r, ok := s.(DiffRecorder); ok {
			if err := r.RecordDiff(rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
