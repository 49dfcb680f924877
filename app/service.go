// Package app wires the compliance evaluator into a long-running service:
// candidate solutions arrive from the external optimizer over MQTT, each is
// evaluated against the configured problem, and the resulting compliance
// report (plus the structural diff against the previous report) is published
// back out.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/groupmix/groupmix/config"
	"github.com/groupmix/groupmix/core/analysis"
	"github.com/groupmix/groupmix/core/compliance"
	"github.com/groupmix/groupmix/core/diff"
	coremetrics "github.com/groupmix/groupmix/core/metrics"
	"github.com/groupmix/groupmix/core/model"
	"github.com/groupmix/groupmix/core/schedule"
	"github.com/groupmix/groupmix/infra/logger"
	inframetrics "github.com/groupmix/groupmix/infra/metrics"
	"github.com/groupmix/groupmix/infra/mqtt"
	"github.com/groupmix/groupmix/internal/eventbus"
)

// ReportMessage is the wire envelope for a published compliance report.
type ReportMessage struct {
	RunID  string             `json:"run_id"`
	Score  model.ScoreSummary `json:"score"`
	Report compliance.Report  `json:"report"`
}

// ChangeMessage is the wire envelope for a published change report.
type ChangeMessage struct {
	RunID  string            `json:"run_id"`
	Change diff.ChangeReport `json:"change"`
}

// Service evaluates incoming candidate solutions for one problem.
type Service struct {
	cfg     *config.Config
	problem model.Problem
	eval    *compliance.Evaluator
	client  mqtt.Client
	sink    coremetrics.Sink
	bus     eventbus.EventBus
	log     logger.Logger

	mu          sync.Mutex
	lastReport  *compliance.Report
	lastSummary model.ScoreSummary
}

// New creates a Service from the configuration, connecting to the broker.
func New(cfg *config.Config) (*Service, error) {
	client, err := mqtt.NewPahoClient(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}
	return NewWithClient(cfg, client)
}

// NewWithClient creates a Service on an existing transport. Tests use it
// with the mock client.
func NewWithClient(cfg *config.Config, client mqtt.Client) (*Service, error) {
	logger.SetGlobalLevel(cfg.Logging.Level)
	logg := logger.New("service")

	problem, err := config.LoadProblem(cfg.Problem)
	if err != nil {
		return nil, err
	}

	if err := inframetrics.RegisterBuiltinSinks(); err != nil {
		return nil, fmt.Errorf("register sinks: %w", err)
	}
	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	return &Service{
		cfg:     cfg,
		problem: problem,
		eval:    compliance.NewEvaluator(logger.New("evaluator")),
		client:  client,
		sink:    sink,
		bus:     eventbus.New(),
		log:     logg,
	}, nil
}

// Problem returns the loaded problem definition.
func (s *Service) Problem() model.Problem { return s.problem }

// Bus exposes the service event bus.
func (s *Service) Bus() eventbus.EventBus { return s.bus }

// Run subscribes to the solution topic and blocks until the context is
// canceled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.client.Subscribe(s.cfg.MQTT.SolutionTopic, func(_ string, payload []byte) {
		if err := s.HandleSolution(payload); err != nil {
			s.log.Errorf("solution rejected: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.cfg.MQTT.SolutionTopic, err)
	}
	s.log.Infof("listening for solutions on %s", s.cfg.MQTT.SolutionTopic)

	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := inframetrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	<-ctx.Done()
	return nil
}

// HandleSolution decodes one candidate solution payload, evaluates it and
// publishes the report plus the diff against the previous evaluation.
func (s *Service) HandleSolution(payload []byte) error {
	var sol model.Solution
	if err := json.Unmarshal(payload, &sol); err != nil {
		return fmt.Errorf("decode solution: %w", err)
	}
	_, err := s.Evaluate(sol)
	return err
}

// Evaluate runs the compliance evaluation for one solution and returns the
// published report message.
func (s *Service) Evaluate(sol model.Solution) (ReportMessage, error) {
	runID := uuid.NewString()
	now := time.Now()

	report, durations := s.eval.EvaluateInstrumented(s.problem, sol.Assignments)

	summary := s.summarize(sol, report)
	msg := ReportMessage{RunID: runID, Score: summary, Report: report}
	if err := s.publish(s.cfg.MQTT.ReportTopic, msg); err != nil {
		return ReportMessage{}, err
	}

	s.recordEvaluation(runID, now, report, durations)
	s.publishDiff(runID, now, report, summary)
	return msg, nil
}

func (s *Service) summarize(sol model.Solution, report compliance.Report) model.ScoreSummary {
	if sol.Score != nil {
		return *sol.Score
	}
	ix := schedule.New(sol.Assignments, s.problem.NumSessions)
	return analysis.Summarize(s.problem, report, ix)
}

func (s *Service) recordEvaluation(runID string, now time.Time, report compliance.Report, durations []time.Duration) {
	recs := make([]coremetrics.EvaluationRecord, len(report.Results))
	violations := 0
	adheres := true
	for i, res := range report.Results {
		recs[i] = coremetrics.EvaluationRecord{
			RunID:           runID,
			ConstraintIndex: res.ConstraintIndex,
			ConstraintType:  res.Type,
			Adheres:         res.Adheres,
			Violations:      res.Violations,
			Duration:        durations[i],
			Time:            now,
		}
		violations += res.Violations
		adheres = adheres && res.Adheres
	}
	if err := s.sink.RecordEvaluation(recs); err != nil {
		s.log.Warnf("record evaluation: %v", err)
	}
	s.bus.Publish(eventbus.EvaluationEvent{
		RunID:       runID,
		Constraints: len(report.Results),
		Violations:  violations,
		Adheres:     adheres,
	})
}

// publishDiff compares against the previous evaluation, if any, and retains
// the current report as the new baseline.
func (s *Service) publishDiff(runID string, now time.Time, report compliance.Report, summary model.ScoreSummary) {
	s.mu.Lock()
	prev, prevSummary := s.lastReport, s.lastSummary
	s.lastReport, s.lastSummary = &report, summary
	s.mu.Unlock()
	if prev == nil {
		return
	}

	change, err := diff.Compare(s.problem.Constraints, *prev, report)
	if err != nil {
		s.log.Errorf("diff: %v", err)
		return
	}
	change.Before = prevSummary
	change.After = summary
	if err := s.publish(s.cfg.MQTT.ChangesTopic, ChangeMessage{RunID: runID, Change: change}); err != nil {
		s.log.Errorf("publish change report: %v", err)
		return
	}

	if r, ok := s.sink.(coremetrics.DiffRecorder); ok {
		if err := r.RecordDiff(coremetrics.DiffRecord{
			RunID:          runID,
			ChangedCount:   len(change.Deltas),
			AggregateDelta: change.AggregateDelta,
			Time:           now,
		}); err != nil {
			s.log.Warnf("record diff: %v", err)
		}
	}
	s.bus.Publish(eventbus.DiffEvent{
		RunID:          runID,
		ChangedCount:   len(change.Deltas),
		AggregateDelta: change.AggregateDelta,
	})
}

func (s *Service) publish(topic string, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := s.client.Publish(topic, payload); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close releases the transport and the event bus.
func (s *Service) Close() error {
	s.client.Close()
	s.bus.Close()
	return nil
}
