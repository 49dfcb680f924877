package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groupmix/groupmix/config"
	"github.com/groupmix/groupmix/core/model"
	"github.com/groupmix/groupmix/infra/mqtt"
	"github.com/groupmix/groupmix/internal/eventbus"
)

const testProblem = `{
  "people": [{"id": "A"}, {"id": "B"}, {"id": "C"}],
  "groups": [{"id": "g1", "capacity": 3}, {"id": "g2", "capacity": 3}],
  "num_sessions": 1,
  "constraints": [
    {"type": "should_not_be_together", "people": ["A", "B"], "penalty_weight": 5}
  ]
}`

// reportWire decodes the published report envelope without the detail
// variants, which only marshal one way.
type reportWire struct {
	RunID  string             `json:"run_id"`
	Score  model.ScoreSummary `json:"score"`
	Report struct {
		Results []struct {
			ConstraintIndex int    `json:"constraint_index"`
			Type            string `json:"type"`
			Adheres         bool   `json:"adheres"`
			Violations      int    `json:"violations"`
		} `json:"results"`
	} `json:"report"`
}

type changeWire struct {
	RunID  string `json:"run_id"`
	Change struct {
		Before model.ScoreSummary `json:"before_score"`
		After  model.ScoreSummary `json:"after_score"`
		Deltas []struct {
			ConstraintIndex int     `json:"constraint_index"`
			Changed         bool    `json:"changed"`
			CountDelta      int     `json:"count_delta"`
			WeightedDelta   float64 `json:"weighted_delta"`
		} `json:"per_constraint_delta"`
		AggregateDelta float64 `json:"aggregate_score_delta"`
	} `json:"change"`
}

func newTestService(t *testing.T) (*Service, *mqtt.MockClient) {
	t.Helper()
	problemPath := filepath.Join(t.TempDir(), "problem.json")
	require.NoError(t, os.WriteFile(problemPath, []byte(testProblem), 0o600))

	cfg := &config.Config{
		Problem: problemPath,
		MQTT:    mqtt.Config{Broker: "tcp://localhost:1883"},
	}
	cfg.MQTT.SetDefaults()
	cfg.Logging.SetDefaults()

	client := mqtt.NewMockClient()
	svc, err := NewWithClient(cfg, client)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, client
}

func solutionPayload(t *testing.T, together bool) []byte {
	t.Helper()
	groupB := "g2"
	if together {
		groupB = "g1"
	}
	payload, err := json.Marshal(map[string]any{
		"assignments": []map[string]any{
			{"session": 0, "group_id": "g1", "person_id": "A"},
			{"session": 0, "group_id": groupB, "person_id": "B"},
			{"session": 0, "group_id": "g2", "person_id": "C"},
		},
	})
	require.NoError(t, err)
	return payload
}

func TestHandleSolutionPublishesReport(t *testing.T) {
	svc, client := newTestService(t)

	require.NoError(t, svc.HandleSolution(solutionPayload(t, true)))

	reports := client.PublishedOn(svc.cfg.MQTT.ReportTopic)
	require.Len(t, reports, 1)

	var msg reportWire
	require.NoError(t, json.Unmarshal(reports[0], &msg))
	assert.NotEmpty(t, msg.RunID)
	require.Len(t, msg.Report.Results, 1)
	assert.Equal(t, "should_not_be_together", msg.Report.Results[0].Type)
	assert.False(t, msg.Report.Results[0].Adheres)
	assert.Equal(t, 1, msg.Report.Results[0].Violations)
	// No optimizer score on the payload, so the service computes one.
	assert.Equal(t, 5.0, msg.Score.ConstraintPenalty)
	// First evaluation has no baseline to diff against.
	assert.Empty(t, client.PublishedOn(svc.cfg.MQTT.ChangesTopic))
}

func TestSecondSolutionPublishesChangeReport(t *testing.T) {
	svc, client := newTestService(t)

	require.NoError(t, svc.HandleSolution(solutionPayload(t, true)))
	require.NoError(t, svc.HandleSolution(solutionPayload(t, false)))

	changes := client.PublishedOn(svc.cfg.MQTT.ChangesTopic)
	require.Len(t, changes, 1)

	var msg changeWire
	require.NoError(t, json.Unmarshal(changes[0], &msg))
	assert.NotEmpty(t, msg.RunID)
	assert.Equal(t, 5.0, msg.Change.Before.ConstraintPenalty)
	assert.Zero(t, msg.Change.After.ConstraintPenalty)
	assert.Equal(t, -5.0, msg.Change.AggregateDelta)
	require.Len(t, msg.Change.Deltas, 1)
	assert.True(t, msg.Change.Deltas[0].Changed)
	assert.Equal(t, -1, msg.Change.Deltas[0].CountDelta)
	assert.Equal(t, -5.0, msg.Change.Deltas[0].WeightedDelta)
}

func TestSolutionScorePassedThrough(t *testing.T) {
	svc, client := newTestService(t)

	payload, err := json.Marshal(map[string]any{
		"assignments": []map[string]any{
			{"session": 0, "group_id": "g1", "person_id": "A"},
		},
		"score": map[string]any{"final_score": 42.0, "unique_contacts": 7},
	})
	require.NoError(t, err)
	require.NoError(t, svc.HandleSolution(payload))

	reports := client.PublishedOn(svc.cfg.MQTT.ReportTopic)
	require.Len(t, reports, 1)
	var msg reportWire
	require.NoError(t, json.Unmarshal(reports[0], &msg))
	assert.Equal(t, 42.0, msg.Score.FinalScore)
	assert.Equal(t, 7, msg.Score.UniqueContacts)
}

func TestHandleSolutionRejectsGarbage(t *testing.T) {
	svc, client := newTestService(t)
	require.Error(t, svc.HandleSolution([]byte("not json")))
	assert.Empty(t, client.PublishedOn(svc.cfg.MQTT.ReportTopic))
}

func TestBusReceivesLifecycleEvents(t *testing.T) {
	svc, _ := newTestService(t)
	sub := svc.Bus().Subscribe()

	require.NoError(t, svc.HandleSolution(solutionPayload(t, true)))
	require.NoError(t, svc.HandleSolution(solutionPayload(t, false)))

	var evals, diffs int
	timeout := time.After(time.Second)
	for evals < 2 || diffs < 1 {
		select {
		case e := <-sub:
			switch e.(type) {
			case eventbus.EvaluationEvent:
				evals++
			case eventbus.DiffEvent:
				diffs++
			}
		case <-timeout:
			t.Fatalf("timed out: %d evaluation events, %d diff events", evals, diffs)
		}
	}
}

func TestRunSubscribesToSolutionTopic(t *testing.T) {
	svc, client := newTestService(t)
	payload := solutionPayload(t, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	// Wait for the subscription, then feed a solution through the broker.
	require.Eventually(t, func() bool {
		client.Inject(svc.cfg.MQTT.SolutionTopic, payload)
		return len(client.PublishedOn(svc.cfg.MQTT.ReportTopic)) > 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
