package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groupmix/groupmix/config"
	"github.com/groupmix/groupmix/core/analysis"
	"github.com/groupmix/groupmix/core/compliance"
	"github.com/groupmix/groupmix/core/model"
	"github.com/groupmix/groupmix/core/schedule"
	"github.com/groupmix/groupmix/infra/logger"
)

var (
	problemPath  string
	schedulePath string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate one schedule against a problem's constraints",
	RunE:  evaluate,
}

func init() {
	evaluateCmd.Flags().StringVar(&problemPath, "problem", "", "problem definition file")
	evaluateCmd.Flags().StringVar(&schedulePath, "schedule", "", "candidate schedule file")
	_ = evaluateCmd.MarkFlagRequired("problem")
	_ = evaluateCmd.MarkFlagRequired("schedule")
	rootCmd.AddCommand(evaluateCmd)
}

func evaluate(cmd *cobra.Command, args []string) error {
	problem, sol, err := loadInputs(problemPath, schedulePath)
	if err != nil {
		return err
	}

	eval := compliance.NewEvaluator(logger.New("evaluate"))
	report := eval.Evaluate(problem, sol.Assignments)

	score := sol.Score
	if score == nil {
		ix := schedule.New(sol.Assignments, problem.NumSessions)
		computed := analysis.Summarize(problem, report, ix)
		score = &computed
	}

	out, err := json.MarshalIndent(struct {
		Score  model.ScoreSummary `json:"score"`
		Report compliance.Report  `json:"report"`
	}{*score, report}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func loadInputs(problemPath, schedulePath string) (model.Problem, model.Solution, error) {
	problem, err := config.LoadProblem(problemPath)
	if err != nil {
		return model.Problem{}, model.Solution{}, err
	}
	sol, err := config.LoadSolution(schedulePath)
	if err != nil {
		return model.Problem{}, model.Solution{}, err
	}
	return problem, sol, nil
}
