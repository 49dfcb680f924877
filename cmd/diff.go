package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groupmix/groupmix/config"
	"github.com/groupmix/groupmix/core/analysis"
	"github.com/groupmix/groupmix/core/compliance"
	"github.com/groupmix/groupmix/core/diff"
	"github.com/groupmix/groupmix/core/model"
	"github.com/groupmix/groupmix/core/schedule"
	"github.com/groupmix/groupmix/infra/logger"
)

var (
	diffProblemPath string
	beforePath      string
	afterPath       string
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare compliance of two schedules for the same problem",
	RunE:  runDiff,
}

func init() {
	diffCmd.Flags().StringVar(&diffProblemPath, "problem", "", "problem definition file")
	diffCmd.Flags().StringVar(&beforePath, "before", "", "schedule before the edit")
	diffCmd.Flags().StringVar(&afterPath, "after", "", "schedule after the edit")
	_ = diffCmd.MarkFlagRequired("problem")
	_ = diffCmd.MarkFlagRequired("before")
	_ = diffCmd.MarkFlagRequired("after")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	problem, err := config.LoadProblem(diffProblemPath)
	if err != nil {
		return err
	}
	before, err := config.LoadSolution(beforePath)
	if err != nil {
		return err
	}
	after, err := config.LoadSolution(afterPath)
	if err != nil {
		return err
	}

	eval := compliance.NewEvaluator(logger.New("diff"))
	beforeReport := eval.Evaluate(problem, before.Assignments)
	afterReport := eval.Evaluate(problem, after.Assignments)

	change, err := diff.Compare(problem.Constraints, beforeReport, afterReport)
	if err != nil {
		return err
	}
	change.Before = summaryFor(problem, before, beforeReport)
	change.After = summaryFor(problem, after, afterReport)

	out, err := json.MarshalIndent(change, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func summaryFor(problem model.Problem, sol model.Solution, report compliance.Report) model.ScoreSummary {
	if sol.Score != nil {
		return *sol.Score
	}
	ix := schedule.New(sol.Assignments, problem.NumSessions)
	return analysis.Summarize(problem, report, ix)
}
