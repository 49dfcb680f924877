package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/groupmix/groupmix/config"
	"github.com/groupmix/groupmix/core/compliance"
	"github.com/groupmix/groupmix/core/diff"
	"github.com/groupmix/groupmix/infra/logger"
)

var (
	watchProblemPath  string
	watchSchedulePath string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-evaluate a schedule file whenever it changes",
	Long: "Watches the schedule file and recomputes the compliance report on " +
		"every change, printing the structural diff against the previous state.",
	RunE: watch,
}

func init() {
	watchCmd.Flags().StringVar(&watchProblemPath, "problem", "", "problem definition file")
	watchCmd.Flags().StringVar(&watchSchedulePath, "schedule", "", "candidate schedule file to watch")
	_ = watchCmd.MarkFlagRequired("problem")
	_ = watchCmd.MarkFlagRequired("schedule")
	rootCmd.AddCommand(watchCmd)
}

func watch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	problem, err := config.LoadProblem(watchProblemPath)
	if err != nil {
		return err
	}
	log := logger.New("watch")
	eval := compliance.NewEvaluator(log)

	evaluateFile := func() (compliance.Report, error) {
		sol, err := config.LoadSolution(watchSchedulePath)
		if err != nil {
			return compliance.Report{}, err
		}
		return eval.Evaluate(problem, sol.Assignments), nil
	}

	last, err := evaluateFile()
	if err != nil {
		return err
	}
	logReport(log, last)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	defer watcher.Close()
	// Watch the directory: editors replace files on save, which drops a
	// watch on the file itself.
	if err := watcher.Add(filepath.Dir(watchSchedulePath)); err != nil {
		return fmt.Errorf("watch %s: %w", watchSchedulePath, err)
	}

	target, _ := filepath.Abs(watchSchedulePath)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if evPath, _ := filepath.Abs(ev.Name); evPath != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			current, err := evaluateFile()
			if err != nil {
				log.Errorf("re-evaluate: %v", err)
				continue
			}
			change, err := diff.Compare(problem.Constraints, last, current)
			if err != nil {
				log.Errorf("diff: %v", err)
				continue
			}
			last = current
			logReport(log, current)
			out, err := json.MarshalIndent(change, "", "  ")
			if err != nil {
				log.Errorf("encode change report: %v", err)
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Errorf("watcher: %v", err)
		}
	}
}

func logReport(log logger.Logger, report compliance.Report) {
	violations := 0
	failing := 0
	for _, r := range report.Results {
		violations += r.Violations
		if !r.Adheres {
			failing++
		}
	}
	log.Infof("evaluated %d constraints: %d failing, %d violations",
		len(report.Results), failing, violations)
}
