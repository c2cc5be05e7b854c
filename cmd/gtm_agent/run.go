package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/gtm-agent/internal/activity"
	"github.com/jonathan/gtm-agent/internal/bootstrap"
	"github.com/jonathan/gtm-agent/internal/jobs"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <job>",
	Short: "Run one job now and print what it did",
	Long: fmt.Sprintf(`Run a single job synchronously, outside the schedule, then print the activity log.

Jobs: %s`, strings.Join(jobs.Names(), ", ")),
	Args:      cobra.ExactArgs(1),
	ValidArgs: jobs.Names(),
	RunE:      runJobCmd,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runJobCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	agent, err := bootstrap.New(ctx, cfg, bootstrap.WithLogOutput(cmd.ErrOrStderr()), bootstrap.WithBanner(nil))
	if err != nil {
		return err
	}
	defer agent.Stop()

	runErr := agent.Scheduler.Trigger(jobs.WithTrigger(ctx, jobs.TriggerManual), args[0])

	_, entries := agent.Store.Snapshot(0)
	printEntries(cmd.OutOrStdout(), entries)

	if runErr != nil {
		return fmt.Errorf("%s failed: %w", args[0], runErr)
	}
	return nil
}

// printEntries writes entries oldest first.
func printEntries(w io.Writer, entries []activity.Entry) {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		fmt.Fprintf(w, "%s  %-12s %s\n", e.Timestamp.Format("15:04:05"), e.Category, e.Message)
	}
}
