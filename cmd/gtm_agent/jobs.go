package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jonathan/gtm-agent/internal/config"
	"github.com/jonathan/gtm-agent/internal/jobs"
	"github.com/jonathan/gtm-agent/internal/scheduler"
	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List the scheduled jobs and when each fires next",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		loc, err := scheduleLocation(cfg)
		if err != nil {
			return err
		}
		return printSchedule(cmd.OutOrStdout(), jobs.NewRunner(jobs.Deps{}).Definitions(), time.Now().In(loc))
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}

func scheduleLocation(cfg *config.Config) (*time.Location, error) {
	if cfg.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(cfg.Timezone)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	nameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func printSchedule(w io.Writer, defs []jobs.Definition, now time.Time) error {
	col := func(width int, s lipgloss.Style) lipgloss.Style { return s.Width(width) }

	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top,
		col(18, headerStyle).Render("JOB"),
		col(14, headerStyle).Render("SCHEDULE"),
		col(22, headerStyle).Render("WHEN"),
		headerStyle.Render("NEXT RUN"),
	))
	for _, d := range defs {
		next, err := scheduler.NextRun(d.Schedule, now)
		if err != nil {
			return fmt.Errorf("%s: %w", d.Name, err)
		}
		fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top,
			col(18, nameStyle).Render(d.Name),
			col(14, lipgloss.NewStyle()).Render(d.Schedule),
			col(22, dimStyle).Render(d.Description),
			lipgloss.NewStyle().Render(next.Format("Mon Jan 2 15:04 MST")),
		))
	}
	return nil
}
