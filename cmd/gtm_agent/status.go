package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jonathan/gtm-agent/internal/activity"
	"github.com/jonathan/gtm-agent/internal/server"
	"github.com/spf13/cobra"
)

var (
	statusURL     string
	statusTimeout time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the metrics and recent activity of a running agent",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
		defer cancel()

		st, err := fetchStatus(ctx, http.DefaultClient, statusURL)
		if err != nil {
			return err
		}
		renderStatus(cmd.OutOrStdout(), st)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusURL, "url", "http://localhost:5000", "Base URL of the running agent")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.AddCommand(statusCmd)
}

func fetchStatus(ctx context.Context, client *http.Client, baseURL string) (*server.StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/api/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching status: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("fetching status: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var st server.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decoding status: %w", err)
	}
	return &st, nil
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(20)
	valueStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	metricsCard = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func renderStatus(w io.Writer, st *server.StatusResponse) {
	m := st.Metrics
	rows := []string{
		labelStyle.Render("Leads analyzed") + valueStyle.Render(fmt.Sprint(m.LeadsAnalyzed)),
		labelStyle.Render("Deals monitored") + valueStyle.Render(fmt.Sprint(m.DealsMonitored)),
		labelStyle.Render("Interventions made") + valueStyle.Render(fmt.Sprint(m.InterventionsMade)),
		labelStyle.Render("Alerts sent") + valueStyle.Render(fmt.Sprint(m.AlertsSent)),
	}
	if !m.StartedAt.IsZero() {
		rows = append(rows, labelStyle.Render("Started")+m.StartedAt.Local().Format(time.RFC1123))
	}

	names := make([]string, 0, len(m.LastRun))
	for name := range m.LastRun {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rows = append(rows, labelStyle.Render("Last "+name)+m.LastRun[name].Local().Format("Jan 2 15:04:05"))
	}

	fmt.Fprintln(w, titleStyle.Render("GTM Agent"))
	fmt.Fprintln(w, metricsCard.Render(strings.Join(rows, "\n")))
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Recent activity"))
	if len(st.RecentLogs) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, e := range st.RecentLogs {
		style := okStyle
		if e.Category == activity.CategoryError {
			style = errorStyle
		}
		fmt.Fprintf(w, "  %s %s %s\n",
			e.Timestamp.Local().Format("15:04:05"),
			style.Render(fmt.Sprintf("%-12s", e.Category)),
			e.Message)
	}
}
