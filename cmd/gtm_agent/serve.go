package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/gtm-agent/internal/bootstrap"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the dashboard server",
	Long:  `Start the job scheduler and an HTTP server exposing the dashboard, status API, manual triggers and the weekly report download.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agent, err := bootstrap.New(ctx, cfg, bootstrap.WithBanner(cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	return agent.Serve(ctx)
}
