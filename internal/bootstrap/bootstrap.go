// Package bootstrap wires configuration into a running agent: logger, activity
// store, metrics, CRM, LLM, notifier, jobs, scheduler and HTTP server.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jonathan/gtm-agent/internal/activity"
	"github.com/jonathan/gtm-agent/internal/config"
	"github.com/jonathan/gtm-agent/internal/crm"
	"github.com/jonathan/gtm-agent/internal/insights"
	"github.com/jonathan/gtm-agent/internal/jobs"
	"github.com/jonathan/gtm-agent/internal/llm"
	"github.com/jonathan/gtm-agent/internal/notify"
	"github.com/jonathan/gtm-agent/internal/observability"
	"github.com/jonathan/gtm-agent/internal/scheduler"
	"github.com/jonathan/gtm-agent/internal/server"
)

const (
	serviceName = "gtm-agent"
	// jobDrainTimeout bounds how long shutdown waits for running jobs.
	jobDrainTimeout = 30 * time.Second
)

// Agent is a fully wired agent.
type Agent struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     *activity.Store
	Runner    *jobs.Runner
	Scheduler *scheduler.Scheduler
	Server    *server.Server
	Location  *time.Location

	llm    llm.Client
	banner io.Writer
}

// Option customises wiring.
type Option func(*options)

type options struct {
	logOutput  io.Writer
	banner     io.Writer
	httpClient *http.Client
	now        func() time.Time
}

// WithLogOutput sends structured logs to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithBanner sets where the startup banner is printed. Defaults to stdout.
func WithBanner(w io.Writer) Option {
	return func(o *options) { o.banner = w }
}

// WithHTTPClient sets the client used for CRM and webhook calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithClock overrides the time source of the store and jobs.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewLogger builds the slog logger described by cfg.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// logConfig records the effective configuration with secrets masked.
func logConfig(logger *slog.Logger, cfg *config.Config) {
	r := cfg.Redacted()
	logger.Info("configuration loaded",
		"port", r.Port,
		"timezone", r.Timezone,
		"llm_provider", r.LLMProvider,
		"anthropic_api_key", r.AnthropicAPIKey,
		"gemini_api_key", r.GeminiAPIKey,
		"hubspot_base_url", r.HubSpotBaseURL,
		"hubspot_token", r.HubSpotToken,
		"slack_webhook_url", r.SlackWebhookURL,
	)
}

// LLMConfig maps agent configuration onto the provider configuration.
func LLMConfig(cfg *config.Config) *llm.Config {
	lc := llm.ConfigFor(llm.Provider(cfg.LLMProvider))
	if cfg.LLMModel != "" {
		lc = lc.WithAllModels(cfg.LLMModel)
	}
	if cfg.LLMMaxTokens > 0 {
		lc.MaxTokens = int64(cfg.LLMMaxTokens)
	}
	lc.BaseURL = cfg.LLMBaseURL
	return lc
}

// New wires an agent from cfg. Missing credentials never fail wiring; the
// affected feature degrades and a warning is logged.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Agent, error) {
	o := options{banner: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	logger := NewLogger(cfg, o.logOutput)
	logConfig(logger, cfg)

	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("loading schedule time zone %q: %w", cfg.Timezone, err)
		}
		loc = l
	}

	metricsHandler, err := observability.InitMeterProvider(ctx, serviceName)
	if err != nil {
		return nil, fmt.Errorf("initializing meter provider: %w", err)
	}
	if err := observability.InitMetrics(ctx); err != nil {
		return nil, fmt.Errorf("initializing metrics: %w", err)
	}

	store := activity.NewStore(cfg.ActivityLogCapacity).WithLogger(logger)
	if o.now != nil {
		store.WithClock(o.now)
	}

	crmClient := crm.NewClient(crm.Options{
		BaseURL:    cfg.HubSpotBaseURL,
		Token:      cfg.HubSpotToken,
		HTTPClient: o.httpClient,
		Recorder:   store,
	})
	if !crmClient.Configured() {
		logger.Warn("HUBSPOT_TOKEN not set; CRM calls will return empty results")
	}

	var llmClient llm.Client
	if cfg.HasLLM() {
		llmClient, err = llm.NewClient(ctx, LLMConfig(cfg), cfg.LLMAPIKey())
		if err != nil {
			return nil, fmt.Errorf("creating LLM client: %w", err)
		}
	} else {
		logger.Warn("no LLM API key set; analysis will be skipped", "provider", cfg.LLMProvider)
	}

	slack := notify.NewSlack(cfg.SlackWebhookURL, store)
	if o.httpClient != nil {
		slack = slack.WithHTTPClient(o.httpClient)
	}
	if slack.DemoMode() {
		logger.Warn("SLACK_WEBHOOK_URL not set; running in demo mode")
	}

	summarizer := insights.NewLLMSummarizer(llmClient, store)
	runner := jobs.NewRunner(jobs.Deps{
		CRM:        crmClient,
		Summarizer: summarizer,
		Notifier:   slack,
		Recorder:   store,
		Now:        o.now,
		Logger:     logger,
	})

	sched := scheduler.New(ctx, scheduler.WithLocation(loc), scheduler.WithLogger(logger))
	for _, def := range runner.Definitions() {
		if err := sched.Register(def.Name, def.Schedule, def.Run); err != nil {
			return nil, fmt.Errorf("registering %s: %w", def.Name, err)
		}
	}

	srv := server.New(server.Config{
		Port:           cfg.Port,
		StatusLogLimit: cfg.StatusLogLimit,
		Features: server.Features{
			LLM:     summarizer.Configured(),
			CRM:     crmClient.Configured(),
			Webhook: !slack.DemoMode(),
		},
	}, server.Deps{
		Recorder:  store,
		Scheduler: sched,
		Agent:     runner,
		Metrics:   metricsHandler,
		Logger:    logger,
		Now:       o.now,
	})

	return &Agent{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Runner:    runner,
		Scheduler: sched,
		Server:    srv,
		Location:  loc,
		llm:       llmClient,
		banner:    o.banner,
	}, nil
}

// Serve starts the scheduler and the HTTP server and blocks until ctx is done.
func (a *Agent) Serve(ctx context.Context) error {
	a.Scheduler.Start()
	a.Store.Log(ctx, activity.CategoryStartup, "🚀 GTM Autonomous Agent started successfully", map[string]any{
		"llm":     a.Config.HasLLM(),
		"crm":     a.Config.HasCRM(),
		"webhook": a.Config.HasWebhook(),
	})
	if a.banner != nil {
		fmt.Fprint(a.banner, Banner(a.Config.Port, a.Runner.Definitions()))
	}

	err := a.Server.Start(ctx)
	a.Stop()
	return err
}

// Stop halts scheduling, waits for running jobs up to a bound, and releases
// the LLM client.
func (a *Agent) Stop() {
	select {
	case <-a.Scheduler.Stop().Done():
	case <-time.After(jobDrainTimeout):
		a.Logger.Warn("jobs still running at shutdown")
	}
	if a.llm != nil {
		if err := a.llm.Close(); err != nil {
			a.Logger.Warn("closing LLM client", "error", err)
		}
	}
}

// Banner is the human-readable startup summary.
func Banner(port int, defs []jobs.Definition) string {
	rule := strings.Repeat("=", 60)
	var sb strings.Builder
	sb.WriteString("\n" + rule + "\n")
	sb.WriteString("GTM AUTONOMOUS AGENT - RUNNING\n")
	sb.WriteString(rule + "\n")
	fmt.Fprintf(&sb, "Dashboard: http://localhost:%d\n", port)
	fmt.Fprintf(&sb, "Health Check: http://localhost:%d/health\n", port)
	sb.WriteString("\nScheduled Jobs:\n")
	for _, d := range defs {
		fmt.Fprintf(&sb, "  • %s: %s\n", d.Name, d.Description)
	}
	sb.WriteString(rule + "\n\n")
	return sb.String()
}
