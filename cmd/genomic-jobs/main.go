// Package main provides genomic-jobs, the command line entry point for the
// genomic batch jobs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/synaptica-ai/genomics/pkg/common/clock"
	"github.com/synaptica-ai/genomics/pkg/common/config"
	"github.com/synaptica-ai/genomics/pkg/common/database"
	"github.com/synaptica-ai/genomics/pkg/common/kafka"
	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"github.com/synaptica-ai/genomics/pkg/incident"
	"github.com/synaptica-ai/genomics/pkg/jobrun"
	"github.com/synaptica-ai/genomics/pkg/jobs"
)

var settingsPath string

var rootCmd = &cobra.Command{
	Use:   "genomic-jobs",
	Short: "Genomic workflow batch jobs",
	Long:  "Runs the reconciliation, notification and backfill jobs of the genomic workflow. Every run is recorded in genomic_job_run.",
	PersistentPreRun: func(*cobra.Command, []string) {
		logger.Init()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "Path to the genomic settings file (overrides GENOMICS_SETTINGS_PATH)")
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is the wiring shared by every subcommand.
type app struct {
	env    *jobs.Env
	runner *jobs.Runner
	close  func()
}

func newApp(concurrency int) (*app, error) {
	cfg := config.Load()
	path := cfg.SettingsPath
	if settingsPath != "" {
		path = settingsPath
	}
	settings, err := config.LoadSettings(path)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	db, err := database.GetPostgres()
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	closers := []func(){func() { _ = database.ClosePostgres() }}

	var sink incident.Sink
	if len(cfg.KafkaBrokers) > 0 && cfg.IncidentTopic != "" {
		producer := kafka.NewProducer(cfg, cfg.IncidentTopic)
		closers = append(closers, func() { _ = producer.Close() })
		sink = incident.NewKafkaSink(producer, cfg.NotificationSource)
	}

	var gate incident.Gate = incident.OpenGate{}
	if client, err := database.GetRedis(); err == nil {
		gate = incident.NewRedisGate(client, cfg.IncidentAlertTTL)
		closers = append(closers, func() { _ = database.CloseRedis() })
	}

	env := jobs.NewEnv(db, cfg, settings, clock.Real{}, sink, gate)
	return &app{
		env:    env,
		runner: jobs.NewRunner(jobrun.NewTracker(env.Runs), jobs.Registry(env), concurrency),
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}
