package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shyim/db-auto-backup/internal/backup"
	"github.com/shyim/db-auto-backup/internal/config"
	"github.com/shyim/db-auto-backup/internal/docker"
	"github.com/shyim/db-auto-backup/internal/notification"
	"github.com/shyim/db-auto-backup/internal/provider"
	"github.com/shyim/db-auto-backup/internal/scheduler"
	"github.com/shyim/db-auto-backup/internal/storage/s3"
	"github.com/spf13/cobra"
)

// loadConfig reads the environment and applies command line overrides
func loadConfig() (config.Config, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if dockerHost != "" {
		cfg.DockerHost = dockerHost
	}

	if err := setupLogging(os.Stderr, cfg.LogLevel, cfg.LogFormat); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	scheduled := cfg.Schedule != "" && !once
	if scheduled {
		if err := scheduler.Validate(cfg.Schedule); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.BackupDir, 0o700); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	dockerClient, err := docker.NewClient(cfg.DockerHost)
	if err != nil {
		slog.Error("failed to connect to Docker", "error", err)
		return err
	}
	defer dockerClient.Close()

	runner := backup.NewRunner(cfg, dockerClient, provider.Builtin(), runnerOptions(ctx, cfg)...)

	if !scheduled {
		_, err := runner.Run(ctx, time.Now())
		return err
	}

	slog.Info("running backup on schedule", "schedule", cfg.Schedule)

	// A running backup is allowed to finish after a shutdown signal
	sched, err := scheduler.New(context.WithoutCancel(ctx), cfg.Schedule, func(ctx context.Context, now time.Time) {
		if _, err := runner.Run(ctx, now); err != nil {
			slog.Error("backup run failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	sched.Start()

	<-ctx.Done()
	slog.Info("received shutdown signal, waiting for running backup")

	<-sched.Stop().Done()
	slog.Info("stopped")
	return nil
}

func runnerOptions(ctx context.Context, cfg config.Config) []backup.Option {
	var opts []backup.Option

	if cfg.Storage.Active() {
		uploader, err := s3.New(ctx, cfg.Storage)
		if err != nil {
			slog.Warn("S3 upload disabled", "error", err)
		} else {
			opts = append(opts, backup.WithUploader(uploader))
			slog.Info("S3 upload enabled", "endpoint", cfg.Storage.Endpoint, "bucket", cfg.Storage.Bucket)
		}
	}

	if target := notification.ResolveTarget(cfg.Notify); target != "" {
		opts = append(opts, backup.WithNotifier(notification.NewWebhook(target, cfg.IncludeLogs)))
	}

	if w := backup.TerminalProgress(); w != nil {
		opts = append(opts, backup.WithProgress(w))
	}

	return opts
}
