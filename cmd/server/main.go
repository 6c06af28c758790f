// Package main implements the entry point for the multiserve API server,
// which exposes video download, QR generation, text-to-speech, and image
// background removal as bounded background jobs behind REST endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/multiserve/multiserve/internal/api"
	"github.com/multiserve/multiserve/internal/config"
	"github.com/multiserve/multiserve/internal/job"
	"github.com/multiserve/multiserve/internal/platform/logger"
	"github.com/multiserve/multiserve/internal/service/background"
	"github.com/multiserve/multiserve/internal/service/download"
	"github.com/multiserve/multiserve/internal/service/qr"
	"github.com/multiserve/multiserve/internal/service/speech"
)

const (
	serviceName     = "multiserve"
	serviceVersion  = "1.0.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

// run loads configuration, wires the runner and services into the router,
// and serves until a shutdown signal arrives.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(cfg.Server)
	appLogger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"workers", cfg.Jobs.Workers)

	runner, err := job.NewRunner(job.RunnerConfig{
		Workers:       cfg.Jobs.Workers,
		ScratchDir:    cfg.Jobs.ScratchDir,
		ArtifactTTL:   cfg.Jobs.ArtifactTTL,
		SweepInterval: cfg.Jobs.SweepInterval,
	}, appLogger)
	if err != nil {
		return fmt.Errorf("failed to start job runner: %w", err)
	}
	defer runner.Close()

	downloadSvc := download.New(download.Config{
		Deadline:       cfg.Download.Deadline,
		MaxOutputBytes: int64(cfg.Download.MaxOutputMB) << 20,
		BlockedHosts:   cfg.Download.BlockedHosts,
		Executable:     cfg.Download.Executable,
	}, appLogger)

	speechSvc := speech.New(speech.Config{
		Deadline:       cfg.Speech.Deadline,
		MaxOutputBytes: int64(cfg.Speech.MaxOutputMB) << 20,
	}, appLogger)

	qrSvc := qr.New(qr.Config{
		Deadline:       cfg.QR.Deadline,
		MaxOutputBytes: int64(cfg.QR.MaxOutputMB) << 20,
	}, appLogger)

	backgroundSvc := background.New(background.Config{
		Deadline:       cfg.Background.Deadline,
		MaxInputBytes:  int64(cfg.Background.MaxInputMB) << 20,
		MaxOutputBytes: int64(cfg.Background.MaxOutputMB) << 20,
		Executable:     cfg.Background.Executable,
	}, appLogger)

	router := api.NewRouter(api.RouterConfig{
		Download:       api.NewDownloadHandler(runner, downloadSvc),
		QR:             api.NewQRHandler(runner, qrSvc),
		Speech:         api.NewSpeechHandler(runner, speechSvc),
		Background:     api.NewBackgroundHandler(runner, backgroundSvc, int64(cfg.Background.MaxInputMB)<<20),
		Meta:           api.NewMetaHandler(serviceName, serviceVersion),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-shutdownCh:
		appLogger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	appLogger.Info("server shutdown completed")
	return nil
}
