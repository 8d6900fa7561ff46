package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found")
	}
	cfg := loadConfig()

	for _, dir := range []string{cfg.DownloadDir, cfg.CacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}
	for _, tool := range []string{"yt-dlp", "ffmpeg"} {
		path, err := exec.LookPath(tool)
		if err != nil {
			logger.Error("required tool not found in PATH", "tool", tool)
			os.Exit(1)
		}
		logger.Info("using external tool", "tool", tool, "path", path)
	}

	srv := newServer(cfg, logger,
		newYTDLPResolver(logger, cfg.YouTubeAPIKey),
		newYTDLPExtractor(logger),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.startWorkers(ctx)
	sweeper := newReaper(srv.jobs, srv.artifacts, cfg.CleanupInterval, logger)
	go sweeper.Run(ctx)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server started", "addr", cfg.Addr, "workers", cfg.MaxConcurrent)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		_ = httpServer.Close()
	}

	cancel()
	sweeper.Wait()
	srv.workers.Wait()
	logger.Info("server stopped")
}
