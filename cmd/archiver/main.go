package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aluiziolira/go-archive-books/config"
	"github.com/aluiziolira/go-archive-books/models"
	"github.com/aluiziolira/go-archive-books/pipeline"
	"github.com/aluiziolira/go-archive-books/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(viper.New()).ExecuteContext(ctx); err != nil {
		slog.Error("archive run failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

// shutdownNotice runs once when the run context is cancelled. Tests swap it.
var shutdownNotice = func() {
	slog.Info("shutdown signal received, stopping after the current request")
}

func execute(ctx context.Context, v *viper.Viper, run runFunc) error {
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		return fmt.Errorf("initialising scraper: %w", err)
	}

	writer, err := pipeline.NewOutputWriter(cfg.ManifestFormat, cfg.ManifestPath)
	if err != nil {
		return fmt.Errorf("creating manifest writer: %w", err)
	}

	stopNotice := context.AfterFunc(ctx, shutdownNotice)
	defer stopNotice()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	slog.Info("starting archive run",
		slog.String("base_url", cfg.BaseURL),
		slog.String("dest_folder", cfg.DestFolder),
		slog.Bool("skip_txt", cfg.SkipText),
		slog.Bool("skip_imgs", cfg.SkipImages),
	)

	manifest := pipeline.NewManifest()
	result, err := run(ctx, s, cfg, manifest)
	if err != nil {
		return err
	}

	if err := writer.Write(manifest); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := writer.Validate(); err != nil {
		return fmt.Errorf("manifest validation failed: %w", err)
	}

	printSummary(os.Stdout, result, cfg.ManifestPath, manifest.Rejections())
	return nil
}

func printSummary(w io.Writer, result *models.RunResult, manifestPath string, rejected map[string]int) {
	separator := "--------------------------------------------------"
	duration := result.EndTime.Sub(result.StartTime)
	booksPerSec := 0.0
	if duration.Seconds() > 0 {
		booksPerSec = float64(len(result.Books)) / duration.Seconds()
	}

	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "Archive complete")
	fmt.Fprintf(w, "  Attempted:     %d\n", result.Attempted)
	fmt.Fprintf(w, "  Archived:      %d\n", len(result.Books))
	fmt.Fprintf(w, "  Absent:        %d\n", result.AbsentCount)
	fmt.Fprintf(w, "  No cover:      %d\n", result.ImagesMissing)
	fmt.Fprintf(w, "  Errors:        %d\n", result.ErrorCount)
	if len(result.FailedIDs) > 0 {
		fmt.Fprintf(w, "  Failed IDs:    %v\n", result.FailedIDs)
	}
	if len(result.ErrorsByType) > 0 {
		fmt.Fprintf(w, "  Error types:   %v\n", result.ErrorsByType)
	}
	if len(rejected) > 0 {
		fmt.Fprintf(w, "  Rejected:      %v\n", rejected)
	}
	fmt.Fprintf(w, "  Requests:      %d\n", result.RequestCount)
	fmt.Fprintf(w, "  Listing pages: %d\n", result.PageCount)
	fmt.Fprintf(w, "  Duration:      %v\n", duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Books/sec:     %.2f\n", booksPerSec)
	fmt.Fprintf(w, "  Manifest:      %s\n", manifestPath)
	fmt.Fprintln(w, separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
