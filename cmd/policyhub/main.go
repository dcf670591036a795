// Command policyhub serves the policy dashboard and offers one-shot
// export and source inspection commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"policyhub/internal/adapters/dashboard"
	"policyhub/internal/archive"
	"policyhub/internal/config"
	"policyhub/internal/core"
	"policyhub/internal/rows"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	configPath string
	verbose    bool
	timeout    time.Duration

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "policyhub",
	Short: "Internal dashboard over team policy spreadsheets",
	Long: `policyhub aggregates one or more policy spreadsheets into a single
normalized collection and serves a filterable dashboard over it.

Rows come from Google Sheets by default; CSV directories and Postgres or
SQLite registries are available as alternate backends. Filtered views can
be exported as CSV or JSON and archived to local disk or S3.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "info"
		if verbose {
			level = "debug"
		}
		var err error
		logger, err = buildLogger(level)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard over HTTP",
	Long: `Starts the HTTP server: the dashboard UI at /, CSV export at
/export.csv, the JSON API under /api/v1/, Prometheus metrics at /metrics.

The first request triggers a fetch from all configured sheets; results are
cached for cache_ttl_sec and refreshed on demand via POST /refresh.`,
	RunE: runServe,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a filtered export to a file or stdout",
	Long: `Loads all configured sheets once, applies the given filters, and
writes the result as CSV (with a UTF-8 BOM) or JSON.

Example:
  policyhub export --category Finance --sort title_asc --out finance.csv`,
	RunE: runExport,
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources and their row counts",
	RunE:  runSources,
}

// Export flags
var (
	exportOut     string
	exportFormat  string
	filterKeyword string
	filterCats    []string
	filterTags    []string
	filterSources []string
	filterSort    string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "policyhub.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "Timeout for one-shot sheet fetches")

	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: stdout)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Export format: csv or json")
	exportCmd.Flags().StringVar(&filterKeyword, "q", "", "Keyword filter")
	exportCmd.Flags().StringSliceVar(&filterCats, "category", nil, "Category filter (repeatable)")
	exportCmd.Flags().StringSliceVar(&filterTags, "tag", nil, "Tag filter (repeatable)")
	exportCmd.Flags().StringSliceVar(&filterSources, "source", nil, "Source name filter (repeatable)")
	exportCmd.Flags().StringVar(&filterSort, "sort", "", "Sort order: updated_desc or title_asc")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// loadConfig loads the config file and, unless --verbose pinned the level
// to debug, re-levels the logger to the configured one.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if !verbose && cfg.Logging.Level != config.DefaultLogLevel {
		rebuilt, err := buildLogger(cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		_ = logger.Sync()
		logger = rebuilt
	}
	return cfg, nil
}

func rowsConfig(cfg *config.Config) rows.Config {
	return rows.Config{
		Driver: rows.Driver(cfg.Rows.Driver),
		Sheets: rows.SheetsConfig{
			APIKey:       cfg.Rows.Sheets.APIKey,
			BaseURL:      cfg.Rows.Sheets.BaseURL,
			DriveBaseURL: cfg.Rows.Sheets.DriveBaseURL,
			Range:        cfg.Rows.Sheets.Range,
		},
		CSVDir:      cfg.Rows.CSVFile.Dir,
		PostgresDSN: cfg.Rows.Postgres.DSN,
		SQLitePath:  cfg.Rows.SQLite.Path,
	}
}

func archiveConfig(cfg *config.Config) archive.Config {
	return archive.Config{
		Driver: archive.Driver(cfg.Archive.Driver),
		FSDir:  cfg.Archive.FS.Dir,
		S3: archive.S3Config{
			Bucket:          cfg.Archive.S3.Bucket,
			Region:          cfg.Archive.S3.Region,
			Endpoint:        cfg.Archive.S3.Endpoint,
			AccessKeyID:     cfg.Archive.S3.AccessKeyID,
			SecretAccessKey: cfg.Archive.S3.SecretAccessKey,
			PathStyle:       cfg.Archive.S3.PathStyle,
		},
	}
}

func buildService(cfg *config.Config, metrics core.MetricsRecorder) (*core.Service, rows.Source, error) {
	src, err := rows.Open(rowsConfig(cfg), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open rows source: %w", err)
	}
	svc := core.NewService(src, core.Options{
		Sources:     cfg.SheetIdentifiers(),
		SourceNames: cfg.SourceNames,
		CacheTTL:    cfg.CacheTTL(),
		Logger:      logger,
		Metrics:     metrics,
	})
	return svc, src, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := core.NewPrometheusMetricsRecorder(registry)

	svc, src, err := buildService(cfg, metrics)
	if err != nil {
		return err
	}
	defer src.Close()

	store, err := archive.Open(cmd.Context(), archiveConfig(cfg))
	if err != nil {
		return fmt.Errorf("open archive store: %w", err)
	}

	handler := dashboard.NewHandler(svc)
	handler.Exports = core.NewArchiver(store, logger)
	handler.Metrics = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	handler.Logger = logger

	// Warm the cache so the first visitor does not pay the fetch. A failure
	// here is not fatal: the dashboard surfaces it on request.
	warmCtx, cancelWarm := context.WithTimeout(cmd.Context(), timeout)
	if _, err := svc.Load(warmCtx, false); err != nil {
		logger.Warn("initial load failed", zap.Error(err))
	}
	cancelWarm()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("dashboard listening",
			zap.String("addr", cfg.ListenAddr),
			zap.Int("sources", len(cfg.SheetIdentifiers())),
			zap.String("rows_driver", cfg.Rows.Driver),
			zap.String("archive_driver", cfg.Archive.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := core.ParseExportFormat(exportFormat)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, src, err := buildService(cfg, nil)
	if err != nil {
		return err
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	snap, err := svc.Load(ctx, false)
	if err != nil {
		return err
	}
	view := svc.Query(snap, core.Query{
		Keyword:    filterKeyword,
		Categories: filterCats,
		Tags:       filterTags,
		Sources:    filterSources,
		Sort:       core.ParseSortOrder(filterSort),
	})

	out := cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch format {
	case core.FormatJSON:
		err = core.WriteJSON(out, view)
	default:
		err = core.WriteCSV(out, view)
	}
	if err != nil {
		return err
	}
	logger.Info("export written",
		zap.String("format", string(format)),
		zap.Int("records", view.Filtered),
		zap.Int("total", view.Total),
		zap.String("out", exportOut))
	return nil
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, src, err := buildService(cfg, nil)
	if err != nil {
		return err
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	snap, err := svc.Load(ctx, true)
	if err != nil {
		return err
	}

	counts := make(map[string]int, len(snap.Counts))
	for _, c := range snap.Counts {
		counts[c.SourceID] = c.Records
	}
	skipped := make(map[string]string, len(snap.Warnings))
	for _, w := range snap.Warnings {
		skipped[w.SourceID] = w.Reason
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tRECORDS")
	for _, spec := range svc.Sources() {
		if reason, ok := skipped[spec.ID]; ok {
			fmt.Fprintf(tw, "%s\t%s\tskipped: %s\n", spec.ID, spec.Name, reason)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\n", spec.ID, spec.Name, counts[spec.ID])
	}
	return tw.Flush()
}
