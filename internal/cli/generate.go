package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/flowscribe/internal/cache"
	"github.com/dshills/flowscribe/internal/config"
	"github.com/dshills/flowscribe/internal/flow"
	"github.com/dshills/flowscribe/internal/inference"
	"github.com/dshills/flowscribe/internal/logging"
	"github.com/dshills/flowscribe/internal/metrics"
	"github.com/dshills/flowscribe/internal/output"
	"github.com/dshills/flowscribe/internal/providers"
	"github.com/dshills/flowscribe/internal/report"
)

const defaultFlowFile = "flow.json"

// Generate flags
var (
	flagOut         string
	flagFormat      string
	flagImageDir    string
	flagVideos      bool
	flagNoCache     bool
	flagCacheDir    string
	flagModel       string
	flagVariations  int
	flagMetricsFile string
	flagNoRedact    bool
	flagLogLevel    string
)

func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagOut, "out", "", "Report output path, - for stdout (default REPORT.md)")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Report format (markdown, json)")
	cmd.Flags().StringVar(&flagImageDir, "image-dir", "", "Directory generated images are saved in")
	cmd.Flags().BoolVar(&flagVideos, "videos", false, "Describe VIDEO steps with the vision model")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Bypass the response cache")
	cmd.Flags().StringVar(&flagCacheDir, "cache-dir", "", "Response cache directory")
	cmd.Flags().StringVar(&flagModel, "model", "", "Chat model name")
	cmd.Flags().IntVar(&flagVariations, "variations", 0, "Number of image variations to generate")
	cmd.Flags().StringVar(&flagMetricsFile, "metrics-file", "", "Write Prometheus metrics to this file when done")
	cmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
	cmd.Flags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagOut != "" {
		m["report.out"] = flagOut
	}
	if flagFormat != "" {
		m["report.format"] = flagFormat
	}
	if flagImageDir != "" {
		m["report.imageDir"] = flagImageDir
	}
	if flagVideos {
		m["report.analyzeVideos"] = "true"
	}
	if flagNoCache {
		m["cache.enabled"] = "false"
	}
	if flagCacheDir != "" {
		m["cache.dir"] = flagCacheDir
	}
	if flagModel != "" {
		m["models.chat"] = flagModel
	}
	if flagVariations > 0 {
		m["image.variations"] = strconv.Itoa(flagVariations)
	}
	if flagMetricsFile != "" {
		m["metricsFile"] = flagMetricsFile
	}
	if flagNoRedact {
		m["privacy.redactSecrets"] = "false"
	}
	if flagLogLevel != "" {
		m["log.level"] = flagLogLevel
	}
	return m
}

var generateCmd = &cobra.Command{
	Use:   "generate [flow.json]",
	Short: "Generate a report for a recorded flow",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := defaultFlowFile
		if len(args) == 1 {
			path = args[0]
		}
		runGenerate(cmd.Context(), path)
	},
}

func init() {
	addGenerateFlags(generateCmd)
}

func runGenerate(ctx context.Context, path string) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cfg, err := config.Load(buildOverrides())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return
	}
	if _, err := output.GetWriter(cfg.Report.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return
	}
	if !cfg.Privacy.RedactSecrets {
		fmt.Fprintln(os.Stderr, "WARNING: secret redaction is disabled")
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return
	}
	defer func() { _ = logger.Sync() }()

	fmt.Fprintf(os.Stderr, "\n=== Loading Flow Data ===\n")
	f, err := flow.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return
	}
	fmt.Fprintf(os.Stderr, "Flow Name: %s\nTotal Steps: %d\n", f.Name, len(f.Steps))

	apiKey, err := config.LoadAPIKey(cfg.SecretsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitAuthError
		return
	}

	m := metrics.New()
	defer writeMetrics(logger, m, cfg.MetricsFile)

	store, err := cache.New(cache.Options{
		Enabled: cfg.Cache.Enabled,
		Dir:     cfg.Cache.Dir,
		Logger:  logger,
		Metrics: m,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	p, err := providers.New(cfg.Provider, providers.Options{
		APIKey:     apiKey,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return
	}

	client := inference.New(p, store, inference.WithLogger(logger), inference.WithMetrics(m))
	gen := report.New(client, cfg, report.WithLogger(logger), report.WithProgress(os.Stderr))

	r, err := gen.Run(ctx, f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if providers.IsAuthError(err) {
			exitCode = ExitAuthError
		} else {
			exitCode = ExitRuntimeError
		}
		return
	}

	if err := output.WriteReport(r, cfg.Report.Format, cfg.Report.Out); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}
	if cfg.Report.Out != "" && cfg.Report.Out != "-" {
		fmt.Fprintf(os.Stderr, "\nReport saved to %s\n", cfg.Report.Out)
	}

	if store.Enabled() {
		stats, err := store.Stats()
		if err != nil {
			logger.Warn("reading cache stats", zap.Error(err))
			return
		}
		printStats(stats)
	}
}

func printStats(stats cache.Stats) {
	fmt.Fprintf(os.Stderr, "\n=== Cache Statistics ===\n")
	fmt.Fprintf(os.Stderr, "Text responses cached: %d\n", stats.TextCount)
	fmt.Fprintf(os.Stderr, "Image responses cached: %d\n", stats.ImageCount)
	fmt.Fprintf(os.Stderr, "Total cache size: %.2f MB\n", stats.TotalMB)
}

func writeMetrics(logger *zap.Logger, m *metrics.Metrics, path string) {
	if path == "" {
		return
	}
	if err := m.WriteTextfile(path); err != nil {
		logger.Warn("writing metrics file", zap.String("path", path), zap.Error(err))
	}
}
