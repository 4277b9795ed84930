// Command deepresearch runs automated research pipelines: it plans a query
// into research steps, gathers and extracts evidence through configured
// model and search backends, synthesizes a cited report, and compares
// configurations against an evaluation rubric.
//
// Usage:
//
//	deepresearch run --config config.yaml            # run the configured comparison
//	deepresearch run --config config.yaml --query q  # override the query
//	deepresearch health --config config.yaml         # probe configured backends
//	deepresearch version                             # show version information
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/odr-dev/deepresearch"
	"github.com/odr-dev/deepresearch/backend/cache"
	"github.com/odr-dev/deepresearch/compare"
	"github.com/odr-dev/deepresearch/config"
	"github.com/odr-dev/deepresearch/store"
)

// Build-time injected version information.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCompare(os.Args[2:])
	case "health":
		runHealth(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runCompare(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	query := fs.String("query", "", "Research query (overrides config)")
	outDir := fs.String("out", ".", "Directory for comparison exports")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	if *query != "" {
		cfg.Query = *query
	}
	if cfg.Query == "" {
		fmt.Fprintln(os.Stderr, "No query: set query in the config file or pass --query")
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("Starting research comparison",
		zap.String("version", Version),
		zap.String("query", cfg.Query),
		zap.Int("configurations", len(cfg.Configurations)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := compare.NewRunner(deepresearch.DefaultRegistry(logger), compare.RunnerOptions{
		Credentials:    deepresearch.CredentialsFromEnv(),
		SearchCache:    buildCache(cfg.Cache, logger),
		MaxConcurrency: cfg.Comparison.MaxConcurrency,
		Logger:         logger,
	})

	cmp, err := runner.Run(ctx, cfg.Query, cfg.Configurations)
	if err != nil {
		logger.Error("comparison failed", zap.Error(err))
		os.Exit(compare.ExitFailed)
	}

	if err := writeExports(cmp, *outDir); err != nil {
		logger.Error("failed to write exports", zap.Error(err))
		os.Exit(compare.ExitFailed)
	}

	if cfg.Archive.Enabled {
		archive, err := store.Open(cfg.Archive.Path, logger)
		if err != nil {
			logger.Warn("archive unavailable", zap.Error(err))
		} else if err := archive.SaveComparison(cmp); err != nil {
			logger.Warn("failed to archive comparison", zap.Error(err))
		}
	}

	stats := cmp.Stats()
	logger.Info("Comparison finished",
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
		zap.Float64("mean_score", stats.Mean))
	if winner := cmp.Winner(); winner != nil {
		fmt.Printf("Best configuration: %s (score %.3f)\n", winner.Name, winner.Evaluation.Aggregate)
	}
	os.Exit(cmp.ExitCode())
}

func writeExports(cmp *compare.Comparison, dir string) error {
	jsonPath := filepath.Join(dir, "comparison.json")
	jsonFile, err := os.Create(jsonPath)
	if err != nil {
		return err
	}
	defer jsonFile.Close()
	if err := cmp.ExportJSON(jsonFile); err != nil {
		return err
	}

	mdPath := filepath.Join(dir, "comparison.md")
	mdFile, err := os.Create(mdPath)
	if err != nil {
		return err
	}
	defer mdFile.Close()
	if err := cmp.ExportMarkdown(mdFile); err != nil {
		return err
	}

	fmt.Printf("Exports written: %s, %s\n", jsonPath, mdPath)
	return nil
}

func runHealth(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	registry := deepresearch.DefaultRegistry(logger)
	creds := deepresearch.CredentialsFromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	failed := false
	seen := make(map[string]bool)
	for _, c := range cfg.Configurations {
		for _, id := range []string{c.ModelProvider, c.SearchProvider} {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true

			adapter, err := registry.New(id, creds[id])
			if err != nil {
				fmt.Printf("%-12s unavailable: %v\n", id, err)
				failed = true
				continue
			}
			status := adapter.Health(ctx)
			if status.Healthy {
				fmt.Printf("%-12s ok (%s)\n", id, status.Latency.Round(time.Millisecond))
			} else {
				fmt.Printf("%-12s unhealthy: %s\n", id, status.Error)
				failed = true
			}
		}
	}
	if failed {
		os.Exit(1)
	}
}

func loadConfig(path string) *config.Config {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func buildCache(cfg config.CacheConfig, logger *zap.Logger) *cache.SearchCache {
	if !cfg.Enabled {
		return nil
	}
	opts := cache.Options{
		LocalMaxSize: cfg.LocalMaxSize,
		LocalTTL:     cfg.LocalTTL,
		RedisTTL:     cfg.RedisTTL,
		Logger:       logger,
	}
	if cfg.RedisAddr != "" {
		opts.RedisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	}
	return cache.New(opts)
}

func printVersion() {
	fmt.Printf("deepresearch %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`deepresearch - automated research and configuration comparison

Usage:
  deepresearch <command> [options]

Commands:
  run       Run the configured research comparison
  health    Probe the configured backends
  version   Show version information
  help      Show this help message

Options for 'run':
  --config <path>   Path to configuration file (YAML)
  --query <text>    Research query (overrides the config file)
  --out <dir>       Directory for comparison.json / comparison.md

Exit codes for 'run':
  0   every configuration succeeded
  1   every configuration failed
  2   mixed: some configurations failed

Examples:
  deepresearch run --config research.yaml
  deepresearch run --config research.yaml --query "state of solid state batteries"
  deepresearch health --config research.yaml`)
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
