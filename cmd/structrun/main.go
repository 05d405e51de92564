package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/structrun/internal/application"
	"github.com/sawpanic/structrun/internal/data/ws"
	httpmetrics "github.com/sawpanic/structrun/internal/interfaces/http"
	"github.com/sawpanic/structrun/internal/persistence"
	"github.com/sawpanic/structrun/internal/persistence/postgres"
	"github.com/sawpanic/structrun/internal/trading"
)

const (
	appName = "StructRun"
	version = "v1.0.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     "structrun",
		Short:   "Market structure detection over candle series",
		Version: version,
		Long: `StructRun detects market structure from candle data: zigzag pivots,
LPL breaks, higher-order structure segments, order blocks and position
search windows. It replays historical CSV data (backtest) or follows a
live kline stream (forward).`,
	}

	rootCmd.PersistentFlags().String("config", "config/structrun.yaml", "Path to configuration file")

	backtestCmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay CSV candle data through the detection pipeline",
		Long:  "Loads per-symbol CSV files from the data directory, runs the full detection pipeline over each and reports segments, pivots and position windows",
		RunE:  runBacktest,
	}

	forwardCmd := &cobra.Command{
		Use:   "forward",
		Short: "Run live detection from a kline websocket feed",
		Long:  "Subscribes to kline streams for every configured symbol and runs the detection pipeline on each closed bar, managing position lifecycles as new segments form",
		RunE:  runForward,
	}
	forwardCmd.Flags().String("metrics-addr", "", "Override metrics listen address")

	rootCmd.AddCommand(backtestCmd)
	rootCmd.AddCommand(forwardCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*application.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := application.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func runBacktest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := httpmetrics.NewMetricsRegistry()

	var segments persistence.SegmentRepo
	if cfg.Database.DSN != "" {
		db, err := postgres.Connect(ctx, cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		segments = postgres.NewSegmentRepo(db, cfg.Database.Timeout())
	}

	log.Info().Str("app", appName).Strs("symbols", cfg.Symbols).Msg("starting backtest")
	runner := application.NewBacktestRunner(cfg, metrics, segments)
	results := runner.Run(ctx)
	log.Info().Int("symbols", len(results)).Msg("backtest complete")
	return nil
}

func runForward(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		cfg.Metrics.Addr = addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := httpmetrics.NewMetricsRegistry()
	go metrics.Serve(cfg.Metrics.Addr)

	var segments persistence.SegmentRepo
	var positions persistence.PositionRepo
	if cfg.Database.DSN != "" {
		db, err := postgres.Connect(ctx, cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		segments = postgres.NewSegmentRepo(db, cfg.Database.Timeout())
		positions = postgres.NewPositionRepo(db, cfg.Database.Timeout())
	}

	store := persistence.NewAutoStateStore(cfg.Redis.Addr)
	broker := trading.NewGatewayBroker(nil, trading.GatewayConfig{
		RPS:                 cfg.Broker.RPS,
		Burst:               cfg.Broker.Burst,
		ConsecutiveFailures: cfg.Broker.ConsecutiveFailures,
		OpenTimeout:         time.Duration(cfg.Broker.OpenTimeoutSeconds) * time.Second,
	})
	gate := trading.NewLifecycleGate(store, broker)
	gate.Observe = func(symbol, result string) {
		metrics.CancelAttempts.WithLabelValues(symbol, result).Inc()
	}

	feed := ws.NewClient(cfg.Feed.URL)

	log.Info().Str("app", appName).Strs("symbols", cfg.Symbols).
		Str("interval", cfg.Interval).Msg("starting forward detection")
	runner := application.NewForwardRunner(cfg, feed, gate, metrics, segments, positions)
	return runner.Run(ctx)
}
