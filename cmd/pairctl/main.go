package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "pairctl",
		Short:        "Constant-product pair simulator and event tooling",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a JSONL scenario of pair operations",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("in", "", "input scenario JSONL")
	simulateCmd.Flags().String("out", "./data/logs.jsonl", "output event logs JSONL")
	simulateCmd.Flags().String("state-out", "", "write final state JSON here instead of stdout")
	simulateCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for state and logs")
	simulateCmd.Flags().Uint64("chain-id", 31337, "simulated chain id")
	simulateCmd.Flags().String("start-time", "1700000000", "genesis timestamp (unix seconds or RFC3339)")
	simulateCmd.Flags().String("pair", "", "pair account (hex address or name)")
	simulateCmd.Flags().String("token0", "", "token0 account (hex address or name)")
	simulateCmd.Flags().String("token1", "", "token1 account (hex address or name)")
	simulateCmd.Flags().String("factory", "", "factory account (hex address or name)")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode pair event logs into typed events",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("rpc", "", "optional RPC URL for pair token lookups")
	decodeCmd.Flags().String("in", "", "input event logs JSONL")
	decodeCmd.Flags().String("out", "./data/typed_events.jsonl", "output typed events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("topic0-map", "", "extra topic0->event mappings (comma-separated key=value)")
	decodeCmd.Flags().Bool("include-share-events", false, "also decode share Transfer and Approval events")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate typed events into window metrics",
		RunE:  runAggregate,
	}

	aggregateCmd.Flags().String("in", "", "input typed events JSONL")
	aggregateCmd.Flags().String("window", "5m", "aggregation window (e.g. 1m, 5m, 1h)")
	aggregateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	aggregateCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	aggregateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	aggregateCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	aggregateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(aggregateCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Read live pair state and report skim/sync drift",
		RunE:  runInspect,
	}

	inspectCmd.Flags().String("rpc", "", "RPC URL")
	inspectCmd.Flags().StringSlice("pair", nil, "pair addresses (comma-separated)")
	inspectCmd.Flags().Int("max-retries", 3, "maximum retry attempts per pair")
	inspectCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	inspectCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(inspectCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
