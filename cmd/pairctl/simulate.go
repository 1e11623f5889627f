package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pairCore/internal/config"
	"pairCore/internal/model"
	"pairCore/internal/scenario"
	"pairCore/internal/storage"
	"pairCore/internal/storage/postgres"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}
	startTime, err := config.ParseTimestamp(cfg.StartTime)
	if err != nil {
		return fmt.Errorf("parse start-time: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	ops, err := scenario.ParseOps(inputFile)
	if err != nil {
		return err
	}

	runner, err := scenario.NewRunner(scenario.Config{
		ChainID:   cfg.ChainID,
		StartTime: startTime,
		Pair:      cfg.Pair,
		Token0:    cfg.Token0,
		Token1:    cfg.Token1,
		Factory:   cfg.Factory,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	logger.Info("simulate start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.Int("ops", len(ops)),
		zap.Uint64("chain_id", cfg.ChainID),
		zap.Uint64("start_time", startTime),
	)

	result, err := runner.Run(ctx, ops)
	if err != nil {
		return err
	}

	jsonl := storage.NewJsonlStorage(cfg.Out)
	if err := jsonl.Truncate(); err != nil {
		return err
	}
	sinks := storage.Multi{jsonl}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()

		if err := persistState(ctx, store, result); err != nil {
			return err
		}
		sinks = append(sinks, store)
	}

	if err := sinks.PutLogBatch(ctx, result.Logs); err != nil {
		return err
	}

	if err := writeState(cfg.StateOut, result); err != nil {
		return err
	}

	logger.Info("simulate complete",
		zap.Int("ops", len(result.Ops)),
		zap.Int("logs", len(result.Logs)),
		zap.String("reserve0", result.State.Reserve0),
		zap.String("reserve1", result.State.Reserve1),
		zap.String("total_supply", result.State.TotalSupply),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)
	return nil
}

func persistState(ctx context.Context, store *postgres.Store, result *scenario.Result) error {
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := store.UpsertPairs(ctx, []model.Pair{result.Pair}); err != nil {
		return err
	}
	return store.UpsertPairState(ctx, result.State)
}

func writeState(path string, result *scenario.Result) error {
	var out io.Writer = os.Stdout
	if path != "" {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create state output: %w", err)
		}
		defer file.Close()
		out = file
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return nil
}
