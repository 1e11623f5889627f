package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pairCore/internal/chain"
	"pairCore/internal/config"
	"pairCore/internal/inspect"
)

func runInspect(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadInspect(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if len(cfg.Pairs) == 0 {
		return fmt.Errorf("pair list is required")
	}
	pairs := make([]common.Address, 0, len(cfg.Pairs))
	for _, raw := range cfg.Pairs {
		if !common.IsHexAddress(raw) {
			return fmt.Errorf("invalid pair address: %s", raw)
		}
		pairs = append(pairs, common.HexToAddress(raw))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL,
		chain.WithRetries(cfg.MaxRetries, cfg.RetryBackoff),
		chain.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}

	latest, err := chainClient.LatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("latest block: %w", err)
	}
	logger.Info("inspect start", zap.Uint64("chain_id", chainID.Uint64()), zap.Uint64("block", latest), zap.Int("pairs", len(pairs)))

	encoder := json.NewEncoder(os.Stdout)
	for _, pair := range pairs {
		report, err := inspect.Pair(ctx, chainClient, pair)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", pair.Hex(), err)
		}
		report.State.ChainID = chainID.Uint64()
		report.State.BlockNumber = latest

		if !report.InSync {
			logger.Info("pair out of sync",
				zap.String("pair", pair.Hex()),
				zap.String("drift0", report.Drift0),
				zap.String("drift1", report.Drift1),
			)
		}
		if err := encoder.Encode(report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
	}
	return nil
}
