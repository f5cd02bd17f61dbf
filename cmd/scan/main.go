package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/vitos/funding_radar/internal/infrastructure/hyperliquid"
	"github.com/vitos/funding_radar/internal/infrastructure/logger"
	"github.com/vitos/funding_radar/internal/usecase"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// One-shot funding scan: prints the current top positive funding
// opportunities and exits.

type Config struct {
	Upstream struct {
		InfoURL         string  `yaml:"info_url"`
		RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
		TopN            int     `yaml:"top_n"`
	} `yaml:"upstream"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

func main() {
	_ = godotenv.Load()

	cfg := &Config{}
	if f, err := os.Open("config/config.yaml"); err == nil {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			fmt.Printf("Failed to parse config: %v\n", err)
			os.Exit(1)
		}
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	source := hyperliquid.NewClient(cfg.Upstream.InfoURL, cfg.Upstream.RateLimitPerSec, log)
	markets := usecase.NewMarketDataService(source, nil, cfg.Upstream.TopN, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap, err := markets.BuildSnapshot(ctx)
	if err != nil {
		log.Fatal("Funding scan failed", zap.Error(err))
	}

	if len(snap.TopFundingOpportunities) == 0 {
		fmt.Println("No positive funding rates found at the moment.")
		return
	}

	fmt.Printf("--- Top %d Positive Funding Rates (%d markets scanned) ---\n",
		len(snap.TopFundingOpportunities), len(snap.AllMarkets))
	for _, m := range snap.TopFundingOpportunities {
		fmt.Printf("Market: %-14s | Hourly: %8.4f%% | APR: %8.2f%%\n",
			m.Market, *m.HourlyPercentage, *m.APR)
	}
}
