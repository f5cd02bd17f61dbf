package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/vitos/funding_radar/internal/domain"
	"github.com/vitos/funding_radar/internal/infrastructure/hyperliquid"
	"github.com/vitos/funding_radar/internal/infrastructure/logger"
	"github.com/vitos/funding_radar/internal/infrastructure/storage"
	"github.com/vitos/funding_radar/internal/usecase"
	"github.com/vitos/funding_radar/internal/web"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Upstream struct {
		InfoURL         string  `yaml:"info_url"`
		RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
		TopN            int     `yaml:"top_n"`
	} `yaml:"upstream"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	History struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"history"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func main() {
	// 1. Load Config
	_ = godotenv.Load()

	cfg, err := loadConfig("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if url := os.Getenv("UPSTREAM_INFO_URL"); url != "" {
		cfg.Upstream.InfoURL = url
	}

	// 2. Init Logger
	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Storage (history is optional)
	var repo domain.SnapshotRepository
	if cfg.History.DBPath != "" {
		store, err := storage.NewSQLiteStore(cfg.History.DBPath)
		if err != nil {
			log.Fatal("Failed to init sqlite", zap.Error(err))
		}
		defer store.Close()
		repo = store
	}

	// 4. Init Upstream Client and Service
	source := hyperliquid.NewClient(cfg.Upstream.InfoURL, cfg.Upstream.RateLimitPerSec, log)
	markets := usecase.NewMarketDataService(source, repo, cfg.Upstream.TopN, log)

	// 5. Init API Server
	port := cfg.Server.Port
	if port == 0 {
		port = 5001
	}
	server := web.NewAPIServer(port, markets, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 6. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	server.Shutdown(context.Background())
}
