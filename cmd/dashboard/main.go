package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/vitos/funding_radar/internal/infrastructure/apiclient"
	"github.com/vitos/funding_radar/internal/infrastructure/logger"
	"github.com/vitos/funding_radar/internal/usecase"
	"github.com/vitos/funding_radar/internal/web"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"api"`
	Dashboard struct {
		Port           int `yaml:"port"`
		PollIntervalMs int `yaml:"poll_interval_ms"`
		TickIntervalMs int `yaml:"tick_interval_ms"`
	} `yaml:"dashboard"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
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
	// 1. Load Config (.env overrides for deploy targets)
	_ = godotenv.Load()

	cfg, err := loadConfig("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if base := os.Getenv("FUNDING_API_BASE_URL"); base != "" {
		cfg.API.BaseURL = base
	}

	// 2. Init Logger
	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Defaults
	pollInterval := 30 * time.Second
	if cfg.Dashboard.PollIntervalMs > 0 {
		pollInterval = time.Duration(cfg.Dashboard.PollIntervalMs) * time.Millisecond
	}
	tickInterval := time.Second
	if cfg.Dashboard.TickIntervalMs > 0 {
		tickInterval = time.Duration(cfg.Dashboard.TickIntervalMs) * time.Millisecond
	}
	port := cfg.Dashboard.Port
	if port == 0 {
		port = 8080
	}

	// 4. Init Services
	source := apiclient.NewClient(cfg.API.BaseURL)
	poller := usecase.NewPollerService(source, pollInterval, log)
	view := usecase.NewViewService()
	countdown := usecase.NewCountdownService(tickInterval, log)

	// 5. Init Web Server
	if err := web.InitTemplates("internal/web/templates"); err != nil {
		log.Fatal("Failed to initialize templates", zap.Error(err))
	}
	server := web.NewServer(port, poller, view, countdown, log)

	// 6. Run
	ctx, cancel := context.WithCancel(context.Background())
	go poller.Run(ctx)
	go countdown.Run(ctx)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 7. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	cancel()
	server.Shutdown(context.Background())
}
