package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/angel_gateway/internal/broker"
	"github.com/eddiefleurent/angel_gateway/internal/config"
	"github.com/eddiefleurent/angel_gateway/internal/gateway"
	"github.com/eddiefleurent/angel_gateway/internal/session"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Optional .env for local development; config values reference env vars.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger := newLogger(cfg)
	logger.Infof("Starting Angel One gateway in %s mode", cfg.Environment.Mode)

	sessions, err := session.NewMemStore()
	if err != nil {
		logger.Fatalf("Failed to create session store: %v", err)
	}

	api := broker.NewAngelAPI(cfg.Broker.BaseURL).
		WithClientIdentity(cfg.Broker.LocalIP, cfg.Broker.PublicIP, cfg.Broker.MACAddress)

	var b broker.Broker = api
	if cfg.Broker.CircuitBreaker {
		b = broker.NewCircuitBreakerBroker(api)
	}

	srv := gateway.NewServer(gateway.Config{
		Port:       cfg.GetPort(),
		CORSOrigin: cfg.Server.CORSOrigin,
		Production: cfg.IsProduction(),
	}, b, sessions, broker.NewInstrumentTable(cfg.Market.InstrumentTokens), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server error: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}

	logger.Info("Gateway stopped")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Environment.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}
