package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"perturbscope/internal/api"
	"perturbscope/internal/config"
	"perturbscope/internal/container"
	"perturbscope/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(os.Getenv("APP_ENV"))
	if err != nil {
		return err
	}
	defer log.Sync()

	c, err := container.New(cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	registry := prometheus.NewRegistry()
	metrics := api.NewMetrics(registry)
	jobs := api.NewJobManager(c.Pipeline, metrics, log, cfg.Server.Workers)
	server := api.NewServer(cfg.Server.Mode, jobs, c.Ledger, registry, log)

	log.Sugar().Infof("results API listening on :%s", cfg.Server.Port)
	return server.Run(":" + cfg.Server.Port)
}
