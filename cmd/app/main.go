package main

import (
	"flag"
	"log"
	"os"

	"github.com/layiku/data-simulator/internal/di"
	"github.com/layiku/data-simulator/pkg/config"
)

func main() {
	configPath := flag.String("config", defaultConfigPath(), "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s objects=%d pipeline=%s", cfg.Environment, len(cfg.Objects), cfg.Pipeline.Backend)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Blocks until SIGINT/SIGTERM.
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if v := os.Getenv("SIM_CONFIG"); v != "" {
		return v
	}
	return "config/config.yaml"
}
