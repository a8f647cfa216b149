//go:build !js && !wasm

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/himanishpuri/museecg/internal/config"
	"github.com/himanishpuri/museecg/pkg/logger"
	"github.com/himanishpuri/museecg/pkg/museecg"
)

var (
	configPath     string
	port           int
	dbPath         string
	allowedOrigins string
)

func init() {
	flag.StringVar(&configPath, "config", os.Getenv("MUSE_CONFIG"), "YAML config file")
	flag.IntVar(&port, "port", 0, "HTTP server port (default from config, 8080)")
	flag.StringVar(&dbPath, "db", "", "Path to SQLite database (default from config, museecg.sqlite3)")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

func parseOrigins(s string) []string {
	if s == "*" {
		return []string{"*"}
	}
	origins := strings.Split(s, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}

func main() {
	flag.Parse()
	log := logger.GetLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "museecg.sqlite3"
	}
	log.SetLevel(cfg.Level())

	service, err := museecg.NewService(
		museecg.WithLogger(log),
		museecg.WithDBPath(cfg.DBPath),
		museecg.WithDecodeScale(cfg.DecodeScale),
		museecg.WithWAVResolution(cfg.WAVResolution),
	)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := NewServer(service, cfg, parseOrigins(allowedOrigins), log)
	if err := server.Start(ctx); err != nil {
		log.Errorf("Server failed: %v", err)
		service.Close()
		os.Exit(1)
	}
}
