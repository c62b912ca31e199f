package main

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/joshp123/gosauna/harvia"
	"github.com/joshp123/gosauna/internal/logger"
	httpserver "github.com/joshp123/gosauna/internal/server"
	"github.com/joshp123/gosauna/tools"
)

const serverVersion = "0.1.0"

func main() {
	log := logger.Get(envOrDefault("GOSAUNA_LOG_LEVEL", logger.InfoLevel))

	username := os.Getenv("HARVIA_USERNAME")
	password := os.Getenv("HARVIA_PASSWORD")
	if username == "" || password == "" {
		log.Fatalw("HARVIA_USERNAME and HARVIA_PASSWORD environment variables are required")
	}

	timeout, err := time.ParseDuration(envOrDefault("GOSAUNA_TIMEOUT", "15s"))
	if err != nil {
		log.Fatalw("invalid GOSAUNA_TIMEOUT", "err", err)
	}

	client, err := harvia.NewClient(harvia.Config{
		Username: username,
		Password: password,
		BaseURL:  os.Getenv("HARVIA_BASE_URL"),
		Timeout:  timeout,
	})
	if err != nil {
		log.Fatalw("client setup failed", "err", err)
	}
	defer client.Close()

	policy := tools.Policy{
		MaxAttempts:     envInt("GOSAUNA_RETRY_ATTEMPTS", 3),
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
	service := tools.NewService(client, policy, log)

	if httpAddr := os.Getenv("GOSAUNA_HTTP_ADDR"); httpAddr != "" {
		go serveHTTP(httpAddr, log)
	}

	log.Infow("serving MCP over stdio", "version", serverVersion)
	if err := server.ServeStdio(tools.NewServer(service, serverVersion)); err != nil {
		log.Fatalw("stdio server exited", "err", err)
	}
}

// serveHTTP runs the optional health and metrics sidecar.
func serveHTTP(addr string, log *logger.Logger) {
	registry := httpserver.MetricsRegistry(harvia.MetricsCollectors())
	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "gosauna_build_info",
		Help: "Build information",
	}, func() float64 { return 1 }))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", httpserver.HealthHandler)
	mux.Handle("/metrics", httpserver.MetricsHandler(registry))

	log.Infow("http listening", "addr", addr)
	if err := httpserver.NewHTTPServer(addr, mux).ListenAndServe(); err != nil {
		log.Errorw("http serve", "err", err)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
