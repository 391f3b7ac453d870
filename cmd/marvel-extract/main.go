// Command marvel-extract fetches the full Marvel character catalog and
// writes it as a CSV file. All tuning is via environment variables;
// there are no flags beyond running the extraction.
//
// Required: PUBLIC_KEY, PRIVATE_KEY.
// Optional: OUTPUT (default output/characters.csv), PAGE_SIZE,
// MODIFIED_SINCE, BASE_URL, METRICS_ADDR, LOG_LEVEL, LOG_PRETTY.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ArturWagner/marvel-characters-df/pkg/auth"
	"github.com/ArturWagner/marvel-characters-df/pkg/characters"
	"github.com/ArturWagner/marvel-characters-df/pkg/client"
	"github.com/ArturWagner/marvel-characters-df/pkg/export"
	"github.com/ArturWagner/marvel-characters-df/pkg/logging"
)

func main() {
	logger := logging.Setup(logging.FromEnv())

	creds, err := auth.FromEnv()
	if err != nil {
		logger.Error().Err(err).Msg("Credentials not configured")
		os.Exit(1)
	}

	clientCfg := client.DefaultConfig()
	if baseURL := getEnv("BASE_URL", ""); baseURL != "" {
		clientCfg.BaseURL = baseURL
	}

	apiClient, err := client.New(clientCfg)
	if err != nil {
		logger.Error().Err(err).Msg("Invalid client configuration")
		os.Exit(1)
	}

	fetchCfg := characters.DefaultFetchConfig()
	fetchCfg.ModifiedSince = getEnv("MODIFIED_SINCE", "")
	if pageSize := getEnv("PAGE_SIZE", ""); pageSize != "" {
		value, err := strconv.Atoi(pageSize)
		if err != nil {
			logger.Error().Str("value", pageSize).Msg("Invalid PAGE_SIZE")
			os.Exit(1)
		}
		fetchCfg.PageSize = value
	}

	fetcher, err := characters.NewFetcher(apiClient, creds, fetchCfg)
	if err != nil {
		logger.Error().Err(err).Msg("Invalid fetch configuration")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if addr := getEnv("METRICS_ADDR", ""); addr != "" {
		metricsServer = &http.Server{Addr: addr, Handler: promhttp.Handler()}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
		logger.Info().Str("addr", addr).Msg("Metrics server enabled")
	}

	startTime := time.Now()
	rows, err := fetcher.Extract(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Extraction failed")
		os.Exit(1)
	}

	output := getEnv("OUTPUT", "output/characters.csv")
	writer, err := export.NewCSVWriter(output)
	if err != nil {
		logger.Error().Err(err).Msg("Creating CSV writer failed")
		os.Exit(1)
	}
	if err := writer.Write(rows); err != nil {
		writer.Close()
		logger.Error().Err(err).Msg("Writing CSV failed")
		os.Exit(1)
	}
	if err := writer.Validate(); err != nil {
		writer.Close()
		logger.Error().Err(err).Msg("Output validation failed")
		os.Exit(1)
	}
	if err := writer.Close(); err != nil {
		logger.Error().Err(err).Msg("Closing CSV writer failed")
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Metrics server shutdown failed")
		}
		cancel()
	}

	logger.Info().
		Int("records", len(rows)).
		Dur("duration", time.Since(startTime)).
		Str("output", output).
		Msg("Extraction written")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
