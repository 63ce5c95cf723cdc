package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/leap/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete jump simulation.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting jump simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("jumps", config.NumJumps),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("topN", config.TopN),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	jumps, err := generateJumps(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("jump generation failed: %w", err)
	}

	if err := submitJumps(ctx, config, jumps, stats); err != nil {
		return fmt.Errorf("jump submission failed: %w", err)
	}

	rankings, err := retrieveRankings(ctx, config, jumps, stats)
	if err != nil {
		return fmt.Errorf("ranking retrieval failed: %w", err)
	}

	leaderboard, err := getLeaderboard(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("leaderboard retrieval failed: %w", err)
	}

	if err := verifyResults(config, rankings, leaderboard); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	if err := saveJumpsToFile(ctx, config, jumps); err != nil {
		logger.Get().Warn(ctx, "failed to save jumps to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Any 200 counts as healthy; the endpoint serves Prometheus metrics.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveJumpsToFile saves the generated jumps to a JSON file.
func saveJumpsToFile(ctx context.Context, config *Config, jumps []Jump) error {
	if len(jumps) == 0 {
		return fmt.Errorf("no jumps to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_jumps_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jumps); err != nil {
		return fmt.Errorf("failed to write jumps: %w", err)
	}

	logger.Get().Info(ctx, "jumps saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var successRate, jumpsPerSecond float64

	if stats.JumpsSubmitted > 0 {
		successRate = float64(stats.JumpsSuccessful) / float64(stats.JumpsSubmitted) * 100
	}

	if stats.Duration > 0 {
		jumpsPerSecond = float64(stats.JumpsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("jumpsGenerated", stats.JumpsGenerated),
		logger.Int("jumpsSubmitted", stats.JumpsSubmitted),
		logger.Int("jumpsSuccessful", stats.JumpsSuccessful),
		logger.Int("jumpsMismatched", stats.JumpsMismatched),
		logger.Int("jumpsFailed", stats.JumpsFailed),
		logger.Int("rankingsRetrieved", stats.RankingsRetrieved),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("jumpsPerSecond", jumpsPerSecond))
}
