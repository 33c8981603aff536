package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/interpretreflect/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run executes a complete seed run: health check, generation, submission
// and verification against each user's reflection stats.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting reflection seed run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("users", config.Users),
		logger.Int("perUser", config.PerUser),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Any("verbose", config.Verbose))

	if config.Workers <= 0 {
		config.Workers = 1
	}

	if err := checkServiceHealth(ctx, config); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	subs, err := generateSubmissions(ctx, config, stats)
	if err != nil {
		return stats, fmt.Errorf("generation failed: %w", err)
	}

	tokens := newTokenSource(config.JWTSecret)
	perUser := submitAll(ctx, config, tokens, subs, stats)

	if err := verifyStats(ctx, config, tokens, perUser, stats); err != nil {
		return stats, fmt.Errorf("verification failed: %w", err)
	}

	if config.OutputFile != "" {
		if err := saveSubmissions(ctx, config.OutputFile, subs); err != nil {
			log.Warn(ctx, "failed to save submissions to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	if stats.Mismatched > 0 {
		return stats, fmt.Errorf("%d users have unexpected reflection totals", stats.Mismatched)
	}
	log.Info(ctx, "seed run completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/healthz", "")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

type statsResponse struct {
	Total int `json:"totalReflections"`
}

// verifyStats reads each user's stats and compares the total with the
// number of saves the run observed.
func verifyStats(ctx context.Context, config *Config, tokens *tokenSource, perUser map[string]int, stats *Stats) error {
	client := newHTTPClient(config.Timeout)
	for userID, want := range perUser {
		token, err := tokens.Token(userID)
		if err != nil {
			return err
		}
		resp, err := client.Get(ctx, config.BaseURL+"/reflections/stats", token)
		if err != nil {
			return fmt.Errorf("fetch stats for %s: %w", userID, err)
		}
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read stats for %s: %w", userID, err)
		}
		if resp.StatusCode != StatusOK {
			return fmt.Errorf("stats for %s returned status %d", userID, resp.StatusCode)
		}

		var got statsResponse
		if err := json.Unmarshal(body, &got); err != nil {
			return fmt.Errorf("decode stats for %s: %w", userID, err)
		}
		stats.Verified++
		if got.Total != want {
			stats.Mismatched++
			logger.Get().Warn(ctx, "reflection total mismatch",
				logger.String("userID", userID),
				logger.Int("expected", want),
				logger.Int("actual", got.Total))
		}
	}
	return nil
}

// saveSubmissions writes the generated submissions as a JSON array.
func saveSubmissions(ctx context.Context, filename string, subs []Submission) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal submissions: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "submissions saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(stats *Stats) {
	var successRate, perSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Saved+stats.Duplicate) / float64(stats.Submitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("saved", stats.Saved),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
		logger.Int("usersVerified", stats.Verified),
		logger.Int("usersMismatched", stats.Mismatched),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("submissionsPerSecond", perSecond))
}
