package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/shotcoach/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// ErrVerification reports persisted snapshots that differ from the coaching response.
var ErrVerification = errors.New("snapshot verification failed")

// Run executes a complete load run and returns its statistics.
func Run(ctx context.Context, cfg *Config) (Stats, error) {
	log := logger.Get()
	stats := Stats{StartTime: time.Now()}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	log.Info(ctx, "starting shot load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("shots", cfg.NumShots),
		logger.Int("workers", cfg.Workers),
		logger.Float64("rate", cfg.Rate),
		logger.String("mode", cfg.Mode),
		logger.Duration("timeout", cfg.Timeout))

	c := newClient(cfg)
	if err := checkServiceHealth(ctx, c); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	shots := generateShots(cfg.NumShots, cfg.Seed, cfg.Mode)
	stats.ShotsGenerated = len(shots)
	if cfg.OutputFile != "" {
		if err := saveShots(cfg.OutputFile, shots); err != nil {
			log.Warn(ctx, "failed to save shots to file", logger.Error(err))
		}
	}

	results := submitShots(ctx, cfg, c, shots, &stats)
	verifyErr := verifyResults(ctx, cfg, c, results, &stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if verifyErr != nil {
		return stats, verifyErr
	}
	if stats.ShotsCoached == 0 && stats.ShotsGenerated > 0 {
		return stats, fmt.Errorf("no shot was coached (%d failed)", stats.ShotsFailed)
	}
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, c *client) error {
	status, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	if err != nil {
		return fmt.Errorf("connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("health check returned status %d", status)
	}
	return nil
}

// verifyResults reads back every coached shot and compares it with the response.
func verifyResults(ctx context.Context, cfg *Config, c *client, results []Result, stats *Stats) error {
	log := logger.Get()
	for _, res := range results {
		if res.Err != nil || res.ShotID == "" {
			continue
		}
		snap, err := c.snapshot(ctx, res.ShotID)
		if err != nil {
			stats.Mismatched++
			log.Warn(ctx, "snapshot read failed", logger.String("shotId", res.ShotID), logger.Error(err))
			continue
		}
		if problem := compare(cfg, res, snap); problem != "" {
			stats.Mismatched++
			log.Warn(ctx, "snapshot mismatch", logger.String("shotId", res.ShotID), logger.String("problem", problem))
			continue
		}
		stats.Verified++
	}
	if stats.Mismatched > 0 {
		return fmt.Errorf("%w: %d of %d", ErrVerification, stats.Mismatched, stats.Mismatched+stats.Verified)
	}
	return nil
}

func compare(cfg *Config, res Result, snap snapshot) string {
	switch {
	case snap.Snapshot.InputHash != res.InputHash:
		return "input hash differs"
	case snap.Snapshot.Version != res.Version:
		return "version differs"
	case len(snap.Snapshot.Suggestions) != res.Suggestion:
		return "suggestion count differs"
	case len(snap.Snapshot.Suggestions) > maxSuggestions:
		return "too many suggestions"
	case cfg.Mode == "" && snap.Stale:
		return "fresh snapshot reported stale"
	}
	return ""
}

// saveShots writes the generated shots as a JSON array.
func saveShots(filename string, shots []Shot) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(shots, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal shots: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("write shots: %w", err)
	}
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats Stats) {
	var successRate, shotsPerSecond, avgSuggestions float64
	if stats.ShotsSubmitted > 0 {
		successRate = float64(stats.ShotsCoached) / float64(stats.ShotsSubmitted) * 100
	}
	if stats.Duration > 0 {
		shotsPerSecond = float64(stats.ShotsSubmitted) / stats.Duration.Seconds()
	}
	if stats.ShotsCoached > 0 {
		avgSuggestions = float64(stats.Suggestions) / float64(stats.ShotsCoached)
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("shotsGenerated", stats.ShotsGenerated),
		logger.Int("shotsSubmitted", stats.ShotsSubmitted),
		logger.Int("shotsCoached", stats.ShotsCoached),
		logger.Int("shotsFailed", stats.ShotsFailed),
		logger.Int("verified", stats.Verified),
		logger.Int("mismatched", stats.Mismatched),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("shotsPerSecond", shotsPerSecond),
		logger.Float64("avgSuggestions", avgSuggestions))
}
