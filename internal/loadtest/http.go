package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/okian/shotcoach/internal/adapters/repository"
	"github.com/okian/shotcoach/pkg/logger"
)

// client wraps http.Client with an optional shared rate limit.
type client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
}

func newClient(cfg *Config) *client {
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	return &client{
		base:    cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, max(cfg.Workers, 1)),
	}
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit: %w", err)
	}
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK || out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
	}
	return resp.StatusCode, nil
}

// coach posts one shot and returns the outcome.
func (c *client) coach(ctx context.Context, shot Shot) Result {
	var rec repository.Record
	status, err := c.do(ctx, http.MethodPost, "/coach", shot, &rec)
	res := Result{ShotID: shot.ShotID, Status: status, Err: err}
	if err == nil && status != http.StatusOK {
		res.Err = fmt.Errorf("coach %s: status %d", shot.ShotID, status)
	}
	if res.Err == nil {
		res.Suggestion = len(rec.Snapshot.Suggestions)
		res.Version = rec.Snapshot.Version
		res.InputHash = rec.Snapshot.InputHash
	}
	return res
}

type snapshot struct {
	repository.Record
	Stale bool `json:"stale"`
}

func (c *client) snapshot(ctx context.Context, shotID string) (snapshot, error) {
	var snap snapshot
	status, err := c.do(ctx, http.MethodGet, "/snapshots/"+url.PathEscape(shotID), nil, &snap)
	if err != nil {
		return snap, err
	}
	if status != http.StatusOK {
		return snap, fmt.Errorf("snapshot %s: status %d", shotID, status)
	}
	return snap, nil
}

// submitShots coaches shots across cfg.Workers goroutines.
func submitShots(ctx context.Context, cfg *Config, c *client, shots []Shot, stats *Stats) []Result {
	log := logger.Get()
	log.Info(ctx, "submitting shots", logger.Int("shots", len(shots)), logger.Int("workers", cfg.Workers))

	var (
		coached int64
		failed  int64
	)
	results := make([]Result, len(shots))
	jobs := make(chan int, cfg.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res := c.coach(ctx, shots[i])
				results[i] = res
				if res.Err != nil {
					atomic.AddInt64(&failed, 1)
					if cfg.Verbose {
						log.Warn(ctx, "coach request failed", logger.String("shotId", res.ShotID), logger.Error(res.Err))
					}
					continue
				}
				atomic.AddInt64(&coached, 1)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range shots {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()

	stats.ShotsCoached = int(coached)
	stats.ShotsFailed = int(failed)
	stats.ShotsSubmitted = stats.ShotsCoached + stats.ShotsFailed
	for _, r := range results {
		stats.Suggestions += r.Suggestion
	}
	log.Info(ctx, "shot submission completed",
		logger.Int("coached", stats.ShotsCoached),
		logger.Int("failed", stats.ShotsFailed))
	return results
}
