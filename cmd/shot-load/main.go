package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/shotcoach/internal/loadtest"
	"github.com/okian/shotcoach/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumShots   = 1000
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:8080", "Base URL of the service")
		numShots   = flag.Int("shots", defaultNumShots, "Number of shots to generate and coach")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		rps        = flag.Float64("rate", 0, "Requests per second across all workers, 0 for unlimited")
		mode       = flag.String("mode", "", "Coaching mode override")
		seed       = flag.Uint64("seed", 1, "Seed for shot generation")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for generated shots")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	_, err := loadtest.Run(ctx, &loadtest.Config{
		BaseURL:    *baseURL,
		NumShots:   *numShots,
		Workers:    *workers,
		Rate:       *rps,
		Mode:       *mode,
		Seed:       *seed,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	})
	if err != nil {
		_, _ = os.Stderr.WriteString("load run failed: " + err.Error() + "\n")
		cancel()
		stop()
		os.Exit(1)
	}
}
