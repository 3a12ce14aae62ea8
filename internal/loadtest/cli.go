package loadtest

import "os"

// ShowHelp prints usage information for the load tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Shot Coach Load Tool
====================

Submits generated shots to a running coaching service and checks that every
persisted snapshot matches the coaching response.

Usage:
  go run ./cmd/shot-load [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8080")
  -shots int
        Number of shots to generate and coach (default 1000)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -rate float
        Requests per second across all workers, 0 for unlimited (default 0)
  -mode string
        Coaching mode override: rule, ai or hybrid (default: service mode)
  -seed uint
        Seed for shot generation (default 1)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Write generated shots to this JSON file
  -verbose
        Log every failed request
  -help
        Show this help message

Examples:
  go run ./cmd/shot-load -shots 5000 -workers 16
  go run ./cmd/shot-load -mode hybrid -rate 200 -output shots.json
`)
}
