// Package loadtest drives a running coaching service with generated shots and
// checks that every persisted snapshot matches what the service returned.
package loadtest

import (
	"time"

	"github.com/okian/shotcoach/internal/domain/model"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	NumShots   int           // Number of shots to generate
	Workers    int           // Number of concurrent workers
	Rate       float64       // Requests per second across all workers, 0 for unlimited
	Mode       string        // Coaching mode override, empty for the service default
	Seed       uint64        // Seed for shot generation
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for generated shots, empty to skip
	Verbose    bool          // Enable verbose logging
}

// Shot is one generated coaching request.
type Shot struct {
	ShotID string             `json:"shotId"`
	Roast  model.RoastLevel   `json:"roast"`
	Mode   string             `json:"mode,omitempty"`
	Form   model.ShotFormData `json:"form"`
}

// Result is the outcome of coaching one shot.
type Result struct {
	ShotID     string
	Status     int
	Suggestion int
	Version    string
	InputHash  string
	Err        error
}

// Stats holds run statistics.
type Stats struct {
	ShotsGenerated int
	ShotsSubmitted int
	ShotsCoached   int
	ShotsFailed    int
	Suggestions    int
	Verified       int
	Mismatched     int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
