// Package seed generates randomized form submissions and posts them to a
// running reflection service.
package seed

import "time"

// Config holds configuration for a seed run.
type Config struct {
	BaseURL       string        // Base URL of the service
	Users         int           // Number of synthetic users
	PerUser       int           // Submissions per user
	Workers       int           // Number of concurrent workers
	Timeout       time.Duration // HTTP request timeout
	JWTSecret     string        // HS256 secret shared with the service
	DuplicateRate float64       // Fraction of submissions re-sent with the same Idempotency-Key
	Seed          uint64        // PRNG seed; equal seeds generate equal submissions
	OutputFile    string        // Output file for submissions, empty to skip
	Verbose       bool          // Enable verbose logging
}

// Submission is one form posted to POST /reflections.
type Submission struct {
	UserID         string         `json:"user_id"`
	Kind           string         `json:"kind"`
	Fields         map[string]any `json:"fields"`
	IdempotencyKey string         `json:"idempotency_key"`
	Resend         bool           `json:"resend,omitempty"`
}

// Stats holds run statistics.
type Stats struct {
	Generated  int
	Submitted  int
	Saved      int
	Duplicate  int
	Failed     int
	Verified   int
	Mismatched int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}
