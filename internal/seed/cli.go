package seed

import (
	"os"
)

// ShowHelp prints usage information for the seed tool.
func ShowHelp() {
	os.Stdout.WriteString(`Reflection Seed Tool
====================

Posts randomized form submissions for a set of synthetic users to a running
reflection service, then checks every user's reflection total.

Usage:
  go run ./cmd/seed-reflections [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -users int
        Number of synthetic users (default 20)
  -per-user int
        Submissions per user (default 10)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -jwt-secret string
        HS256 secret shared with the service (default $REFLECT_JWT_SECRET)
  -duplicates float
        Share of submissions re-sent with the same Idempotency-Key (default 0.1)
  -seed uint
        PRNG seed (default: current time)
  -output string
        Write the generated submissions to this JSON file
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  go run ./cmd/seed-reflections -users 100 -per-user 30
  go run ./cmd/seed-reflections -seed 42 -output seed.json -verbose
`)
}
