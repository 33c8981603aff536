package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/interpretreflect/internal/seed"
	"github.com/okian/interpretreflect/pkg/logger"
)

// Default configuration constants.
const (
	defaultUsers         = 20
	defaultPerUser       = 10
	defaultWorkers       = 2 // multiplier for runtime.NumCPU()
	defaultTimeout       = 10 * time.Second
	defaultDuplicateRate = 0.1
	defaultRunTimeout    = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		users      = flag.Int("users", defaultUsers, "Number of synthetic users")
		perUser    = flag.Int("per-user", defaultPerUser, "Submissions per user")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		secret     = flag.String("jwt-secret", os.Getenv("REFLECT_JWT_SECRET"), "HS256 secret shared with the service")
		duplicates = flag.Float64("duplicates", defaultDuplicateRate, "Share of submissions re-sent with the same Idempotency-Key")
		seedValue  = flag.Uint64("seed", uint64(time.Now().UnixNano()), "PRNG seed")
		outputFile = flag.String("output", "", "Write the generated submissions to this JSON file")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seed.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	config := &seed.Config{
		BaseURL:       *baseURL,
		Users:         *users,
		PerUser:       *perUser,
		Workers:       *workers,
		Timeout:       *timeout,
		JWTSecret:     *secret,
		DuplicateRate: *duplicates,
		Seed:          *seedValue,
		OutputFile:    *outputFile,
		Verbose:       *verbose,
	}

	if _, err := seed.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Seed run failed: " + err.Error() + "\n")
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}
