package seed

import "time"

// HTTP status code constants.
const (
	StatusOK      = 200
	StatusCreated = 201
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	ProgressInterval     = time.Second
	PercentageMultiplier = 100
	tokenLifetime        = time.Hour
)

// Submission outcomes.
const (
	outcomeSaved     = "saved"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"
)
