package generator

import "time"

// Config drives the synthetic session generator.
type Config struct {
	NumUsers        int
	SessionsPerUser int
	DomainPoolSize  int
	// DirtyRatio is the share of rows given one malformation the cleaner
	// has to repair or drop.
	DirtyRatio float64
	// Skew is the Zipf exponent of domain popularity; values must exceed 1.
	Skew  float64
	Start time.Time
	Seed  int64
}

// DefaultConfig returns settings that produce a few thousand sessions.
func DefaultConfig() Config {
	return Config{
		NumUsers:        200,
		SessionsPerUser: 25,
		DomainPoolSize:  120,
		DirtyRatio:      0.05,
		Skew:            1.3,
		Start:           time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		Seed:            42,
	}
}
