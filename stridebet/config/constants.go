package config

import "time"

// Application-wide constants organized by domain

// Database and Performance Constants
const (
	// Timeouts
	DefaultQueryTimeout = 30 * time.Second
	SearchTimeout       = 10 * time.Second
	SettlementTimeout   = 60 * time.Second
	BatchQueryTimeout   = 30 * time.Second
	NetworkDialTimeout  = 5 * time.Second

	// Cache settings
	RateCacheExpiration = 1 * time.Minute
	RateCacheSize       = 16

	// Batch processing
	MaxRetries = 3
)

// Wagering Constants
const (
	// Defaults for administrator-tunable limits; the live values are read
	// from the settings table.
	DefaultMinStakeUsd     = 10
	DefaultMaxBettors      = 200
	DefaultMaxDuration     = 30 * 24 * time.Hour
	DefaultMaxMetrics      = 10
	DefaultMaxCompetitors  = 50
	DefaultPayoutBatchSize = 25

	// Oracle freshness window: a rate older than this is unusable.
	MaxRateAge = 24 * time.Hour

	// USD-equivalence precision: rates are normalized to 1e18.
	RateScaleDecimals = 18
)
