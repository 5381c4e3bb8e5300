package wager

import (
	"context"
	"time"

	"github.com/stridebet/stridebet/stridebet/config"
	"github.com/stridebet/stridebet/stridebet/database/models"
	"github.com/stridebet/stridebet/stridebet/database/repositories"
)

// SettingSource reads a single administrator-tunable limit.
type SettingSource interface {
	Get(ctx context.Context, key string) (int64, error)
}

// Limits resolves tunable limits from the settings table, falling back to
// compiled defaults when a key has not been seeded yet.
type Limits struct {
	settings SettingSource
}

func NewLimits(settings SettingSource) *Limits {
	return &Limits{settings: settings}
}

func (l *Limits) get(ctx context.Context, key string, fallback int64) int64 {
	v, err := l.settings.Get(ctx, key)
	if err != nil {
		if repositories.IsNotFound(err) {
			return fallback
		}
		return fallback
	}
	return v
}

func (l *Limits) MinStakeUsd(ctx context.Context) int64 {
	return l.get(ctx, models.SettingMinStakeUsd, config.DefaultMinStakeUsd)
}

func (l *Limits) MaxBettors(ctx context.Context) int {
	return int(l.get(ctx, models.SettingMaxBettors, config.DefaultMaxBettors))
}

func (l *Limits) MaxDuration(ctx context.Context) time.Duration {
	secs := l.get(ctx, models.SettingMaxDurationSecs, int64(config.DefaultMaxDuration/time.Second))
	return time.Duration(secs) * time.Second
}

func (l *Limits) MaxMetrics(ctx context.Context) int {
	return int(l.get(ctx, models.SettingMaxMetrics, config.DefaultMaxMetrics))
}

func (l *Limits) MaxCompetitors(ctx context.Context) int {
	return int(l.get(ctx, models.SettingMaxCompetitors, config.DefaultMaxCompetitors))
}

func (l *Limits) PayoutBatchSize(ctx context.Context) int {
	return int(l.get(ctx, models.SettingPayoutBatchSize, config.DefaultPayoutBatchSize))
}
