package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Setting keys for the administrator-tunable limits.
const (
	SettingMinStakeUsd     = "min_stake_usd"
	SettingMaxBettors      = "max_bettors"
	SettingMaxDurationSecs = "max_duration_secs"
	SettingMaxMetrics      = "max_metrics"
	SettingMaxCompetitors  = "max_competitors"
	SettingPayoutBatchSize = "payout_batch_size"
)

type Setting struct {
	bun.BaseModel `bun:"table:settings,alias:s"`

	Key       string    `bun:"key,pk"`
	Value     int64     `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// SettingAudit is the before/after trail for every limit change.
type SettingAudit struct {
	bun.BaseModel `bun:"table:setting_audits,alias:sa"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Key      string `bun:"key,notnull"`
	OldValue int64  `bun:"old_value,notnull"`
	NewValue int64  `bun:"new_value,notnull"`
	ActorID  string `bun:"actor_id,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
