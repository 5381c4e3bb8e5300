package stridebet

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/stridebet/stridebet/stridebet/database"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log    LogConfig         `toml:"log"`
	DB     database.DBConfig `toml:"db"`
	Server ServerConfig      `toml:"server"`
	Oracle OracleConfig      `toml:"oracle"`
	Spaces SpacesConfig      `toml:"spaces"`
	Wager  WagerConfig       `toml:"wager"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type ServerConfig struct {
	Addr       string `toml:"addr"`
	AdminToken string `toml:"admin_token"`
}

type OracleConfig struct {
	FeedURL     string `toml:"feed_url"`
	Pair        string `toml:"pair"`
	TimeoutSecs int    `toml:"timeout_secs"`
}

type SpacesConfig struct {
	Enabled    bool   `toml:"enabled"`
	Key        string `toml:"key"`
	Secret     string `toml:"secret"`
	Region     string `toml:"region"`
	Bucket     string `toml:"bucket"`
	ReportRoot string `toml:"report_root"`
}

// WagerConfig seeds the settings table on first boot; the live values are
// administrator-tunable afterwards. Zero means "use the compiled default".
type WagerConfig struct {
	Admins          []snowflake.ID `toml:"admins"`
	MinStakeUsd     int64          `toml:"min_stake_usd"`
	MaxBettors      int64          `toml:"max_bettors"`
	MaxDurationHrs  int64          `toml:"max_duration_hours"`
	MaxMetrics      int64          `toml:"max_metrics"`
	MaxCompetitors  int64          `toml:"max_competitors"`
	PayoutBatchSize int64          `toml:"payout_batch_size"`
}

// AdminIDs renders the configured administrators as participant identities.
func (w WagerConfig) AdminIDs() []string {
	out := make([]string, len(w.Admins))
	for i, id := range w.Admins {
		out[i] = id.String()
	}
	return out
}
