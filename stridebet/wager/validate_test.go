package wager

import (
	"math/big"
	"testing"
	"time"

	"github.com/stridebet/stridebet/stridebet/database/models"
)

func rate(s string) *big.Int {
	r, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad rate literal: " + s)
	}
	return r
}

func Test_meetsMinimumUsd(t *testing.T) {
	oneToken := int64(1_000_000_000_000_000_000)

	tests := []struct {
		name   string
		amount int64
		rate   *big.Int
		minUsd int64
		want   bool
	}{
		{
			name:   "exactly at threshold",
			amount: oneToken,
			rate:   rate("10000000000000000000"), // $10 per token
			minUsd: 10,
			want:   true,
		},
		{
			name:   "one base unit short",
			amount: oneToken - 1,
			rate:   rate("10000000000000000000"),
			minUsd: 10,
			want:   false,
		},
		{
			name:   "well above threshold",
			amount: 5 * oneToken,
			rate:   rate("2500000000000000000"), // $2.50 per token
			minUsd: 10,
			want:   true,
		},
		{
			name:   "nonzero but undersized",
			amount: oneToken / 2,
			rate:   rate("2500000000000000000"),
			minUsd: 10,
			want:   false,
		},
		{
			name:   "zero minimum always clears",
			amount: 1,
			rate:   rate("1"),
			minUsd: 0,
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := meetsMinimumUsd(tt.amount, tt.rate, tt.minUsd); got != tt.want {
				t.Errorf("meetsMinimumUsd() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_validateCreate(t *testing.T) {
	maxDuration := 30 * 24 * time.Hour

	tests := []struct {
		name     string
		title    string
		targets  map[string]int64
		duration time.Duration
		wantErr  error
	}{
		{
			name:     "valid",
			title:    "run 100km",
			targets:  map[string]int64{"distance_m": 100_000},
			duration: 7 * 24 * time.Hour,
		},
		{
			name:     "zero target is legal",
			title:    "placeholder target",
			targets:  map[string]int64{"score": 0},
			duration: time.Hour,
		},
		{
			name:     "blank title",
			targets:  map[string]int64{"distance_m": 1},
			duration: time.Hour,
			wantErr:  ErrBlankTitle,
		},
		{
			name:     "no metrics",
			title:    "empty",
			targets:  map[string]int64{},
			duration: time.Hour,
			wantErr:  ErrNoMetrics,
		},
		{
			name:     "too many metrics",
			title:    "kitchen sink",
			targets:  map[string]int64{"a": 1, "b": 2, "c": 3},
			duration: time.Hour,
			wantErr:  ErrTooManyMetrics,
		},
		{
			name:     "blank metric type",
			title:    "bad metric",
			targets:  map[string]int64{"": 5},
			duration: time.Hour,
			wantErr:  ErrBlankMetric,
		},
		{
			name:     "zero duration",
			title:    "instant",
			targets:  map[string]int64{"score": 1},
			duration: 0,
			wantErr:  ErrBadDuration,
		},
		{
			name:     "duration above maximum",
			title:    "marathon year",
			targets:  map[string]int64{"score": 1},
			duration: maxDuration + time.Second,
			wantErr:  ErrBadDuration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCreate(tt.title, tt.targets, tt.duration, 2, maxDuration)
			if err != tt.wantErr {
				t.Errorf("validateCreate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func Test_validateStake(t *testing.T) {
	base := func() *models.Challenge {
		return &models.Challenge{
			ID:      1,
			OwnerID: "owner",
			Status:  models.ChallengeStatusInactive,
		}
	}

	tests := []struct {
		name          string
		mutate        func(c *models.Challenge)
		participantID string
		side          models.StakeSide
		amount        int64
		hasStake      bool
		wantErr       error
	}{
		{
			name:          "valid for-stake",
			mutate:        func(c *models.Challenge) {},
			participantID: "alice",
			side:          models.StakeSideFor,
			amount:        100,
		},
		{
			name:          "owner may back themselves",
			mutate:        func(c *models.Challenge) {},
			participantID: "owner",
			side:          models.StakeSideFor,
			amount:        100,
		},
		{
			name:          "owner against own challenge",
			mutate:        func(c *models.Challenge) {},
			participantID: "owner",
			side:          models.StakeSideAgainst,
			amount:        100,
			wantErr:       ErrOwnerAgainstSelf,
		},
		{
			name:          "bad side",
			mutate:        func(c *models.Challenge) {},
			participantID: "alice",
			side:          models.StakeSide("sideways"),
			amount:        100,
			wantErr:       ErrInvalidSide,
		},
		{
			name:          "zero amount",
			mutate:        func(c *models.Challenge) {},
			participantID: "alice",
			side:          models.StakeSideFor,
			amount:        0,
			wantErr:       ErrNonPositiveStake,
		},
		{
			name:          "not inactive",
			mutate:        func(c *models.Challenge) { c.Status = models.ChallengeStatusActive },
			participantID: "alice",
			side:          models.StakeSideFor,
			amount:        100,
			wantErr:       ErrNotInactive,
		},
		{
			name:          "duplicate stake",
			mutate:        func(c *models.Challenge) {},
			participantID: "alice",
			side:          models.StakeSideAgainst,
			amount:        100,
			hasStake:      true,
			wantErr:       ErrStakeExists,
		},
		{
			name:          "against stake on a leaderboard challenge",
			mutate:        func(c *models.Challenge) { c.Mode = models.ChallengeModeLeaderboard },
			participantID: "alice",
			side:          models.StakeSideAgainst,
			amount:        100,
			wantErr:       ErrInvalidSide,
		},
		{
			name:          "for stake on a leaderboard challenge",
			mutate:        func(c *models.Challenge) { c.Mode = models.ChallengeModeLeaderboard },
			participantID: "alice",
			side:          models.StakeSideFor,
			amount:        100,
		},
		{
			name: "bettor cap reached",
			mutate: func(c *models.Challenge) {
				c.BettorsFor = 2
				c.BettorsAgainst = 1
			},
			participantID: "alice",
			side:          models.StakeSideFor,
			amount:        100,
			wantErr:       ErrBettorCapReached,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := validateStake(c, tt.participantID, tt.side, tt.amount, tt.hasStake, 3)
			if err != tt.wantErr {
				t.Errorf("validateStake() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func Test_validateStart(t *testing.T) {
	tests := []struct {
		name    string
		c       *models.Challenge
		joined  int
		wantErr error
	}{
		{
			name: "binary both sides staked",
			c: &models.Challenge{
				Mode:               models.ChallengeModeBinary,
				Status:             models.ChallengeStatusInactive,
				TotalStakedFor:     1,
				TotalStakedAgainst: 1,
			},
		},
		{
			name: "binary nobody against",
			c: &models.Challenge{
				Mode:           models.ChallengeModeBinary,
				Status:         models.ChallengeStatusInactive,
				TotalStakedFor: 100,
			},
			wantErr: ErrSideEmpty,
		},
		{
			name: "binary nobody for",
			c: &models.Challenge{
				Mode:               models.ChallengeModeBinary,
				Status:             models.ChallengeStatusInactive,
				TotalStakedAgainst: 100,
			},
			wantErr: ErrSideEmpty,
		},
		{
			name: "already active",
			c: &models.Challenge{
				Mode:               models.ChallengeModeBinary,
				Status:             models.ChallengeStatusActive,
				TotalStakedFor:     1,
				TotalStakedAgainst: 1,
			},
			wantErr: ErrNotInactive,
		},
		{
			name: "leaderboard two competitors",
			c: &models.Challenge{
				Mode:   models.ChallengeModeLeaderboard,
				Status: models.ChallengeStatusInactive,
			},
			joined: 2,
		},
		{
			name: "leaderboard single competitor",
			c: &models.Challenge{
				Mode:   models.ChallengeModeLeaderboard,
				Status: models.ChallengeStatusInactive,
			},
			joined:  1,
			wantErr: ErrFewCompetitors,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validateStart(tt.c, tt.joined); err != tt.wantErr {
				t.Errorf("validateStart() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func Test_validateMeasurements(t *testing.T) {
	challenge := &models.Challenge{
		Targets: map[string]int64{"distance_m": 100_000, "elevation_m": 1000},
	}

	tests := []struct {
		name    string
		finals  map[string]int64
		wantErr error
	}{
		{
			name:   "subset of tracked metrics",
			finals: map[string]int64{"distance_m": 104_000},
		},
		{
			name:   "all tracked metrics",
			finals: map[string]int64{"distance_m": 104_000, "elevation_m": 1200},
		},
		{
			name:    "empty submission",
			finals:  map[string]int64{},
			wantErr: ErrNoMetrics,
		},
		{
			name:    "untracked metric",
			finals:  map[string]int64{"heart_rate": 150},
			wantErr: ErrUnknownMetric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validateMeasurements(challenge, tt.finals); err != tt.wantErr {
				t.Errorf("validateMeasurements() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
