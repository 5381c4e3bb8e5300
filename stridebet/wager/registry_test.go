package wager

import (
	"errors"
	"testing"
	"time"

	"github.com/stridebet/stridebet/stridebet/database/models"
)

func Test_applyMeasurements(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	active := func() *models.Challenge {
		return &models.Challenge{
			Status:       models.ChallengeStatusActive,
			StartTime:    now.Add(-30 * time.Minute),
			DurationSecs: 3600,
			Targets:      map[string]int64{"distance_m": 100_000},
			Finals:       map[string]int64{},
		}
	}

	t.Run("merges finals while the window is open", func(t *testing.T) {
		c := active()
		expired, err := applyMeasurements(c, map[string]int64{"distance_m": 104_000}, now)
		if err != nil || expired {
			t.Fatalf("applyMeasurements() = (%v, %v), want (false, nil)", expired, err)
		}
		if c.Finals["distance_m"] != 104_000 {
			t.Errorf("Finals[distance_m] = %d, want 104000", c.Finals["distance_m"])
		}
		if c.Status != models.ChallengeStatusActive {
			t.Errorf("status = %q, want active", c.Status)
		}
	})

	t.Run("later submission overwrites the previous final", func(t *testing.T) {
		c := active()
		if _, err := applyMeasurements(c, map[string]int64{"distance_m": 90_000}, now); err != nil {
			t.Fatal(err)
		}
		if _, err := applyMeasurements(c, map[string]int64{"distance_m": 104_000}, now); err != nil {
			t.Fatal(err)
		}
		if c.Finals["distance_m"] != 104_000 {
			t.Errorf("Finals[distance_m] = %d, want 104000", c.Finals["distance_m"])
		}
	})

	t.Run("elapsed window flips to expired and records nothing", func(t *testing.T) {
		c := active()
		late := now.Add(2 * time.Hour)

		expired, err := applyMeasurements(c, map[string]int64{"distance_m": 104_000}, late)
		if err != nil {
			t.Fatalf("applyMeasurements() error = %v, want nil: the flip must persist", err)
		}
		if !expired {
			t.Fatal("expected the expired flag so the caller returns ErrChallengeExpired after commit")
		}
		if c.Status != models.ChallengeStatusExpired {
			t.Errorf("status = %q, want expired", c.Status)
		}
		if len(c.Finals) != 0 {
			t.Errorf("Finals = %v, want the expiring submission discarded", c.Finals)
		}
	})

	t.Run("untracked metric is rejected without side effects", func(t *testing.T) {
		c := active()
		expired, err := applyMeasurements(c, map[string]int64{"heart_rate": 150}, now)
		if !errors.Is(err, ErrUnknownMetric) || expired {
			t.Fatalf("applyMeasurements() = (%v, %v), want (false, ErrUnknownMetric)", expired, err)
		}
		if len(c.Finals) != 0 {
			t.Errorf("Finals = %v, want empty", c.Finals)
		}
	})
}
