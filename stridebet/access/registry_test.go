package access

import (
	"context"
	"testing"

	"github.com/stridebet/stridebet/stridebet/database/models"
	"github.com/stridebet/stridebet/stridebet/database/repositories"
	"github.com/uptrace/bun"
)

type fakeParticipantRepo struct {
	participants map[string]*models.Participant
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{participants: make(map[string]*models.Participant)}
}

func (f *fakeParticipantRepo) DB() *bun.DB { return nil }

func (f *fakeParticipantRepo) GetByID(_ context.Context, id string) (*models.Participant, error) {
	p, ok := f.participants[id]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "participant", ID: id}
	}
	cp := *p
	return &cp, nil
}

func (f *fakeParticipantRepo) Upsert(_ context.Context, p *models.Participant) error {
	cp := *p
	f.participants[p.ID] = &cp
	return nil
}

func (f *fakeParticipantRepo) SetRoles(_ context.Context, id string, challenger, bettor bool) error {
	if p, ok := f.participants[id]; ok {
		p.Challenger = challenger
		p.Bettor = bettor
	}
	return nil
}

func (f *fakeParticipantRepo) CreditBalance(_ context.Context, _ bun.Tx, id string, amount int64) error {
	f.participants[id].Balance += amount
	return nil
}

func (f *fakeParticipantRepo) DebitBalance(_ context.Context, _ bun.Tx, id string, amount int64) error {
	f.participants[id].Balance -= amount
	return nil
}

func Test_Registry_GrantBettor(t *testing.T) {
	tests := []struct {
		name     string
		existing *models.Participant
		wantErr  error
	}{
		{
			name: "new participant",
		},
		{
			name:     "existing non-bettor",
			existing: &models.Participant{ID: "alice"},
		},
		{
			name:     "already bettor",
			existing: &models.Participant{ID: "alice", Bettor: true},
			wantErr:  ErrAlreadyWhitelisted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeParticipantRepo()
			if tt.existing != nil {
				repo.participants[tt.existing.ID] = tt.existing
			}
			reg := NewRegistry(repo)

			err := reg.GrantBettor(context.Background(), "alice")
			if err != tt.wantErr {
				t.Fatalf("GrantBettor() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && !repo.participants["alice"].Bettor {
				t.Error("participant should hold bettor role")
			}
		})
	}
}

func Test_Registry_GrantChallenger_ImpliesBettor(t *testing.T) {
	repo := newFakeParticipantRepo()
	reg := NewRegistry(repo)

	if err := reg.GrantChallenger(context.Background(), "bob"); err != nil {
		t.Fatalf("GrantChallenger() error = %v", err)
	}

	p := repo.participants["bob"]
	if !p.Challenger {
		t.Error("participant should hold challenger role")
	}
	if !p.Bettor {
		t.Error("challenger grant should imply bettor role")
	}
}

func Test_Registry_RevokeBettor(t *testing.T) {
	tests := []struct {
		name           string
		existing       *models.Participant
		wantErr        error
		wantChallenger bool
	}{
		{
			name:    "unknown participant",
			wantErr: ErrNotWhitelisted,
		},
		{
			name:     "not a bettor",
			existing: &models.Participant{ID: "alice", Challenger: true},
			wantErr:  ErrNotWhitelisted,
		},
		{
			name:     "bettor only",
			existing: &models.Participant{ID: "alice", Bettor: true},
		},
		{
			name:           "challenger keeps challenger role",
			existing:       &models.Participant{ID: "alice", Challenger: true, Bettor: true},
			wantChallenger: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeParticipantRepo()
			if tt.existing != nil {
				repo.participants[tt.existing.ID] = tt.existing
			}
			reg := NewRegistry(repo)

			err := reg.RevokeBettor(context.Background(), "alice")
			if err != tt.wantErr {
				t.Fatalf("RevokeBettor() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			p := repo.participants["alice"]
			if p.Bettor {
				t.Error("bettor role should be gone")
			}
			if p.Challenger != tt.wantChallenger {
				t.Errorf("challenger role = %v, want %v", p.Challenger, tt.wantChallenger)
			}
		})
	}
}

func Test_Registry_RevokeChallenger_KeepsBettor(t *testing.T) {
	repo := newFakeParticipantRepo()
	repo.participants["carol"] = &models.Participant{ID: "carol", Challenger: true, Bettor: true}
	reg := NewRegistry(repo)

	if err := reg.RevokeChallenger(context.Background(), "carol"); err != nil {
		t.Fatalf("RevokeChallenger() error = %v", err)
	}

	p := repo.participants["carol"]
	if p.Challenger {
		t.Error("challenger role should be gone")
	}
	if !p.Bettor {
		t.Error("bettor role should survive challenger revocation")
	}
}

func Test_Registry_IsBettor_UnknownParticipant(t *testing.T) {
	reg := NewRegistry(newFakeParticipantRepo())

	ok, err := reg.IsBettor(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("IsBettor() error = %v", err)
	}
	if ok {
		t.Error("unknown participant should not be a bettor")
	}
}
