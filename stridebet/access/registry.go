// Package access maintains the participant whitelist. Challengers are a
// superset of bettors: granting challenger access implies bettor access,
// and both roles are revoked independently.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stridebet/stridebet/stridebet/database/models"
	"github.com/stridebet/stridebet/stridebet/database/repositories"
	"github.com/stridebet/stridebet/stridebet/logger"
)

var (
	ErrAlreadyWhitelisted = errors.New("participant already whitelisted")
	ErrNotWhitelisted     = errors.New("participant not whitelisted")
)

type Registry struct {
	participants repositories.ParticipantRepository
}

func NewRegistry(participants repositories.ParticipantRepository) *Registry {
	return &Registry{participants: participants}
}

// GrantBettor whitelists a participant for staking. Fails if the bettor
// role is already held.
func (r *Registry) GrantBettor(ctx context.Context, id string) error {
	p, err := r.participants.GetByID(ctx, id)
	if err != nil && !repositories.IsNotFound(err) {
		return err
	}
	if p != nil && p.Bettor {
		return ErrAlreadyWhitelisted
	}

	if p == nil {
		p = &models.Participant{ID: id, CreatedAt: time.Now()}
	}
	p.Bettor = true
	if err := r.participants.Upsert(ctx, p); err != nil {
		return fmt.Errorf("failed to grant bettor access: %w", err)
	}

	logger.LogSystem("bettor access granted", "participant", id)
	return nil
}

// GrantChallenger whitelists a participant for creating challenges.
// The bettor role comes along with it.
func (r *Registry) GrantChallenger(ctx context.Context, id string) error {
	p, err := r.participants.GetByID(ctx, id)
	if err != nil && !repositories.IsNotFound(err) {
		return err
	}
	if p != nil && p.Challenger {
		return ErrAlreadyWhitelisted
	}

	if p == nil {
		p = &models.Participant{ID: id, CreatedAt: time.Now()}
	}
	p.Challenger = true
	p.Bettor = true
	if err := r.participants.Upsert(ctx, p); err != nil {
		return fmt.Errorf("failed to grant challenger access: %w", err)
	}

	logger.LogSystem("challenger access granted", "participant", id)
	return nil
}

// RevokeBettor removes the bettor role only. A revoked bettor who still
// holds the challenger role keeps it.
func (r *Registry) RevokeBettor(ctx context.Context, id string) error {
	p, err := r.participants.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return ErrNotWhitelisted
		}
		return err
	}
	if !p.Bettor {
		return ErrNotWhitelisted
	}

	if err := r.participants.SetRoles(ctx, id, p.Challenger, false); err != nil {
		return fmt.Errorf("failed to revoke bettor access: %w", err)
	}

	logger.LogSystem("bettor access revoked", "participant", id)
	return nil
}

// RevokeChallenger removes the challenger role only.
func (r *Registry) RevokeChallenger(ctx context.Context, id string) error {
	p, err := r.participants.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return ErrNotWhitelisted
		}
		return err
	}
	if !p.Challenger {
		return ErrNotWhitelisted
	}

	if err := r.participants.SetRoles(ctx, id, false, p.Bettor); err != nil {
		return fmt.Errorf("failed to revoke challenger access: %w", err)
	}

	logger.LogSystem("challenger access revoked", "participant", id)
	return nil
}

// IsBettor reports whether the participant may place stakes.
func (r *Registry) IsBettor(ctx context.Context, id string) (bool, error) {
	p, err := r.participants.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return p.Bettor, nil
}

// IsChallenger reports whether the participant may create challenges.
func (r *Registry) IsChallenger(ctx context.Context, id string) (bool, error) {
	p, err := r.participants.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return p.Challenger, nil
}
