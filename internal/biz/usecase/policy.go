package usecase

import (
	"context"
	"fmt"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/domain"
	"github.com/DevRickLin/adaptive-slowmode/internal/biz/repo"
)

// PolicyUpdate is a partial policy change, nil fields are left untouched
type PolicyUpdate struct {
	Enabled         *bool   `json:"enabled,omitempty"`
	MinDelay        *int    `json:"min_delay,omitempty"`
	MaxDelay        *int    `json:"max_delay,omitempty"`
	Target          *int    `json:"target,omitempty"`
	ReportChannelID *string `json:"report_channel_id,omitempty"`
}

// PolicyUsecase manages guild policies
type PolicyUsecase struct {
	policyRepo repo.PolicyRepo
}

// NewPolicyUsecase creates a new policy usecase
func NewPolicyUsecase(policyRepo repo.PolicyRepo) *PolicyUsecase {
	return &PolicyUsecase{policyRepo: policyRepo}
}

// Get gets the policy of a guild
func (uc *PolicyUsecase) Get(ctx context.Context, guildID string) (*domain.GuildPolicy, error) {
	return uc.policyRepo.Get(ctx, guildID)
}

// Update applies a partial update to a guild policy
func (uc *PolicyUsecase) Update(ctx context.Context, guildID string, update PolicyUpdate) (*domain.GuildPolicy, error) {
	return uc.modify(ctx, guildID, func(p *domain.GuildPolicy) {
		if update.Enabled != nil {
			p.Enabled = *update.Enabled
		}
		if update.MinDelay != nil {
			p.MinDelay = *update.MinDelay
		}
		if update.MaxDelay != nil {
			p.MaxDelay = *update.MaxDelay
		}
		if update.Target != nil {
			p.Target = *update.Target
		}
		if update.ReportChannelID != nil {
			p.ReportChannelID = *update.ReportChannelID
		}
	})
}

// AddChannel adds a channel to the guild's monitored set
func (uc *PolicyUsecase) AddChannel(ctx context.Context, guildID, channelID string) (*domain.GuildPolicy, error) {
	return uc.modify(ctx, guildID, func(p *domain.GuildPolicy) {
		p.AddChannel(channelID)
	})
}

// RemoveChannel removes a channel from the guild's monitored set
func (uc *PolicyUsecase) RemoveChannel(ctx context.Context, guildID, channelID string) (*domain.GuildPolicy, error) {
	return uc.modify(ctx, guildID, func(p *domain.GuildPolicy) {
		p.RemoveChannel(channelID)
	})
}

func (uc *PolicyUsecase) modify(ctx context.Context, guildID string, fn func(p *domain.GuildPolicy)) (*domain.GuildPolicy, error) {
	p, err := uc.policyRepo.Get(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	fn(p)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := uc.policyRepo.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save policy: %w", err)
	}
	return p, nil
}
