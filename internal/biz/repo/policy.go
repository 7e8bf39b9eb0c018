package repo

import (
	"context"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/domain"
)

// PolicyRepo is the guild policy repository interface
// Responsible for policy persistence (SQLite)
type PolicyRepo interface {
	// Get gets the policy of a guild
	// Returns the default policy if the guild was never configured
	Get(ctx context.Context, guildID string) (*domain.GuildPolicy, error)

	// Save saves a policy (create or update)
	Save(ctx context.Context, policy *domain.GuildPolicy) error

	// ListEnabled lists the policies of all enabled guilds
	ListEnabled(ctx context.Context) ([]*domain.GuildPolicy, error)

	Close() error
}
