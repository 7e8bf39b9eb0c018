package data

import (
	"context"
	"time"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/domain"
	"github.com/DevRickLin/adaptive-slowmode/internal/biz/repo"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// cachedPolicyRepo serves Get from an expiring LRU in front of another PolicyRepo.
// Message ingestion looks a policy up for every message, so reads dominate.
type cachedPolicyRepo struct {
	inner repo.PolicyRepo
	cache *expirable.LRU[string, *domain.GuildPolicy]
}

// NewCachedPolicyRepo wraps inner with a read cache of the given size and TTL
func NewCachedPolicyRepo(inner repo.PolicyRepo, capacity int, ttl time.Duration) repo.PolicyRepo {
	return &cachedPolicyRepo{
		inner: inner,
		cache: expirable.NewLRU[string, *domain.GuildPolicy](capacity, nil, ttl),
	}
}

func (r *cachedPolicyRepo) Get(ctx context.Context, guildID string) (*domain.GuildPolicy, error) {
	if p, ok := r.cache.Get(guildID); ok {
		return p.Clone(), nil
	}

	p, err := r.inner.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	r.cache.Add(guildID, p.Clone())
	return p, nil
}

func (r *cachedPolicyRepo) Save(ctx context.Context, policy *domain.GuildPolicy) error {
	if err := r.inner.Save(ctx, policy); err != nil {
		r.cache.Remove(policy.GuildID)
		return err
	}
	r.cache.Add(policy.GuildID, policy.Clone())
	return nil
}

func (r *cachedPolicyRepo) ListEnabled(ctx context.Context) ([]*domain.GuildPolicy, error) {
	return r.inner.ListEnabled(ctx)
}

func (r *cachedPolicyRepo) Close() error {
	r.cache.Purge()
	return r.inner.Close()
}
