package data

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPolicyRepo(t *testing.T) *policyRepo {
	t.Helper()
	r, err := NewPolicyRepo(filepath.Join(t.TempDir(), "nested", "policies.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r.(*policyRepo)
}

func TestPolicyRepo_GetDefault(t *testing.T) {
	r := newTestPolicyRepo(t)

	p, err := r.Get(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultGuildPolicy("g1"), p)
}

func TestPolicyRepo_SaveAndGet(t *testing.T) {
	r := newTestPolicyRepo(t)
	ctx := context.Background()

	p := &domain.GuildPolicy{
		GuildID:         "g1",
		Enabled:         true,
		MinDelay:        2,
		MaxDelay:        10,
		Target:          30,
		Channels:        []string{"c2", "c1"},
		ReportChannelID: "log",
	}
	require.NoError(t, r.Save(ctx, p))

	got, err := r.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	// Saving replaces the channel set
	p.RemoveChannel("c2")
	p.Enabled = false
	require.NoError(t, r.Save(ctx, p))

	got, err = r.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, got.Channels)
	assert.False(t, got.Enabled)
}

func TestPolicyRepo_ListEnabled(t *testing.T) {
	r := newTestPolicyRepo(t)
	ctx := context.Background()

	for _, id := range []string{"g3", "g1", "g2"} {
		p := domain.DefaultGuildPolicy(id)
		p.Enabled = id != "g2"
		p.Channels = []string{id + "-c"}
		require.NoError(t, r.Save(ctx, p))
	}

	list, err := r.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "g1", list[0].GuildID)
	assert.Equal(t, "g3", list[1].GuildID)
	assert.Equal(t, []string{"g3-c"}, list[1].Channels)
}

func TestPolicyRepo_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.db")
	ctx := context.Background()

	r, err := NewPolicyRepo(path)
	require.NoError(t, err)
	p := domain.DefaultGuildPolicy("g1")
	p.Target = 42
	require.NoError(t, r.Save(ctx, p))
	require.NoError(t, r.Close())

	r, err = NewPolicyRepo(path)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 42, got.Target)
}

func TestCachedPolicyRepo(t *testing.T) {
	inner := newTestPolicyRepo(t)
	r := NewCachedPolicyRepo(inner, 16, time.Minute)
	ctx := context.Background()

	p, err := r.Get(ctx, "g1")
	require.NoError(t, err)

	// Mutating a returned policy does not leak into the cache
	p.AddChannel("c1")
	again, err := r.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, again.Channels)

	// Saves write through and refresh the cache
	require.NoError(t, r.Save(ctx, p))
	again, err = r.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, again.Channels)

	stored, err := inner.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, stored.Channels)
}

func TestCachedPolicyRepo_Expiry(t *testing.T) {
	inner := newTestPolicyRepo(t)
	r := NewCachedPolicyRepo(inner, 16, 20*time.Millisecond)
	ctx := context.Background()

	_, err := r.Get(ctx, "g1")
	require.NoError(t, err)

	// A write that bypasses the cache becomes visible once the entry expires
	p := domain.DefaultGuildPolicy("g1")
	p.Target = 7
	require.NoError(t, inner.Save(ctx, p))

	assert.Eventually(t, func() bool {
		got, err := r.Get(ctx, "g1")
		return err == nil && got.Target == 7
	}, time.Second, 10*time.Millisecond)
}
