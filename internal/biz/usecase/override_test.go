package usecase

import (
	"context"
	"testing"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reportedUsecase returns a usecase with a live report for channel c1
func reportedUsecase(t *testing.T, delay int) (*SlowmodeUsecase, *mockChannelRepo, *domain.Report) {
	t.Helper()

	p := testPolicy("g1", "c1")
	p.MinDelay, p.MaxDelay = 0, 10
	p.ReportChannelID = "log"
	channels := newMockChannelRepo()
	channels.delays["c1"] = delay
	uc := newTestUsecase(newMockPolicyRepo(p), channels)

	// Keep the channel inside the hold band so ticks never write
	for i := 0; i < 5; i++ {
		ingestN(uc, "g1", "c1", 15, testNow)
		require.NoError(t, uc.Tick(context.Background(), testNow))
		uc.Cache().Forget("c1")
	}
	require.Len(t, channels.sent, 1)
	require.Empty(t, channels.sets)
	return uc, channels, channels.sent[0]
}

func controlFor(report *domain.Report, d domain.Direction) domain.Control {
	return domain.Control{Direction: d, ChannelID: report.ChannelID, ReportID: report.ID}
}

func TestSlowmodeUsecase_OverrideIncrease(t *testing.T) {
	uc, channels, report := reportedUsecase(t, 4)

	res, err := uc.Override(context.Background(), OverrideRequest{
		GuildID:           "g1",
		ActorID:           "mod",
		Control:           controlFor(report, domain.DirectionIncrease),
		CanManageChannels: true,
	})
	require.NoError(t, err)
	assert.True(t, res.Changed())
	assert.Equal(t, 4, res.Previous)
	assert.Equal(t, 5, res.Current)

	require.Len(t, channels.sets, 1)
	assert.Equal(t, "Manual increase via report control", channels.sets[0].Reason)
}

func TestSlowmodeUsecase_OverrideDecrease(t *testing.T) {
	uc, channels, report := reportedUsecase(t, 4)

	res, err := uc.Override(context.Background(), OverrideRequest{
		GuildID:           "g1",
		Control:           controlFor(report, domain.DirectionDecrease),
		CanManageChannels: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Current)
	assert.Equal(t, 3, channels.delays["c1"])
}

func TestSlowmodeUsecase_OverrideForbidden(t *testing.T) {
	uc, channels, report := reportedUsecase(t, 4)

	_, err := uc.Override(context.Background(), OverrideRequest{
		GuildID:           "g1",
		ActorID:           "random",
		Control:           controlFor(report, domain.DirectionIncrease),
		CanManageChannels: false,
	})
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	assert.Empty(t, channels.sets)
	assert.Equal(t, 4, channels.delays["c1"])
}

func TestSlowmodeUsecase_OverrideStale(t *testing.T) {
	uc, channels, report := reportedUsecase(t, 4)

	stale := controlFor(report, domain.DirectionIncrease)
	stale.ReportID = "superseded"
	_, err := uc.Override(context.Background(), OverrideRequest{
		GuildID:           "g1",
		Control:           stale,
		CanManageChannels: true,
	})
	assert.ErrorIs(t, err, domain.ErrStaleControl)

	_, err = uc.Override(context.Background(), OverrideRequest{
		GuildID:           "other-guild",
		Control:           controlFor(report, domain.DirectionIncrease),
		CanManageChannels: true,
	})
	assert.ErrorIs(t, err, domain.ErrStaleControl)
	assert.Empty(t, channels.sets)
}

func TestSlowmodeUsecase_OverrideAtBound(t *testing.T) {
	uc, channels, report := reportedUsecase(t, 10)

	res, err := uc.Override(context.Background(), OverrideRequest{
		GuildID:           "g1",
		Control:           controlFor(report, domain.DirectionIncrease),
		CanManageChannels: true,
	})
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.Empty(t, channels.sets)
}

func TestSlowmodeUsecase_OverrideWithoutReport(t *testing.T) {
	uc := newTestUsecase(newMockPolicyRepo(testPolicy("g1", "c1")), newMockChannelRepo())

	_, err := uc.Override(context.Background(), OverrideRequest{
		GuildID: "g1",
		Control: domain.Control{
			Direction: domain.DirectionIncrease,
			ChannelID: "c1",
			ReportID:  "anything",
		},
		CanManageChannels: true,
	})
	assert.ErrorIs(t, err, domain.ErrStaleControl)
}
