package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlowmodeUsecase_Survey(t *testing.T) {
	p := domain.DefaultGuildPolicy("g1")
	p.ReportChannelID = "log"
	policies := newMockPolicyRepo(p)
	channels := newMockChannelRepo()
	uc := newTestUsecase(policies, channels)

	uc.surveyWait = func(ctx context.Context, d time.Duration) error {
		assert.Equal(t, domain.SurveyWindow, d)
		assert.True(t, uc.SurveyRunning("c1"))
		ingestN(uc, "g1", "c1", 300, testNow)
		// Bots and other channels are not counted
		uc.Ingest(ctx, MessageEvent{GuildID: "g1", ChannelID: "c1", At: testNow, IsHuman: false})
		ingestN(uc, "g1", "c2", 10, testNow)
		return nil
	}

	res, err := uc.Survey(context.Background(), "g1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 300, res.MessageCount)
	assert.Equal(t, 60.0, res.Rate)
	assert.Equal(t, 60, res.Target)
	assert.Equal(t, 2, res.MinDelay)
	assert.Equal(t, 10, res.MaxDelay)
	assert.False(t, uc.SurveyRunning("c1"))

	saved := policies.policies["g1"]
	assert.Equal(t, 60, saved.Target)
	assert.Equal(t, 2, saved.MinDelay)
	assert.Equal(t, 10, saved.MaxDelay)
	assert.True(t, saved.Monitors("c1"))

	require.Len(t, channels.texts, 1)
	assert.Contains(t, channels.texts[0], "<#c1>")
	assert.Contains(t, channels.texts[0], "300 messages")
}

func TestSlowmodeUsecase_SurveyQuietChannel(t *testing.T) {
	policies := newMockPolicyRepo()
	channels := newMockChannelRepo()
	uc := newTestUsecase(policies, channels)
	uc.surveyWait = func(ctx context.Context, d time.Duration) error { return nil }

	res, err := uc.Survey(context.Background(), "g1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Target)
	assert.Equal(t, 0, res.MinDelay)
	assert.Equal(t, 5, res.MaxDelay)
	// No report destination, nothing posted
	assert.Empty(t, channels.texts)
}

func TestSlowmodeUsecase_SurveyExclusive(t *testing.T) {
	uc := newTestUsecase(newMockPolicyRepo(), newMockChannelRepo())

	started := make(chan struct{})
	finish := make(chan struct{})
	uc.surveyWait = func(ctx context.Context, d time.Duration) error {
		close(started)
		<-finish
		return nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := uc.Survey(context.Background(), "g1", "c1")
		done <- err
	}()
	<-started

	_, err := uc.Survey(context.Background(), "g1", "c1")
	assert.ErrorIs(t, err, domain.ErrSurveyRunning)

	close(finish)
	require.NoError(t, <-done)
}

func TestSlowmodeUsecase_SurveyCanceled(t *testing.T) {
	policies := newMockPolicyRepo()
	uc := newTestUsecase(policies, newMockChannelRepo())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := uc.Survey(ctx, "g1", "c1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, policies.policies)
	assert.False(t, uc.SurveyRunning("c1"))

	// The lock was released, so a new survey can start
	uc.surveyWait = func(ctx context.Context, d time.Duration) error { return nil }
	_, err = uc.Survey(context.Background(), "g1", "c1")
	assert.NoError(t, err)
}

func TestFormatSurveyResult(t *testing.T) {
	r := domain.Calibrate(1)
	r.ChannelID = "c1"
	text := FormatSurveyResult(r)
	assert.Contains(t, text, "1 message in 5 minutes")
	assert.Contains(t, text, "bounds 0-5s")
}
