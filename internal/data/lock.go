package data

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/domain"
	"github.com/DevRickLin/adaptive-slowmode/internal/biz/repo"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// memSurveyLock is a process-local survey lock
type memSurveyLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemSurveyLock creates a process-local survey lock
func NewMemSurveyLock() repo.SurveyLock {
	return &memSurveyLock{held: make(map[string]struct{})}
}

func (l *memSurveyLock) Acquire(ctx context.Context, channelID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[channelID]; ok {
		return nil, domain.ErrSurveyRunning
	}
	l.held[channelID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.held, channelID)
		})
	}, nil
}

// releaseScript deletes the lock only while it still holds the caller's token.
// KEYS[1] = lock key
// ARGV[1] = token set on acquire
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// redisSurveyLock shares survey exclusivity between daemon replicas
type redisSurveyLock struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisSurveyLock creates a survey lock backed by SET NX with an expiry.
// The expiry bounds how long a crashed holder blocks new surveys.
func NewRedisSurveyLock(client *redis.Client, prefix string, ttl time.Duration) repo.SurveyLock {
	return &redisSurveyLock{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: slog.Default().With("component", "survey-lock"),
	}
}

func (l *redisSurveyLock) key(channelID string) string {
	return l.prefix + "/survey/" + channelID
}

func (l *redisSurveyLock) Acquire(ctx context.Context, channelID string) (func(), error) {
	key := l.key(channelID)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire survey lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrSurveyRunning
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The survey context may be done already
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
			switch {
			case err != nil:
				l.logger.Warn("failed to release survey lock", "channel", channelID, "err", err)
			case n == 0:
				l.logger.Warn("survey lock expired before release", "channel", channelID)
			}
		})
	}, nil
}
