package data

import (
	"fmt"
	"time"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/repo"
	"github.com/redis/go-redis/v9"
)

// policyCacheSize bounds the number of guild policies held in memory
const policyCacheSize = 10_000

// Options contains repository construction options
type Options struct {
	DBPath          string
	PolicyCacheTTL  time.Duration
	WritesPerSecond float64

	Discord DiscordAPI

	// Optional: report mirror
	Feishu       RichTextSender
	FeishuChatID string

	// Optional: shared survey lock
	Redis       *redis.Client
	RedisPrefix string
	SurveyTTL   time.Duration
}

// Repositories contains all repositories
type Repositories struct {
	Policy     repo.PolicyRepo
	Channel    repo.ChannelRepo
	Mirror     repo.ReportMirror // nil when no mirror is configured
	SurveyLock repo.SurveyLock
}

// NewRepositories creates all repositories
func NewRepositories(opts Options) (*Repositories, error) {
	if opts.Discord == nil {
		return nil, fmt.Errorf("discord client is required")
	}

	policyRepo, err := NewPolicyRepo(opts.DBPath)
	if err != nil {
		return nil, err
	}

	repos := &Repositories{
		Policy:     NewCachedPolicyRepo(policyRepo, policyCacheSize, opts.PolicyCacheTTL),
		Channel:    NewDiscordRepo(opts.Discord, opts.WritesPerSecond),
		SurveyLock: NewMemSurveyLock(),
	}

	if opts.Feishu != nil && opts.FeishuChatID != "" {
		repos.Mirror = NewFeishuMirror(opts.Feishu, opts.FeishuChatID)
	}

	if opts.Redis != nil {
		repos.SurveyLock = NewRedisSurveyLock(opts.Redis, opts.RedisPrefix, opts.SurveyTTL)
	}

	return repos, nil
}

// Close releases repository resources
func (r *Repositories) Close() error {
	return r.Policy.Close()
}
