package conf

import (
	"os"
	"path/filepath"
	"time"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/usecase"
	cli "github.com/urfave/cli/v2"
)

// Config represents application configuration
type Config struct {
	// Discord configuration
	Discord DiscordConfig

	// Feishu report mirror configuration (optional)
	Feishu FeishuConfig

	// Policy store configuration
	Store StoreConfig

	// Redis configuration (optional)
	Redis RedisConfig

	// Controller configuration
	Controller ControllerConfig

	// Admin API configuration
	API APIConfig

	// Debug mode
	Debug bool
}

// DiscordConfig contains Discord configuration
type DiscordConfig struct {
	Token     string
	WriteRate float64 // Max REST writes per second, 0 for no limit
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID        string
	AppSecret    string
	MirrorChatID string // Chat receiving report copies
}

// StoreConfig contains policy store configuration
type StoreConfig struct {
	DBPath         string
	PolicyCacheTTL time.Duration
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	URL    string
	Prefix string
}

// ControllerConfig contains controller loop configuration
type ControllerConfig struct {
	TickInterval  time.Duration
	ReportEvery   int
	CacheCapacity int
}

// APIConfig contains admin API configuration
type APIConfig struct {
	Listen string
}

func defaultDBPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".slowmode", "policies.db")
}

// Flags returns the command line flags of the daemon, each bound to an environment variable
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "discord-token",
			Usage:   "bot token used for the gateway and REST API",
			EnvVars: []string{"DISCORD_TOKEN"},
		},
		&cli.Float64Flag{
			Name:    "discord-write-rate",
			Usage:   "max Discord REST writes per second (0 disables throttling)",
			Value:   5,
			EnvVars: []string{"SLOWMODE_DISCORD_WRITE_RATE"},
		},
		&cli.StringFlag{
			Name:    "db-path",
			Usage:   "path of the SQLite policy database",
			Value:   defaultDBPath(),
			EnvVars: []string{"SLOWMODE_DB_PATH"},
		},
		&cli.DurationFlag{
			Name:    "policy-cache-ttl",
			Usage:   "how long guild policies are cached in memory",
			Value:   30 * time.Second,
			EnvVars: []string{"SLOWMODE_POLICY_CACHE_TTL"},
		},
		&cli.DurationFlag{
			Name:    "tick-interval",
			Usage:   "interval between controller sweeps",
			Value:   time.Minute,
			EnvVars: []string{"SLOWMODE_TICK_INTERVAL"},
		},
		&cli.IntFlag{
			Name:    "report-every",
			Usage:   "publish activity reports every N sweeps",
			Value:   5,
			EnvVars: []string{"SLOWMODE_REPORT_EVERY"},
		},
		&cli.IntFlag{
			Name:    "cache-capacity",
			Usage:   "max cached events per channel",
			Value:   usecase.DefaultCacheCapacity,
			EnvVars: []string{"SLOWMODE_CACHE_CAPACITY"},
		},
		&cli.StringFlag{
			Name:    "api-listen",
			Usage:   "IP or address, and port, to listen on for the admin API and metrics",
			Value:   "127.0.0.1:9877",
			EnvVars: []string{"SLOWMODE_API_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis URL for the shared survey lock (optional)",
			EnvVars: []string{"REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "redis-prefix",
			Usage:   "key prefix for redis entries",
			Value:   "slowmode",
			EnvVars: []string{"SLOWMODE_REDIS_PREFIX"},
		},
		&cli.StringFlag{
			Name:    "feishu-app-id",
			EnvVars: []string{"FEISHU_APP_ID"},
		},
		&cli.StringFlag{
			Name:    "feishu-app-secret",
			EnvVars: []string{"FEISHU_APP_SECRET"},
		},
		&cli.StringFlag{
			Name:    "feishu-mirror-chat-id",
			Usage:   "Feishu chat receiving copies of activity reports (optional)",
			EnvVars: []string{"FEISHU_MIRROR_CHAT_ID"},
		},
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "enable debug logging",
			EnvVars: []string{"DEBUG"},
		},
	}
}

// FromCLI builds the configuration from parsed flags
func FromCLI(cctx *cli.Context) *Config {
	return &Config{
		Discord: DiscordConfig{
			Token:     cctx.String("discord-token"),
			WriteRate: cctx.Float64("discord-write-rate"),
		},
		Feishu: FeishuConfig{
			AppID:        cctx.String("feishu-app-id"),
			AppSecret:    cctx.String("feishu-app-secret"),
			MirrorChatID: cctx.String("feishu-mirror-chat-id"),
		},
		Store: StoreConfig{
			DBPath:         cctx.String("db-path"),
			PolicyCacheTTL: cctx.Duration("policy-cache-ttl"),
		},
		Redis: RedisConfig{
			URL:    cctx.String("redis-url"),
			Prefix: cctx.String("redis-prefix"),
		},
		Controller: ControllerConfig{
			TickInterval:  cctx.Duration("tick-interval"),
			ReportEvery:   cctx.Int("report-every"),
			CacheCapacity: cctx.Int("cache-capacity"),
		},
		API: APIConfig{
			Listen: cctx.String("api-listen"),
		},
		Debug: cctx.Bool("debug"),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return &ConfigError{Field: "DISCORD_TOKEN", Message: "required"}
	}
	if c.Discord.WriteRate < 0 {
		return &ConfigError{Field: "SLOWMODE_DISCORD_WRITE_RATE", Message: "must not be negative"}
	}
	if c.Store.DBPath == "" {
		return &ConfigError{Field: "SLOWMODE_DB_PATH", Message: "required"}
	}
	if c.Controller.TickInterval <= 0 {
		return &ConfigError{Field: "SLOWMODE_TICK_INTERVAL", Message: "must be positive"}
	}
	if c.Controller.ReportEvery <= 0 {
		return &ConfigError{Field: "SLOWMODE_REPORT_EVERY", Message: "must be positive"}
	}
	if c.Controller.CacheCapacity <= 0 {
		return &ConfigError{Field: "SLOWMODE_CACHE_CAPACITY", Message: "must be positive"}
	}
	if c.Feishu.MirrorChatID != "" && (c.Feishu.AppID == "" || c.Feishu.AppSecret == "") {
		return &ConfigError{Field: "FEISHU_APP_ID", Message: "FEISHU_APP_ID and FEISHU_APP_SECRET are required for the report mirror"}
	}
	return nil
}

// MirrorEnabled checks if reports should be copied to Feishu
func (c *Config) MirrorEnabled() bool {
	return c.Feishu.MirrorChatID != ""
}

// ToControllerConfig converts to the usecase controller configuration
func (c *Config) ToControllerConfig() usecase.ControllerConfig {
	return usecase.ControllerConfig{
		ReportEvery:   c.Controller.ReportEvery,
		CacheCapacity: c.Controller.CacheCapacity,
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
