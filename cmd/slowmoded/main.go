package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DevRickLin/adaptive-slowmode/internal/api"
	"github.com/DevRickLin/adaptive-slowmode/internal/biz"
	"github.com/DevRickLin/adaptive-slowmode/internal/biz/domain"
	"github.com/DevRickLin/adaptive-slowmode/internal/biz/usecase"
	"github.com/DevRickLin/adaptive-slowmode/internal/conf"
	"github.com/DevRickLin/adaptive-slowmode/internal/data"
	"github.com/DevRickLin/adaptive-slowmode/internal/infra/discord"
	"github.com/DevRickLin/adaptive-slowmode/internal/infra/feishu"
	"github.com/DevRickLin/adaptive-slowmode/internal/server"
	"github.com/DevRickLin/adaptive-slowmode/internal/service"
	"github.com/carlmjohnson/versioninfo"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v2"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	app := cli.App{
		Name:    "slowmoded",
		Usage:   "adaptive slowmode daemon for Discord",
		Version: versioninfo.Short(),
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:   "run",
	Usage:  "run the controller",
	Flags:  conf.Flags(),
	Action: runDaemon,
}

func newLogger(debug bool) *slog.Logger {
	if debug {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func runDaemon(cctx *cli.Context) error {
	cfg := conf.FromCLI(cctx)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg.Debug)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize clients
	discordClient, err := discord.NewClient(cfg.Discord.Token, logger)
	if err != nil {
		return err
	}

	opts := data.Options{
		DBPath:          cfg.Store.DBPath,
		PolicyCacheTTL:  cfg.Store.PolicyCacheTTL,
		WritesPerSecond: cfg.Discord.WriteRate,
		Discord:         discordClient,
		RedisPrefix:     cfg.Redis.Prefix,
		SurveyTTL:       domain.SurveyWindow + time.Minute,
	}

	if cfg.MirrorEnabled() {
		opts.Feishu = feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, logger)
		opts.FeishuChatID = cfg.Feishu.MirrorChatID
		logger.Info("feishu report mirror enabled", "chat_id", cfg.Feishu.MirrorChatID)
	}

	if cfg.Redis.URL != "" {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		rdb := redis.NewClient(redisOpts)
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		opts.Redis = rdb
		logger.Info("using redis survey lock", "prefix", cfg.Redis.Prefix)
	}

	// Initialize repository layer
	repos, err := data.NewRepositories(opts)
	if err != nil {
		return fmt.Errorf("failed to create repositories: %w", err)
	}
	defer repos.Close()
	logger.Info("policy store opened", "path", cfg.Store.DBPath)

	// Initialize usecase layer
	ucs := &biz.Usecases{
		Slowmode: usecase.NewSlowmodeUsecase(repos.Policy, repos.Channel, repos.Mirror, repos.SurveyLock, cfg.ToControllerConfig(), logger),
		Policy:   usecase.NewPolicyUsecase(repos.Policy),
	}

	// Initialize service layer
	scheduler := service.NewSlowmodeScheduler(ucs.Slowmode, cfg.Controller.TickInterval, logger)
	surveys := service.NewSurveyRunner(ucs.Slowmode, logger)

	// Initialize HTTP admin API
	apiServer := api.NewServer(ucs.Policy, ucs.Slowmode, surveys, cfg.API.Listen, logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("admin API stopped", "err", err)
		}
	}()
	logger.Info("admin API listening", "addr", cfg.API.Listen)

	// Initialize server
	srv := server.NewDiscordServer(discordClient, ucs.Slowmode, logger)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start discord server: %w", err)
	}
	scheduler.Start(ctx)

	logger.Info("adaptive slowmode started",
		"version", versioninfo.Short(),
		"tick_interval", cfg.Controller.TickInterval,
		"report_every", cfg.Controller.ReportEvery,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	scheduler.Stop()
	surveys.Stop()
	srv.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("admin API shutdown", "err", err)
	}
	return nil
}
