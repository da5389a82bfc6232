package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"vpn-subscription-bot/internal/config"
	"vpn-subscription-bot/internal/domain/ports/adapter"
	tele "vpn-subscription-bot/internal/infra/adapters/telegram"
	pg "vpn-subscription-bot/internal/infra/db/postgres"
	opshttp "vpn-subscription-bot/internal/infra/http"
	"vpn-subscription-bot/internal/infra/i18n"
	"vpn-subscription-bot/internal/infra/logging"
	"vpn-subscription-bot/internal/infra/metrics"
	red "vpn-subscription-bot/internal/infra/redis"
	"vpn-subscription-bot/internal/infra/scheduler"
	"vpn-subscription-bot/internal/usecase"
)

// Set via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted fields)")
	mintToken := flag.String("mint-admin-token", "", "print an ops admin token for the given subject and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	auth := opshttp.NewAuthManager(cfg.HTTP.AdminSecret, cfg.HTTP.TokenTTL)
	if *mintToken != "" {
		tok, err := auth.Mint(*mintToken)
		if err != nil {
			logger.Fatal().Err(err).Msg("mint admin token")
		}
		fmt.Println(tok)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	logger.Info().Str("version", version).Str("mode", cfg.Bot.Mode).Bool("dev", cfg.Runtime.Dev).Msg("starting")

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Bot.Language)
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}

	// ---- Repositories ----
	subRepo := pg.NewSubscriptionRepo(pool)
	serverRepo := pg.NewServerRepo(pool)
	promoRepo := pg.NewPromocodeRepoCacheDecorator(pg.NewPromocodeRepo(pool), redisClient, logger)
	stateRepo := red.NewStateRepo(redisClient, cfg.Redis.TTL, logger)
	locker := red.NewLocker(redisClient)

	// ---- Telegram ----
	var (
		notifier adapter.Notifier
		bot      *tele.RealTelegramBotAdapter
		gateways []adapter.PaymentGateway
	)
	if cfg.Bot.Mode == "noop" {
		logger.Warn().Msg("bot.mode=noop: updates are not polled and messages are only logged")
		notifier = tele.NewNoopBotAdapter(logger)
	} else {
		api, err := tele.NewBotAPI(&cfg.Bot)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
		gateways = paymentGateways(cfg.Shop.PaymentMethods, api, tr, logger)

		subFlow := usecase.NewSubscriptionFlow(subRepo, serverRepo, usecase.NewPlanCatalog(cfg.Shop), gateways, logger)
		promoFlow := usecase.NewPromocodeFlow(promoRepo, cfg.Shop.Durations, logger)
		bot, err = tele.NewRealTelegramBotAdapter(api, &cfg.Bot, cfg.Shop.ForceSubscription,
			tele.Flows{Subscription: subFlow, Promocode: promoFlow},
			stateRepo, locker, red.NewRateLimiter(redisClient), tr, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
		notifier = bot
	}

	// ---- Expiry notifications ----
	notifUC := usecase.NewNotificationUseCase(subRepo, notifier, tr,
		usecase.NewNotificationCache(usecase.DefaultNotificationCacheCap), cfg.Notifications, logger)

	var lease *scheduler.Lease
	if cfg.Scheduler.LeaseKey != "" {
		lease = &scheduler.Lease{Locker: locker, Key: cfg.Scheduler.LeaseKey, TTL: cfg.Scheduler.LeaseTTL}
	}
	sched := scheduler.NewScheduler("expiry_notifications", cfg.Notifications.CheckInterval(), notifUC, lease, logger)
	if cfg.Notifications.Enabled {
		sched.Start(ctx)
	} else {
		logger.Info().Msg("expiry notifications disabled")
	}

	// ---- Background loops ----
	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Str("loop", name).Msg("stopped with error")
				stop()
			}
		}()
	}

	if bot != nil {
		run("telegram", bot.StartPolling)
	}
	run("pool_stats", func(ctx context.Context) error {
		pg.ReportPoolStats(ctx, pool, 30*time.Second)
		return nil
	})

	srv := opshttp.NewServer(cfg.HTTP, sched, auth, map[string]opshttp.Checker{
		"postgres": pool.Ping,
		"redis":    redisClient.Ping,
	}, logger)
	run("ops_http", srv.Run)

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")
	if bot != nil {
		bot.StopPolling()
	}
	sched.Stop()
	wg.Wait()
	logger.Info().Msg("bye")
}

func paymentGateways(methods []string, api *tgbotapi.BotAPI, tr adapter.Translator, logger *zerolog.Logger) []adapter.PaymentGateway {
	var out []adapter.PaymentGateway
	for _, m := range methods {
		switch m {
		case tele.StarsGatewayName:
			out = append(out, tele.NewStarsGateway(api, tr, logger))
		default:
			logger.Warn().Str("method", m).Msg("unknown payment method ignored")
		}
	}
	return out
}
