// Command server runs the booking API.
//
// @title        Booking API
// @version      1.0
// @description  Slot booking backend: owners publish sessions of time slots, guests book them through a public link.
// @BasePath     /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/config"
	httpapi "github.com/tbourn/go-booking-backend/internal/http"
	"github.com/tbourn/go-booking-backend/internal/notify"
	"github.com/tbourn/go-booking-backend/internal/observability"
	"github.com/tbourn/go-booking-backend/internal/repo"
	"github.com/tbourn/go-booking-backend/internal/sysutil"
	"github.com/tbourn/go-booking-backend/internal/worker"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Error().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(cfg.DB.Driver, cfg.DB.Target())
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	dispatcher, closeNotify := buildNotifier(ctx, cfg, db)
	defer closeNotify()

	observers := notify.Multi{dispatcher}
	if cfg.AMQP.URL != "" {
		pub, err := notify.DialEventPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Error().Err(err).Msg("amqp unavailable, booking events disabled")
		} else {
			defer func() { _ = pub.Close() }()
			observers = append(observers, pub)
			log.Info().Str("exchange", cfg.AMQP.Exchange).Msg("publishing booking events")
		}
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, observers, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	var wg sync.WaitGroup
	if cfg.Reminder.Enabled {
		rem := &worker.Reminder{Sweeper: dispatcher, Interval: cfg.Reminder.Interval}
		wg.Add(1)
		go func() {
			defer wg.Done()
			rem.Run(ctx)
		}()
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http shutdown")
		}
	}()

	log.Info().Str("addr", srv.Addr).Str("version", version).Msg("booking API listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("http server")
		stop()
	}
	wg.Wait()
	log.Info().Msg("bye")
}

func setupLogging(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// buildNotifier wires the Telegram dispatcher and its reminder ledger. Redis
// backs the ledger when reachable, otherwise claims stay in memory.
func buildNotifier(ctx context.Context, cfg config.Config, db *gorm.DB) (*notify.Dispatcher, func()) {
	var sender notify.Sender
	tg := notify.NewTelegramClient(cfg.Telegram.BotToken, cfg.Telegram.APIURL, cfg.Telegram.Timeout)
	switch {
	case tg.Enabled():
		sender = tg
	case cfg.Telegram.BotToken != "":
		log.Error().Err(tg.Err()).Msg("telegram client unusable, notifications disabled")
	default:
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set, notifications disabled")
	}

	var (
		ledger  notify.ReminderLedger = notify.NewMemoryLedger()
		closeFn                       = func() {}
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pctx).Err()
		cancel()
		if err != nil {
			log.Error().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, using in-memory reminder ledger")
			_ = rdb.Close()
		} else {
			ledger = &notify.RedisLedger{Client: rdb}
			closeFn = func() { _ = rdb.Close() }
		}
	}

	d := notify.NewDispatcher(db, sender, ledger, cfg.Telegram.Timeout)
	d.Location = cfg.Telegram.Location
	return d, closeFn
}
