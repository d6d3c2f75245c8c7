package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/signage-pairing/internal/config"
	"github.com/iliyamo/signage-pairing/internal/handler"
	"github.com/iliyamo/signage-pairing/internal/logger"
	"github.com/iliyamo/signage-pairing/internal/metrics"
	"github.com/iliyamo/signage-pairing/internal/notify"
	"github.com/iliyamo/signage-pairing/internal/queue"
	"github.com/iliyamo/signage-pairing/internal/router"
	"github.com/iliyamo/signage-pairing/internal/scheduler"
	"github.com/iliyamo/signage-pairing/internal/service"
	"github.com/iliyamo/signage-pairing/internal/utils"
)

func main() {
	_ = godotenv.Load() // .env is optional
	cfg := config.Load()

	log := logger.New(cfg.Env, cfg.LogLevel)
	defer func() { _ = log.Sync() }()
	metrics.MustRegister()

	st, err := openStores(cfg, log)
	if err != nil {
		log.Fatal("open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer st.Close()

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL, time.Now)
	events, closeEvents := buildEvents(cfg, log)
	defer closeEvents()

	auth := service.NewAuthService(st.users, tokens, cfg.BcryptCost, time.Now, log)
	pairing := service.NewPairingService(st.pairings, st.players, tokens, events, time.Now, log)
	players := service.NewPlayerService(st.players, tokens, events, service.PlayerOptions{
		LivenessWindow:    cfg.LivenessWindow,
		RefreshInterval:   cfg.RefreshInterval,
		DefaultContentURL: cfg.DefaultContentURL,
	}, time.Now, log)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Info("redis unavailable; rate limiting and response cache disabled")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	e := router.New(router.Deps{
		Auth:      handler.NewAuthHandler(auth, log),
		Pairing:   handler.NewPairingHandler(pairing, log),
		Players:   handler.NewPlayerHandler(players, log),
		Health:    &handler.HealthHandler{Players: players, Log: log},
		Tokens:    tokens,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Log:       log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweep := scheduler.NewLivenessSweep(players, cfg.SweepSchedule, log)
	if err := sweep.Start(); err != nil {
		log.Fatal("start liveness sweep", zap.Error(err))
	}

	if cfg.ConsumerEnabled && cfg.AMQPURL != "" {
		consumer := queue.NewConsumer(cfg.AMQPURL, cfg.EventsLogDir, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("event consumer stopped", zap.Error(err))
			}
		}()
	}

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	sweep.Stop(shutdownCtx)
}

// buildEvents fans domain events out to RabbitMQ and MQTT when configured.
// The returned func releases broker connections.
func buildEvents(cfg config.Config, log *zap.Logger) (service.Events, func()) {
	var sinks service.MultiEvents
	var closers []func()

	if cfg.AMQPURL != "" {
		pub := queue.NewPublisher(queue.AMQPDialer(cfg.AMQPURL), log)
		sinks = append(sinks, pub)
		closers = append(closers, pub.Wait)
		log.Info("publishing domain events to rabbitmq")
	}
	if cfg.MQTTBroker != "" {
		client, err := notify.Connect(cfg.MQTTBroker, cfg.MQTTClientID)
		if err != nil {
			log.Warn("mqtt push disabled", zap.Error(err))
		} else {
			sinks = append(sinks, notify.NewMQTTNotifier(client, cfg.MQTTTopicPrefix, log))
			closers = append(closers, func() { client.Disconnect(250) })
			log.Info("pushing content updates over mqtt", zap.String("broker", cfg.MQTTBroker))
		}
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(sinks) == 0 {
		return service.NopEvents{}, closeAll
	}
	return sinks, closeAll
}
