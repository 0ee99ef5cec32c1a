package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/authz"
	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/internal/middleware"
	"storefront/internal/order"
	"storefront/internal/orderdetail"
	"storefront/internal/payment"
	"storefront/internal/queue"
	"storefront/internal/router"
	"storefront/internal/store"
	rediskey "storefront/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	rd "github.com/redis/go-redis/v9"
)

func main() {
	log.Logger = log.With().Str("service", "storefront").Logger()
	zerolog.DefaultContextLogger = &log.Logger

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db open")
	}
	if err := store.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	var rdb *rd.Client
	if cfg.RedisAddr != "" {
		rdb = rd.NewClient(&rd.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping")
		}
	}

	// Events go through the Redis stream when Redis is up, straight to Kafka when
	// only Kafka is configured, and to the log otherwise.
	var pub events.Publisher = events.LogPublisher{}
	var producer *queue.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		pub = producer

		consumer := queue.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaAuditGroup, db)
		defer consumer.Close()
		go consumer.Run(ctx)
	}
	if rdb != nil {
		var sink events.Publisher = events.LogPublisher{}
		if producer != nil {
			sink = producer
		}
		relay := queue.NewRelay(rdb, sink, cfg.OrderEventStream, cfg.OrderEventGroup, cfg.OrderEventConsumer)
		go relay.Run(ctx)
		pub = queue.NewStreamPublisher(rdb, cfg.OrderEventStream)
	}

	az := authz.Roles{}
	opts := []payment.Option{}
	if rdb != nil {
		opts = append(opts,
			payment.WithDedup(rediskey.NewDedup(rdb), cfg.WebhookDedupTTL),
			payment.WithAttempts(rediskey.NewPaymentStates(rdb, cfg.WebhookDedupTTL)),
		)
	}
	deps := router.Deps{
		DB:         db,
		Redis:      rdb,
		Orders:     order.NewService(db, az, pub, cfg.PricingPolicy),
		Details:    orderdetail.NewService(db, az, pub),
		Payments:   payment.NewService(db, payment.NewMidtrans(cfg.MidtransServerKey, cfg.MidtransProduction), az, pub, cfg.MidtransServerKey, opts...),
		JWTSecret:  cfg.JWTSecret,
		RateLimit:  cfg.RateLimit,
		RateWindow: cfg.RateWindow,
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	router.Setup(r, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("db", cfg.DBDriver).Bool("redis", rdb != nil).Bool("kafka", producer != nil).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
}
