package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-service/bookstore/config"
	"github.com/Astemirdum/bookstore-service/bookstore/internal/cache"
	"github.com/Astemirdum/bookstore-service/bookstore/internal/handler"
	"github.com/Astemirdum/bookstore-service/bookstore/internal/repository"
	"github.com/Astemirdum/bookstore-service/bookstore/internal/server"
	"github.com/Astemirdum/bookstore-service/bookstore/internal/service"
	"github.com/Astemirdum/bookstore-service/bookstore/migrations"
	"github.com/Astemirdum/bookstore-service/pkg/auth0"
	"github.com/Astemirdum/bookstore-service/pkg/kafka"
	"github.com/Astemirdum/bookstore-service/pkg/logger"
	"github.com/Astemirdum/bookstore-service/pkg/postgres"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "bookstore")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		log.Fatal("repo", zap.Error(err))
	}

	opts := []service.Option{service.WithAdminKey(cfg.Bookstore.AdminKey)}

	if cfg.Redis.Enabled() {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		opts = append(opts, service.WithCache(cache.NewRedisPopularCache(rdb, cfg.Redis.TTL)))
	} else {
		log.Info("redis not configured, popular books are not cached")
	}

	consumed := make(chan struct{})
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			log.Fatal("kafka.NewProducer", zap.Error(err))
		}
		defer producer.Close()
		opts = append(opts, service.WithEnqueuer(kafka.NewEnqueuer(producer)))
	} else {
		log.Info("kafka not configured, book events are dropped")
	}

	svc := service.NewService(repo, log, opts...)

	if cfg.Kafka.Enabled() {
		consumer, err := kafka.NewConsumer(cfg.Kafka, kafka.EventsConsumerGroup)
		if err != nil {
			log.Fatal("kafka.NewConsumer", zap.Error(err))
		}
		go func() {
			defer close(consumed)
			if err := kafka.Consume(ctx, consumer, handler.NewConsumer(svc.SaveEvent, log), kafka.EventsTopic); err != nil {
				log.Error("kafka.Consume", zap.Error(err))
			}
			if err := consumer.Close(); err != nil {
				log.Error("consumer.Close", zap.Error(err))
			}
		}()
	} else {
		close(consumed)
	}

	tokens, err := auth0.NewValidator(cfg.Auth0)
	if err != nil {
		log.Fatal("auth0", zap.Error(err))
	}

	h := handler.New(svc, log,
		handler.WithTokenValidator(tokens),
		handler.WithEnforceAdmin(cfg.Bookstore.EnforceAdmin),
	)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second*5)
	defer closeCancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	cancel()
	select {
	case <-consumed:
	case <-closeCtx.Done():
		log.Warn("consumer did not stop in time")
	}
	db.Close()
	log.Info("Graceful shutdown finished")
}
