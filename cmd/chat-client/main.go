package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Rida-Lamiini/Chat-app/internal/api"
	"github.com/Rida-Lamiini/Chat-app/internal/auth"
	"github.com/Rida-Lamiini/Chat-app/internal/config"
	"github.com/Rida-Lamiini/Chat-app/internal/logger"
	"github.com/Rida-Lamiini/Chat-app/internal/metrics"
	"github.com/Rida-Lamiini/Chat-app/internal/presence"
	"github.com/Rida-Lamiini/Chat-app/internal/storage"
	"github.com/Rida-Lamiini/Chat-app/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}
	dev := cfg.App.Env == "development"

	log, err := logger.New(dev)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	// Mongo
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Fatalf("mongo connect: %v", err)
	}
	docs := store.NewMongoStore(mc.Database(cfg.Mongo.Database), log)

	// S3
	blobs, err := storage.NewS3Store(context.Background(), cfg.AWS.Region, cfg.AWS.Bucket)
	if err != nil {
		log.Fatalf("s3 init: %v", err)
	}

	// Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}
	pres := presence.NewTracker(rdb)

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.TokenTTL)
	authSvc := auth.NewService(docs, blobs, tokens)

	srv := api.NewServer(docs, blobs, authSvc, tokens, pres, log)
	app := srv.App()

	// metrics on its own listener
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.MetricsPort)
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Errorf("metrics listen: %v", err)
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		log.Infof("starting chat client bridge on %s", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Info("shutdown requested")
	timeoutCtx, cancel2 := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel2()

	_ = app.Shutdown()
	_ = rdb.Close()
	_ = mc.Disconnect(timeoutCtx)
	log.Info("shutdown completed")
}
