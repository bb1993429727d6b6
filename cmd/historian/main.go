// cmd/historian/main.go is an asynchronous historian service that pops round
// records from a Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/jackpot/internal/cache"
	"github.com/jason-s-yu/jackpot/internal/config"
	"github.com/jason-s-yu/jackpot/internal/database"
	"github.com/jason-s-yu/jackpot/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.LoadHistorian()
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.MigrateUp(cfg.DatabaseURL); err != nil {
		logger.Fatalf("migrate: %v", err)
	}
	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	svc := historian.NewService(rdb, database.NewRoundStore(db), historian.Config{
		Queue:      cfg.QueueName,
		BatchSize:  cfg.BatchSize,
		FlushDelay: cfg.FlushDelay,
	}, logger)

	logger.Infof("Historian consuming %s", cfg.QueueName)
	svc.Run(ctx)
	logger.Info("Historian stopped")
}
