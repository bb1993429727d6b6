// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jason-s-yu/jackpot/internal/auth"
	"github.com/jason-s-yu/jackpot/internal/cache"
	"github.com/jason-s-yu/jackpot/internal/config"
	"github.com/jason-s-yu/jackpot/internal/database"
	"github.com/jason-s-yu/jackpot/internal/game"
	"github.com/jason-s-yu/jackpot/internal/handlers"
	"github.com/jason-s-yu/jackpot/internal/lobby"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := logrus.New()

	// Check for migration subcommands
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := handleMigrationCommand(); err != nil {
			logger.Fatalf("Migration error: %v", err)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	registry, err := lobby.NewRegistry(cfg.Lobbies, cfg.DefaultLobby, logger)
	if err != nil {
		return err
	}

	expiry, err := auth.ParseExpiry(cfg.TokenExpireTime)
	if err != nil {
		return err
	}
	var signer *auth.Signer
	if cfg.TokenPrivateKey != "" && cfg.TokenPublicKey != "" {
		signer, err = auth.LoadSigner(cfg.TokenPrivateKey, cfg.TokenPublicKey, expiry)
	} else {
		logger.Warn("TOKEN_PRIVATE_KEY_PATH not set, generating an ephemeral signing key")
		signer, err = auth.NewSigner(expiry)
	}
	if err != nil {
		return err
	}

	hub := handlers.NewHub(registry, logger)
	opts := []game.Option{game.WithSource(game.NewSource(cfg.RNGSeed))}
	var rounds handlers.RoundLister

	if cfg.DatabaseURL != "" {
		if err := database.MigrateUp(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		db, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		opts = append(opts, game.WithStore(database.NewProfileStore(db)))
		rounds = database.NewRoundStore(db)
		logger.Info("Profiles persisted to postgres")
	} else {
		logger.Warn("DATABASE_URL not set, profiles are kept in memory")
	}

	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		opts = append(opts, game.WithRoundRecorder(cache.NewRoundPublisher(rdb, cfg.QueueName)))
		logger.Infof("Publishing round history to redis queue %s", cfg.QueueName)
	}

	coord := game.NewCoordinator(game.Config{
		RoundDelay:        cfg.RoundDelay,
		ReadyGrace:        cfg.ReadyGrace,
		StartBalance:      cfg.StartBalance,
		BotMultiplier:     cfg.BotMultiplier,
		AdminIDs:          cfg.AdminIDs,
		RequireAdminToken: cfg.AdminRequireToken,
	}, registry, hub, logger, opts...)

	if err := coord.LoadProfiles(ctx); err != nil {
		return err
	}
	if err := coord.SpawnBots(cfg.BotCount); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.SetupRoutes(logger, coord, hub, signer, rounds),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Received shutdown signal, shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	closeErr := coord.Close(shutdownCtx)
	hub.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP shutdown incomplete")
	}
	return closeErr
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: server migrate [up|down] [steps]")
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch os.Args[2] {
	case "up":
		return database.MigrateUp(url)
	case "down":
		steps := 1
		if len(os.Args) > 3 {
			n, err := strconv.Atoi(os.Args[3])
			if err != nil {
				return fmt.Errorf("invalid steps %q: %w", os.Args[3], err)
			}
			steps = n
		}
		return database.MigrateDown(url, steps)
	default:
		return fmt.Errorf("unknown migration command: %s", os.Args[2])
	}
}
