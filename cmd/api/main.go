package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/undercity/backend/internal/auth"
	"github.com/undercity/backend/internal/config"
	"github.com/undercity/backend/internal/contracts"
	"github.com/undercity/backend/internal/fight"
	"github.com/undercity/backend/internal/progress"
	"github.com/undercity/backend/internal/repository"
	"github.com/undercity/backend/internal/router"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running and db/schema.sql has been applied", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL")

	// River migrations (job queue tables only; game tables come from db/schema.sql)
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}

	// Repositories
	userRepo := repository.NewUserRepo(pool)
	characterRepo := repository.NewCharacterRepo(pool)
	contractRepo := repository.NewContractRepo(pool)
	hospitalRepo := repository.NewHospitalRepo(pool)
	statisticRepo := repository.NewStatisticRepo(pool)
	blackcoinRepo := repository.NewBlackcoinRepo(pool)
	bankRepo := repository.NewBankRepo(pool)

	// Progress propagation
	progressRepo := progress.NewRepository(pool)
	progressSvc := progress.NewService(progressRepo, characterRepo, statisticRepo, bankRepo, logger)

	if n, err := progress.SyncGoals(ctx, progressRepo, cfg.GoalsPath); err != nil {
		slog.Warn("Goal catalog sync failed (progress tracking will use existing goals)", "error", err)
	} else {
		slog.Info("Goal catalog synced", "goals", n)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, progress.NewReconcileWorker(progressSvc))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	enqueueReconcile := func(ctx context.Context, tx pgx.Tx, args progress.ReconcileArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}

	// Combat resolver
	seed := cfg.FightSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	resolver := fight.NewSimResolver(characterRepo, seed)

	// Settlement engine
	settlementSvc := contracts.NewService(
		pool,
		characterRepo,
		contractRepo,
		userRepo,
		hospitalRepo,
		statisticRepo,
		blackcoinRepo,
		resolver,
		enqueueReconcile,
		logger,
	)
	contractsHandler := contracts.NewHandler(settlementSvc, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authSvc := auth.NewService(authRepo, cfg.JWTSecret)
	authHandler := auth.NewHandler(authSvc, logger)

	apiRouter := router.New(authHandler, contractsHandler, authSvc)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(apiRouter)

	// Start River client (runs progress reconciliation jobs)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	serverAddr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", serverAddr)
	if err := http.ListenAndServe(serverAddr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
