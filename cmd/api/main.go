package main

import (
	"context"
	"log"

	"github.com/adorable-labs/adorable-backend/config"
	"github.com/adorable-labs/adorable-backend/internal/auth"
	"github.com/adorable-labs/adorable-backend/internal/bootstrap"
	"github.com/adorable-labs/adorable-backend/internal/generation"
	"github.com/adorable-labs/adorable-backend/internal/session"
	"github.com/adorable-labs/adorable-backend/internal/workspace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	db, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{
		DSN:      cfg.Database.DSN,
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb, err := bootstrap.OpenRedis(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	verifier, err := auth.InitializeFirebase(&cfg.Firebase)
	if err != nil {
		log.Fatalf("firebase: %v", err)
	}

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:   "adorable-backend",
		Version:       cfg.App.Version,
		DB:            db,
		Redis:         rdb,
		WorkspaceRoot: cfg.Workspace.Root,
		Verifier:      verifier,
		Workspaces:    workspace.NewManager(&cfg.Workspace),
		Engine:        generation.NewClient(&cfg.Engine),
		Tracker:       session.NewRedisTracker(rdb),
	})

	log.Printf("listening on :%s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
