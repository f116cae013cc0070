package main

import (
	"context"

	"github.com/campusvote/server/internal/app"
	"github.com/campusvote/server/internal/auth"
	"github.com/campusvote/server/internal/cache"
	"github.com/campusvote/server/internal/config"
	"github.com/campusvote/server/internal/db"
	"github.com/campusvote/server/internal/history"
	"github.com/campusvote/server/internal/logger"
	"github.com/campusvote/server/internal/realtime"
	"github.com/campusvote/server/internal/repository"
	"github.com/campusvote/server/internal/server"
	"github.com/campusvote/server/internal/server/handlers"
	"github.com/campusvote/server/internal/service/voting"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	ctx := context.Background()
	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	bus := realtime.NewRedisBus(log, redisCache.Client, cfg.Redis.Channel)

	appCtx := app.New(cfg, database, redisCache, bus, log)

	profileRepo := repository.NewProfileRepository(database, redisCache, cfg.Vote.PoolTTL)
	voteRepo := repository.NewVoteRepository(database)
	store := history.NewRedisStore(redisCache.Client)

	manager := voting.NewManager(appCtx, profileRepo, voteRepo, store)
	if err := manager.Start(ctx); err != nil {
		log.Error("failed to subscribe to vote events", "err", err)
		return
	}

	authSvc := auth.NewService(appCtx, profileRepo)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	router := server.NewRouter(server.RouterConfig{
		Auth:        handlers.NewAuthHandler(authSvc),
		Voting:      handlers.NewVotingHandler(manager),
		Leaderboard: handlers.NewLeaderboardHandler(profileRepo),
		Profile:     handlers.NewProfileHandler(profileRepo),
		Events:      handlers.NewEventsHandler(bus),
		Verifier:    authSvc,
	})

	if err := server.StartHTTPServer(cfg, router); err != nil {
		log.Error("http server exited", "err", err)
	}
}
