// Package server wires the HTTP surface: routing, middleware and server
// lifecycle.
package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/campusvote/server/internal/metrics"
	"github.com/campusvote/server/internal/server/handlers"
	"github.com/campusvote/server/internal/server/middleware"
)

// RouterConfig bundles the handlers and middleware the router mounts.
type RouterConfig struct {
	Auth        *handlers.AuthHandler
	Voting      *handlers.VotingHandler
	Leaderboard *handlers.LeaderboardHandler
	Profile     *handlers.ProfileHandler
	Events      *handlers.EventsHandler
	Verifier    middleware.TokenVerifier
}

// NewRouter builds the gin engine with all routes mounted.
//
// Everything under /api except signup/login requires a bearer token. The
// SSE stream also accepts ?token= since EventSource cannot set headers.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Observe())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	{
		api.POST("/auth/signup", cfg.Auth.Signup)
		api.POST("/auth/login", cfg.Auth.Login)

		authed := api.Group("")
		authed.Use(middleware.RequireAuth(cfg.Verifier))
		{
			authed.GET("/vote/:queue", cfg.Voting.GetQueue)
			authed.POST("/vote/:queue", cfg.Voting.Vote)
			authed.DELETE("/vote/:queue/history", cfg.Voting.Reset)

			authed.GET("/leaderboard", cfg.Leaderboard.Get)

			authed.GET("/profiles/me", cfg.Profile.Me)
			authed.PUT("/profiles/me", cfg.Profile.UpdateMe)

			authed.GET("/events", cfg.Events.Stream)
		}
	}

	return r
}
