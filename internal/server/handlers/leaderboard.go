package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	svcErr "github.com/campusvote/server/internal/errors"
	"github.com/campusvote/server/internal/repository"
	"github.com/campusvote/server/internal/service/voting"
)

const (
	defaultLeaderboardLimit = 20
	maxLeaderboardLimit     = 100
)

type LeaderboardHandler struct {
	profiles *repository.ProfileRepository
}

func NewLeaderboardHandler(profiles *repository.ProfileRepository) *LeaderboardHandler {
	return &LeaderboardHandler{profiles: profiles}
}

// Get handles GET /api/leaderboard?queue=girls&limit=20&page_token=...
// Rankings always come from a full recount, so the order reflects votes
// recorded by every voter, not just the caller.
func (h *LeaderboardHandler) Get(c *gin.Context) {
	gender, err := voting.CandidateGender(c.Query("queue"))
	if err != nil {
		respondError(c, err)
		return
	}

	limit := defaultLeaderboardLimit
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxLeaderboardLimit {
			respondError(c, svcErr.InvalidArgument("limit must be between 1 and 100"))
			return
		}
	}

	var token *string
	if raw := c.Query("page_token"); raw != "" {
		token = &raw
	}

	profiles, nextToken, err := h.profiles.Leaderboard(c.Request.Context(), gender, token, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"profiles": profiles}
	if nextToken != nil {
		resp["next_page_token"] = *nextToken
	}
	c.JSON(http.StatusOK, resp)
}
