package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	svcErr "github.com/campusvote/server/internal/errors"
	"github.com/campusvote/server/internal/server/middleware"
	"github.com/campusvote/server/internal/service/voting"
)

type VotingHandler struct {
	manager *voting.Manager
}

func NewVotingHandler(manager *voting.Manager) *VotingHandler {
	return &VotingHandler{manager: manager}
}

// GetQueue handles GET /api/vote/:queue. It mounts the caller's session
// on first access and returns the current pair snapshot.
func (h *VotingHandler) GetQueue(c *gin.Context) {
	sess, err := h.manager.Session(c.Request.Context(), middleware.SessionFrom(c), c.Param("queue"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

// Vote handles POST /api/vote/:queue with body {"candidate_id": "..."}.
// On success the response carries the advanced snapshot; duplicate and
// rate-limited submissions return their dedicated codes without advancing
// the pair.
func (h *VotingHandler) Vote(c *gin.Context) {
	var in struct {
		CandidateID string `json:"candidate_id"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.CandidateID == "" {
		respondError(c, svcErr.InvalidArgument("candidate_id is required"))
		return
	}

	sess, err := h.manager.Session(c.Request.Context(), middleware.SessionFrom(c), c.Param("queue"))
	if err != nil {
		respondError(c, err)
		return
	}

	if err := sess.Vote(c.Request.Context(), in.CandidateID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sess.Snapshot())
}

// Reset handles DELETE /api/vote/:queue/history, the explicit
// user-initiated reset that clears seen pairs and the exhaustion flag.
func (h *VotingHandler) Reset(c *gin.Context) {
	sess, err := h.manager.Session(c.Request.Context(), middleware.SessionFrom(c), c.Param("queue"))
	if err != nil {
		respondError(c, err)
		return
	}

	if err := sess.Reset(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sess.Snapshot())
}
