// Package handlers exposes the HTTP/JSON surface of the voting service.
// Handlers stay thin: bind, call a service, map errors centrally.
package handlers

import (
	"github.com/gin-gonic/gin"

	svcErr "github.com/campusvote/server/internal/errors"
	"github.com/campusvote/server/internal/logger"
)

// respondError maps a domain error to status + JSON body. Duplicate-vote
// and rate-limit conditions come through here too, but with their own
// codes so the UI can show calmer messaging than the generic error path.
func respondError(c *gin.Context, err error) {
	status, body := svcErr.Map(err)
	if status >= 500 {
		logger.Error("request failed", "path", c.FullPath(), "err", err)
	}
	c.JSON(status, body)
}
