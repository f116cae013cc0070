package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusvote/server/internal/db"
	svcErr "github.com/campusvote/server/internal/errors"
	"github.com/campusvote/server/internal/repository"
	"github.com/campusvote/server/internal/server/middleware"
)

type ProfileHandler struct {
	profiles *repository.ProfileRepository
}

func NewProfileHandler(profiles *repository.ProfileRepository) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Me handles GET /api/profiles/me.
func (h *ProfileHandler) Me(c *gin.Context) {
	sess := middleware.SessionFrom(c)
	if sess == nil {
		respondError(c, svcErr.ErrAuthRequired)
		return
	}

	profile, err := h.profiles.GetByID(c.Request.Context(), sess.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateMe handles PUT /api/profiles/me. Only display fields are
// updatable; gender and email are fixed at signup.
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	sess := middleware.SessionFrom(c)
	if sess == nil {
		respondError(c, svcErr.ErrAuthRequired)
		return
	}

	var in struct {
		Name         string `json:"name"`
		Age          int    `json:"age"`
		CollegeName  string `json:"college_name"`
		Education    string `json:"education"`
		Year         string `json:"year"`
		City         string `json:"city"`
		State        string `json:"state"`
		ProfileImage string `json:"profile_image"`
		Hobbies      string `json:"hobbies"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, svcErr.InvalidArgument("invalid request body"))
		return
	}
	if in.Name == "" {
		respondError(c, svcErr.InvalidArgument("name is required"))
		return
	}
	if in.Age != 0 && (in.Age < 17 || in.Age > 35) {
		respondError(c, svcErr.InvalidArgument("age must be between 17 and 35"))
		return
	}

	update := &db.Profile{
		ID:           sess.UserID,
		Name:         in.Name,
		Age:          in.Age,
		CollegeName:  in.CollegeName,
		Education:    in.Education,
		Year:         in.Year,
		City:         in.City,
		State:        in.State,
		ProfileImage: in.ProfileImage,
		Hobbies:      in.Hobbies,
	}
	if err := h.profiles.Update(c.Request.Context(), update); err != nil {
		respondError(c, svcErr.Wrap(svcErr.ErrBackendError, err))
		return
	}

	profile, err := h.profiles.GetByID(c.Request.Context(), sess.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
