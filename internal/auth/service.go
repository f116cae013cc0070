package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/campusvote/server/internal/app"
	"github.com/campusvote/server/internal/db"
	svcErr "github.com/campusvote/server/internal/errors"
	"github.com/campusvote/server/internal/repository"
)

// Service implements registration and login on top of the profile store.
// Sessions are stateless JWTs; there is nothing to invalidate server-side
// on logout.
type Service struct {
	appCtx      *app.AppContext
	profileRepo *repository.ProfileRepository
}

func NewService(appCtx *app.AppContext, profileRepo *repository.ProfileRepository) *Service {
	return &Service{appCtx: appCtx, profileRepo: profileRepo}
}

// RegisterInput carries the signup form. Gender is fixed at registration
// and never editable afterwards.
type RegisterInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Gender      string `json:"gender"`
	Age         int    `json:"age"`
	CollegeName string `json:"college_name"`
	Education   string `json:"education"`
	Year        string `json:"year"`
	City        string `json:"city"`
	State       string `json:"state"`
	Hobbies     string `json:"hobbies"`
}

// Register creates a profile and returns it with a fresh session token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*db.Profile, string, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || in.Password == "" || in.Name == "" {
		return nil, "", svcErr.InvalidArgument("name, email and password are required")
	}
	if len(in.Password) < 8 {
		return nil, "", svcErr.InvalidArgument("password must be at least 8 characters")
	}
	if in.Gender != db.GenderMale && in.Gender != db.GenderFemale {
		return nil, "", svcErr.InvalidArgument("gender must be male or female")
	}
	if in.Age < 17 || in.Age > 35 {
		return nil, "", svcErr.InvalidArgument("age must be between 17 and 35")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	profile := &db.Profile{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Gender:       in.Gender,
		Age:          in.Age,
		CollegeName:  in.CollegeName,
		Education:    in.Education,
		Year:         in.Year,
		City:         in.City,
		State:        in.State,
		Hobbies:      in.Hobbies,
	}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") || strings.Contains(strings.ToLower(err.Error()), "duplicate") {
			return nil, "", svcErr.InvalidArgument("an account with this email already exists")
		}
		return nil, "", err
	}

	token, err := s.issueFor(profile)
	if err != nil {
		return nil, "", err
	}

	s.appCtx.Logger.Info("profile registered", "id", profile.ID, "gender", profile.Gender)
	return profile, token, nil
}

// Login verifies credentials and returns the profile with a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*db.Profile, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", svcErr.InvalidArgument("email and password are required")
	}

	profile, err := s.profileRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", svcErr.Wrap(svcErr.ErrAuthRequired, errors.New("invalid credentials"))
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return nil, "", svcErr.Wrap(svcErr.ErrAuthRequired, errors.New("invalid credentials"))
	}

	token, err := s.issueFor(profile)
	if err != nil {
		return nil, "", err
	}
	return profile, token, nil
}

// Verify parses a bearer token into a Session.
func (s *Service) Verify(token string) (*Session, error) {
	return ParseToken([]byte(s.appCtx.Config.Auth.JWTSecret), token)
}

func (s *Service) issueFor(p *db.Profile) (string, error) {
	return IssueToken(
		[]byte(s.appCtx.Config.Auth.JWTSecret),
		s.appCtx.Config.Auth.TokenTTL,
		p.ID, p.Gender,
	)
}
