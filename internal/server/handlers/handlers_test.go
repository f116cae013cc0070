package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/campusvote/server/internal/app"
	"github.com/campusvote/server/internal/auth"
	"github.com/campusvote/server/internal/cache"
	"github.com/campusvote/server/internal/config"
	"github.com/campusvote/server/internal/db"
	"github.com/campusvote/server/internal/history"
	"github.com/campusvote/server/internal/repository"
	"github.com/campusvote/server/internal/server"
	"github.com/campusvote/server/internal/server/handlers"
	"github.com/campusvote/server/internal/service/voting"
)

// setupServer wires the full HTTP stack against SQLite and miniredis.
func setupServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, dbase.AutoMigrate(&db.Profile{}, &db.Vote{}))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Vote.Cooldown = time.Millisecond

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(cfg, dbase, redisCache, nil, logger)

	profileRepo := repository.NewProfileRepository(dbase, redisCache, cfg.Vote.PoolTTL)
	voteRepo := repository.NewVoteRepository(dbase)
	store := history.NewRedisStore(redisCache.Client)
	manager := voting.NewManager(appCtx, profileRepo, voteRepo, store)
	authSvc := auth.NewService(appCtx, profileRepo)

	return server.NewRouter(server.RouterConfig{
		Auth:        handlers.NewAuthHandler(authSvc),
		Voting:      handlers.NewVotingHandler(manager),
		Leaderboard: handlers.NewLeaderboardHandler(profileRepo),
		Profile:     handlers.NewProfileHandler(profileRepo),
		Events:      handlers.NewEventsHandler(nil),
		Verifier:    authSvc,
	})
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func signup(t *testing.T, r *gin.Engine, name, email, gender string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"name": name, "email": email, "password": "supersecret",
		"gender": gender, "age": 21,
	})
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	token, _ := decode(t, w)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestSignupLoginAndVoteFlow(t *testing.T) {
	r := setupServer(t)

	voter := signup(t, r, "Ravi", "ravi@test.com", db.GenderMale)
	signup(t, r, "Asha", "asha@test.com", db.GenderFemale)
	signup(t, r, "Divya", "divya@test.com", db.GenderFemale)
	signup(t, r, "Meera", "meera@test.com", db.GenderFemale)

	// login works with the same credentials
	w := doJSON(t, r, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "ravi@test.com", "password": "supersecret",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// first queue access mounts the session and serves a pair
	w = doJSON(t, r, http.MethodGet, "/api/vote/girls", voter, nil)
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	snap := decode(t, w)
	assert.Equal(t, "ready", snap["status"])
	pair, ok := snap["current_pair"].([]any)
	require.True(t, ok)
	require.Len(t, pair, 2)
	first := pair[0].(map[string]any)
	candidateID := first["id"].(string)
	assert.NotContains(t, first, "password_hash")

	// vote for one member of the pair
	w = doJSON(t, r, http.MethodPost, "/api/vote/girls", voter, map[string]any{
		"candidate_id": candidateID,
	})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	snap = decode(t, w)
	assert.Equal(t, float64(1), snap["vote_count"])

	// the leaderboard reflects the recount
	w = doJSON(t, r, http.MethodGet, "/api/leaderboard?queue=girls", voter, nil)
	require.Equal(t, http.StatusOK, w.Code)
	lb := decode(t, w)
	profiles := lb["profiles"].([]any)
	require.NotEmpty(t, profiles)
	top := profiles[0].(map[string]any)
	assert.Equal(t, candidateID, top["id"])
	assert.Equal(t, float64(1), top["vote_count"])
}

func TestVote_ValidationAndErrors(t *testing.T) {
	r := setupServer(t)

	voter := signup(t, r, "Ravi", "ravi@test.com", db.GenderMale)
	girl := signup(t, r, "Asha", "asha@test.com", db.GenderFemale)
	signup(t, r, "Divya", "divya@test.com", db.GenderFemale)

	// missing token
	w := doJSON(t, r, http.MethodGet, "/api/vote/girls", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// wrong queue for the caller's gender
	w = doJSON(t, r, http.MethodGet, "/api/vote/girls", girl, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "GENDER_MISMATCH", decode(t, w)["code"])

	// unknown queue name
	w = doJSON(t, r, http.MethodGet, "/api/vote/cats", voter, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// vote without a candidate id
	w = doJSON(t, r, http.MethodPost, "/api/vote/girls", voter, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// vote for someone outside the current pair
	w = doJSON(t, r, http.MethodPost, "/api/vote/girls", voter, map[string]any{
		"candidate_id": "nonexistent",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVote_DuplicateAndReset(t *testing.T) {
	r := setupServer(t)

	voter := signup(t, r, "Ravi", "ravi@test.com", db.GenderMale)
	signup(t, r, "Asha", "asha@test.com", db.GenderFemale)
	signup(t, r, "Divya", "divya@test.com", db.GenderFemale)

	// two candidates → one pair; voting exhausts the queue
	w := doJSON(t, r, http.MethodGet, "/api/vote/girls", voter, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pair := decode(t, w)["current_pair"].([]any)
	candidateID := pair[0].(map[string]any)["id"].(string)

	w = doJSON(t, r, http.MethodPost, "/api/vote/girls", voter, map[string]any{
		"candidate_id": candidateID,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "exhausted", decode(t, w)["status"])

	// explicit reset re-opens the queue; the earlier vote still counts
	w = doJSON(t, r, http.MethodDelete, "/api/vote/girls/history", voter, nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode(t, w)
	assert.Equal(t, "ready", snap["status"])
	assert.Equal(t, float64(1), snap["vote_count"])

	// voting for the same candidate again is a conflict, not a failure
	time.Sleep(10 * time.Millisecond)
	w = doJSON(t, r, http.MethodPost, "/api/vote/girls", voter, map[string]any{
		"candidate_id": candidateID,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_VOTE", decode(t, w)["code"])
}

func TestProfile_MeAndUpdate(t *testing.T) {
	r := setupServer(t)
	token := signup(t, r, "Ravi", "ravi@test.com", db.GenderMale)

	w := doJSON(t, r, http.MethodGet, "/api/profiles/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode(t, w)
	assert.Equal(t, "Ravi", me["name"])
	assert.Equal(t, db.GenderMale, me["gender"])

	w = doJSON(t, r, http.MethodPut, "/api/profiles/me", token, map[string]any{
		"name": "Ravi Kumar", "age": 22, "city": "Pune",
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode(t, w)
	assert.Equal(t, "Ravi Kumar", updated["name"])
	assert.Equal(t, "Pune", updated["city"])
	assert.Equal(t, db.GenderMale, updated["gender"])
}

func TestAuth_TokenViaQueryParam(t *testing.T) {
	r := setupServer(t)
	token := signup(t, r, "Ravi", "ravi@test.com", db.GenderMale)

	// EventSource-style clients pass the token as a query parameter
	req := httptest.NewRequest(http.MethodGet, "/api/profiles/me?token="+token, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthz(t *testing.T) {
	r := setupServer(t)

	w := doJSON(t, r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
