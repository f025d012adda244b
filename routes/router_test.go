package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pomtime/rewards/config"
	"github.com/pomtime/rewards/models"
	"github.com/pomtime/rewards/services"
	"github.com/pomtime/rewards/utils"
)

type envelope struct {
	Success bool                   `json:"success"`
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

type apiTest struct {
	t      *testing.T
	router http.Handler
	mr     *miniredis.Miniredis
}

func setupAPI(t *testing.T) *apiTest {
	t.Helper()
	cfg := config.AppConfig{JWTSecret: "router-secret", GinMode: "test", RateLimitPerMinute: 6000, LeaderboardSize: 10}
	config.Set(cfg)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	utils.SetRedis(rc)
	t.Cleanup(func() {
		utils.SetRedis(nil)
		_ = rc.Close()
		mr.Close()
	})

	table := services.DefaultRarityTable()
	ledger := services.NewLedger(db, utils.NewUserLocker(rc, 5*time.Second, 2*time.Second), services.DefaultSettings(), nil)
	collection := services.NewCollectionStore(ledger, table)
	svc := Services{
		Ledger:      ledger,
		Engine:      services.NewRollEngine(ledger, table, collection, services.NewRandSource(7)),
		Collection:  collection,
		Checkin:     services.NewCheckinLimiter(ledger),
		Awards:      services.NewAwardService(ledger),
		Leaderboard: services.NewLeaderboard(ledger),
	}
	return &apiTest{t: t, router: SetupRouter(cfg, svc), mr: mr}
}

func (a *apiTest) token(uid uint, name string) string {
	tok, err := utils.GenerateToken(uid, name, time.Hour)
	require.NoError(a.t, err)
	return tok
}

func (a *apiTest) call(method, path, token string, body interface{}) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestAPI_PublicEndpoints(t *testing.T) {
	api := setupAPI(t)

	code, env := api.call(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, env = api.call(http.MethodGet, "/api/v1/gacha/pool", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, env.Data["tiers"], 3)

	code, env = api.call(http.MethodGet, "/api/v1/config/economy", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 50.0, env.Data["daily_point_cap"])

	code, env = api.call(http.MethodGet, "/api/v1/points", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)

	code, _ = api.call(http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAPI_EarnRollRelease(t *testing.T) {
	api := setupAPI(t)
	tok := api.token(1, "ann")

	code, env := api.call(http.MethodGet, "/api/v1/points", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0.0, env.Data["points"])

	code, env = api.call(http.MethodPost, "/api/v1/gacha/roll", tok, map[string]int{"count": 1})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, 40901, env.Code)
	assert.False(t, env.Success)
	assert.Equal(t, 1.0, env.Data["shortfall"])

	code, env = api.call(http.MethodPost, "/api/v1/pomodoro/complete", tok, map[string]interface{}{"duration_minutes": 300, "session_type": "work"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 10.0, env.Data["awarded"])

	code, env = api.call(http.MethodPost, "/api/v1/pomodoro/complete", tok, map[string]interface{}{"duration_minutes": 5, "session_type": "short_break"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0.0, env.Data["awarded"])

	code, env = api.call(http.MethodPost, "/api/v1/gacha/roll", tok, map[string]int{"count": 10})
	require.Equal(t, http.StatusOK, code)
	draws, ok := env.Data["draws"].([]interface{})
	require.True(t, ok)
	assert.Len(t, draws, 10)
	assert.Equal(t, 0.0, env.Data["total_points"])

	code, env = api.call(http.MethodPost, "/api/v1/gacha/roll", tok, map[string]int{"count": 3})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 40001, env.Code)

	first := draws[0].(map[string]interface{})
	code, env = api.call(http.MethodPost, "/api/v1/collection/release", tok, map[string]interface{}{"reward": first["name"], "count": 1})
	require.Equal(t, http.StatusOK, code)
	assert.Greater(t, env.Data["xp_gained"].(float64), 0.0)

	code, env = api.call(http.MethodPost, "/api/v1/collection/release", tok, map[string]interface{}{"reward": first["name"], "count": 99})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, 40902, env.Code)

	code, env = api.call(http.MethodGet, "/api/v1/profile/stats", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 10.0, env.Data["total_rolls"])
	assert.Equal(t, 9.0, env.Data["total_owned"])

	code, env = api.call(http.MethodGet, "/api/v1/collection", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 15.0, env.Data["total_rewards"])
}

func TestAPI_CheckinAndTasks(t *testing.T) {
	api := setupAPI(t)
	tok := api.token(2, "bo")

	code, env := api.call(http.MethodGet, "/api/v1/checkin", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "available", env.Data["state"])

	code, env = api.call(http.MethodPost, "/api/v1/checkin", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 5.0, env.Data["awarded"])

	code, env = api.call(http.MethodPost, "/api/v1/checkin", tok, nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, 42903, env.Code)
	assert.NotEmpty(t, env.Data["next_checkin_at"])

	code, env = api.call(http.MethodPost, "/api/v1/tasks/t-1/complete", tok, map[string]int{"duration_minutes": 60})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2.0, env.Data["awarded"])

	code, env = api.call(http.MethodPost, "/api/v1/tasks/t-1/complete", tok, map[string]int{"duration_minutes": 60})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "task already rewarded", env.Message)

	code, env = api.call(http.MethodGet, "/api/v1/user/daily-points", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 7.0, env.Data["daily_points"])
	assert.Equal(t, 43.0, env.Data["daily_remaining"])
}

func TestAPI_LeaderboardAndFriends(t *testing.T) {
	api := setupAPI(t)
	ann := api.token(1, "ann")
	bo := api.token(2, "bo")

	// First authenticated call creates each account.
	_, _ = api.call(http.MethodGet, "/api/v1/points", ann, nil)
	_, _ = api.call(http.MethodGet, "/api/v1/points", bo, nil)

	code, env := api.call(http.MethodGet, "/api/v1/leaderboard", ann, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, env.Data["entries"], 2)
	assert.True(t, api.mr.Exists("leaderboard:global:10"))

	code, _ = api.call(http.MethodPost, "/api/v1/friends/2", ann, nil)
	require.Equal(t, http.StatusOK, code)
	code, env = api.call(http.MethodPost, "/api/v1/friends/1", ann, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = api.call(http.MethodPost, "/api/v1/friends/abc", ann, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = api.call(http.MethodGet, "/api/v1/friends/leaderboard", ann, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, env.Data["entries"], 2)

	code, _ = api.call(http.MethodDelete, "/api/v1/friends/2", ann, nil)
	require.Equal(t, http.StatusOK, code)
	code, env = api.call(http.MethodGet, "/api/v1/friends/leaderboard", ann, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, env.Data["entries"], 1)
}

func TestAPI_Logout(t *testing.T) {
	api := setupAPI(t)
	tok := api.token(4, "di")

	code, env := api.call(http.MethodGet, "/api/v1/auth/me", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "di", env.Data["username"])

	code, _ = api.call(http.MethodPost, "/api/v1/auth/logout", tok, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = api.call(http.MethodGet, "/api/v1/points", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, 40104, env.Code)
}
