package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/pomtime/rewards/config"
	"github.com/pomtime/rewards/controllers"
	"github.com/pomtime/rewards/middleware"
	"github.com/pomtime/rewards/services"
	"github.com/pomtime/rewards/utils"
)

// Services bundles the economy components the HTTP layer talks to.
type Services struct {
	Ledger      *services.Ledger
	Engine      *services.RollEngine
	Collection  *services.CollectionStore
	Checkin     *services.CheckinLimiter
	Awards      *services.AwardService
	Leaderboard *services.Leaderboard
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, svc Services) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	// Points render as JSON numbers rather than quoted strings.
	decimal.MarshalJSONWithoutQuotes = true

	r := gin.New()
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, true))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController()
	pointsController := controllers.NewPointsController(svc.Ledger)
	sessionController := controllers.NewSessionController(svc.Awards)
	gachaController := controllers.NewGachaController(svc.Engine)
	collectionController := controllers.NewCollectionController(svc.Collection)
	checkinController := controllers.NewCheckinController(svc.Checkin)
	leaderboardController := controllers.NewLeaderboardController(svc.Leaderboard, cfg.LeaderboardSize)
	configController := controllers.NewConfigController(svc.Ledger.Settings())

	api := r.Group("/api/v1")
	api.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	api.GET("/gacha/pool", gachaController.Pool)
	api.GET("/config/economy", configController.GetEconomy)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), limiter.Middleware(), middleware.EnsureAccount(svc.Ledger))

	protected.GET("/auth/me", authController.Me)
	protected.POST("/auth/logout", authController.Logout)

	protected.GET("/points", pointsController.GetPoints)
	protected.GET("/user/daily-points", pointsController.GetDailyPoints)

	protected.POST("/gacha/roll", gachaController.Roll)

	protected.GET("/collection", collectionController.List)
	protected.POST("/collection/release", collectionController.Release)
	protected.GET("/profile/stats", collectionController.ProfileStats)

	protected.GET("/checkin", checkinController.Status)
	protected.POST("/checkin", checkinController.Claim)

	protected.POST("/pomodoro/complete", sessionController.CompletePomodoro)
	protected.POST("/tasks/:id/complete", sessionController.CompleteTask)

	protected.GET("/leaderboard", leaderboardController.Global)
	protected.GET("/friends/leaderboard", leaderboardController.Friends)
	protected.POST("/friends/:id", leaderboardController.AddFriend)
	protected.DELETE("/friends/:id", leaderboardController.RemoveFriend)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
