package main

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pomtime/rewards/config"
	"github.com/pomtime/rewards/models"
	"github.com/pomtime/rewards/routes"
	"github.com/pomtime/rewards/services"
	"github.com/pomtime/rewards/utils"
)

func main() {
	cfg := config.Load()

	logger, err := utils.InitLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	db := config.InitDatabase(models.All()...)
	rc := utils.InitRedis(cfg)

	table, err := services.LoadRarityTable(cfg.RewardsPath)
	if err != nil {
		logger.Fatal("load rewards table", zap.String("path", cfg.RewardsPath), zap.Error(err))
	}

	settings := services.Settings{
		DailyCap:        decimal.NewFromFloat(cfg.DailyPointCap),
		DailyWindow:     24 * time.Hour,
		CheckinReward:   decimal.NewFromFloat(cfg.CheckinRewardPoints),
		CheckinCooldown: time.Duration(cfg.CheckinCooldownHours) * time.Hour,
		RollCost:        decimal.NewFromFloat(cfg.RollCost),
		LevelBaseXP:     cfg.LevelBaseXP,
		ReleaseXP:       cfg.ReleaseXP,
	}
	locker := utils.NewUserLocker(rc,
		time.Duration(cfg.LockTTLMillis)*time.Millisecond,
		time.Duration(cfg.LockWaitMillis)*time.Millisecond)

	ledger := services.NewLedger(db, locker, settings, logger.Named("economy"))
	collection := services.NewCollectionStore(ledger, table)
	svc := routes.Services{
		Ledger:      ledger,
		Engine:      services.NewRollEngine(ledger, table, collection, services.NewRandSource(cfg.RandSeed)),
		Collection:  collection,
		Checkin:     services.NewCheckinLimiter(ledger),
		Awards:      services.NewAwardService(ledger),
		Leaderboard: services.NewLeaderboard(ledger),
	}

	r := routes.SetupRouter(cfg, svc)

	srv := utils.NewServer(":"+cfg.AppPort, r)
	srv.OnShutdown(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		if rc != nil {
			_ = rc.Close()
		}
	})

	logger.Info("starting server",
		zap.String("port", cfg.AppPort),
		zap.String("db_driver", cfg.DBDriver),
		zap.Bool("redis", rc != nil))
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}
