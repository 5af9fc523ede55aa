package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/ippiapp/ippi-server/internal/cache"
	"github.com/ippiapp/ippi-server/internal/clock"
	"github.com/ippiapp/ippi-server/internal/config"
	"github.com/ippiapp/ippi-server/internal/keylock"
	"github.com/ippiapp/ippi-server/internal/logger"
	"github.com/ippiapp/ippi-server/internal/metrics"
	"github.com/ippiapp/ippi-server/internal/service"
)

// ProvideClock provides the wall clock.
func ProvideClock(i do.Injector) (clock.Clock, error) {
	return clock.System{}, nil
}

// ProvideMetrics provides the metrics recorder.
func ProvideMetrics(i do.Injector) (metrics.Recorder, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	rec := metrics.New(cfg.Metrics.Enabled)
	if cfg.Metrics.Enabled {
		log.Info("Metrics enabled", "path", cfg.Metrics.Path)
	}
	return rec, nil
}

// ProvideStatsCache provides the read-side stats cache.
func ProvideStatsCache(i do.Injector) (cache.StatsCache, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return cache.New(cfg.Stats.CacheSizeMB, int(cfg.Stats.CacheTTL.Seconds()), log.Logger), nil
}

// ProvideUserLocks provides the per-user mutation locks.
func ProvideUserLocks(i do.Injector) (*keylock.KeyedMutex, error) {
	return keylock.New(), nil
}

// ProvideActivityService provides the activity feed service.
func ProvideActivityService(i do.Injector) (*service.ActivityService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	clk := do.MustInvoke[clock.Clock](i)
	rec := do.MustInvoke[metrics.Recorder](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewActivityService(storeHandle.Store, storeHandle.Store, clk, rec, log.Logger), nil
}

// ProvideAchievementService provides the achievement service with the built-in catalog seeded.
func ProvideAchievementService(i do.Injector) (*service.AchievementService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	activityService := do.MustInvoke[*service.ActivityService](i)
	clk := do.MustInvoke[clock.Clock](i)
	rec := do.MustInvoke[metrics.Recorder](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewAchievementService(storeHandle.Store, activityService, clk, rec, log.Logger)
	if _, err := svc.SeedCatalog(context.Background()); err != nil {
		return nil, err
	}
	return svc, nil
}

// ProvideFollowService provides the follow graph service.
func ProvideFollowService(i do.Injector) (*service.FollowService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	activityService := do.MustInvoke[*service.ActivityService](i)
	clk := do.MustInvoke[clock.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewFollowService(storeHandle.Store, activityService, clk, log.Logger), nil
}

// ProvideReactionService provides the likes and comments service.
func ProvideReactionService(i do.Injector) (*service.ReactionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	clk := do.MustInvoke[clock.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReactionService(storeHandle.Store, storeHandle.Store, clk, log.Logger), nil
}

// ProvideStatsEngine provides the stats engine.
func ProvideStatsEngine(i do.Injector) (*service.StatsEngine, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	achievementService := do.MustInvoke[*service.AchievementService](i)
	activityService := do.MustInvoke[*service.ActivityService](i)
	locks := do.MustInvoke[*keylock.KeyedMutex](i)
	statsCache := do.MustInvoke[cache.StatsCache](i)
	rec := do.MustInvoke[metrics.Recorder](i)
	clk := do.MustInvoke[clock.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	loc, err := cfg.Stats.Location()
	if err != nil {
		return nil, err
	}

	engineCfg := service.StatsEngineConfig{
		Location:     loc,
		MaxRetries:   cfg.Stats.MaxRetries,
		RetryBackoff: cfg.Stats.RetryBackoff,
	}
	return service.NewStatsEngine(
		storeHandle.Store,
		achievementService,
		activityService,
		locks,
		statsCache,
		rec,
		clk,
		engineCfg,
		log.Logger,
	), nil
}
