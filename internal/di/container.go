// Package di provides dependency injection configuration for the ippi server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/ippiapp/ippi-server/internal/auth"
	"github.com/ippiapp/ippi-server/internal/cache"
	"github.com/ippiapp/ippi-server/internal/clock"
	"github.com/ippiapp/ippi-server/internal/config"
	"github.com/ippiapp/ippi-server/internal/di/providers"
	"github.com/ippiapp/ippi-server/internal/keylock"
	"github.com/ippiapp/ippi-server/internal/logger"
	"github.com/ippiapp/ippi-server/internal/metrics"
	"github.com/ippiapp/ippi-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideClock)
	do.Provide(injector, providers.ProvideMetrics)

	// Database layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideStatsCache)
	do.Provide(injector, providers.ProvideUserLocks)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideActivityService)
	do.Provide(injector, providers.ProvideAchievementService)
	do.Provide(injector, providers.ProvideFollowService)
	do.Provide(injector, providers.ProvideReactionService)
	do.Provide(injector, providers.ProvideStatsEngine)

	// Workers
	do.Provide(injector, providers.ProvideStreakDecayJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[clock.Clock](injector)
	_ = do.MustInvoke[metrics.Recorder](injector)

	// Disk and key problems surface as errors instead of panics.
	if _, err := do.Invoke[providers.AuthKey](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[cache.StatsCache](injector)
	_ = do.MustInvoke[*keylock.KeyedMutex](injector)
	if _, err := do.Invoke[*auth.TokenService](injector); err != nil {
		return err
	}

	// Business services
	_ = do.MustInvoke[*service.ActivityService](injector)
	if _, err := do.Invoke[*service.AchievementService](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*service.FollowService](injector)
	if _, err := do.Invoke[*service.StatsEngine](injector); err != nil {
		return err
	}

	// Workers
	_ = do.MustInvoke[*providers.StreakDecayJob](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
