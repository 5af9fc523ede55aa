package providers

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/do/v2"

	"github.com/ippiapp/ippi-server/internal/config"
	"github.com/ippiapp/ippi-server/internal/logger"
	"github.com/ippiapp/ippi-server/internal/service"
)

// StreakDecayJob periodically resets streaks that lapsed without a stats read.
type StreakDecayJob struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (j *StreakDecayJob) Shutdown() error {
	j.cancel()
	<-j.done
	return nil
}

// ProvideStreakDecayJob provides the periodic streak decay job.
func ProvideStreakDecayJob(i do.Injector) (*StreakDecayJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	engine := do.MustInvoke[*service.StatsEngine](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(logger.WithContextAttrs(context.Background(), slog.String("job", "streak_decay")))
	job := &StreakDecayJob{cancel: cancel, done: make(chan struct{})}

	if !cfg.Stats.DecayEnabled {
		log.Info("Streak decay job disabled by configuration")
		close(job.done)
		return job, nil
	}

	run := func(phase string) {
		start := time.Now()
		count, err := engine.DecayStreaks(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.WarnContext(ctx, phase+" streak decay failed", "error", err)
			}
			return
		}
		if count > 0 {
			log.InfoContext(ctx, phase+" streak decay completed", "reset", count, "duration", time.Since(start))
		}
	}

	go func() {
		defer close(job.done)

		ticker := time.NewTicker(cfg.Stats.DecayInterval)
		defer ticker.Stop()

		// Initial pass on startup
		run("Initial")

		for {
			select {
			case <-ticker.C:
				run("Periodic")
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Streak decay job started", "interval", cfg.Stats.DecayInterval)

	return job, nil
}
