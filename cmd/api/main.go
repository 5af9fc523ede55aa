// Command api serves the ippi stats, achievement and activity feed API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"

	"github.com/ippiapp/ippi-server/internal/di"
	"github.com/ippiapp/ippi-server/internal/logger"
)

func main() {
	injector := di.NewContainer()

	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "ippi: bootstrap failed: %v\n", err)
		os.Exit(1)
	}
	log := do.MustInvoke[*logger.Logger](injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	log.Info("Shutdown requested, draining requests and stopping the streak decay job")
	start := time.Now()

	// Reverse dependency order: HTTP server, decay job, then the database.
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("Shutdown complete", "duration", time.Since(start))
}
