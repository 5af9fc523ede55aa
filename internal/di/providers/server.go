package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/ippiapp/ippi-server/internal/api"
	"github.com/ippiapp/ippi-server/internal/auth"
	"github.com/ippiapp/ippi-server/internal/config"
	"github.com/ippiapp/ippi-server/internal/logger"
	"github.com/ippiapp/ippi-server/internal/metrics"
	"github.com/ippiapp/ippi-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	api *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.api.Stop()
	return err
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	rec := do.MustInvoke[metrics.Recorder](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Stats:       do.MustInvoke[*service.StatsEngine](i),
		Achievement: do.MustInvoke[*service.AchievementService](i),
		Activity:    do.MustInvoke[*service.ActivityService](i),
		Follow:      do.MustInvoke[*service.FollowService](i),
		Reaction:    do.MustInvoke[*service.ReactionService](i),
		Tokens:      do.MustInvoke[*auth.TokenService](i),
	}

	opts := api.Options{
		AllowDevTokens:        !cfg.App.IsProduction(),
		RequestsPerMinute:     cfg.RateLimit.RequestsPerMinute,
		AuthRequestsPerMinute: cfg.RateLimit.AuthRequestsPerMinute,
		CORSAllowedOrigins:    cfg.Server.CORSOrigins,
		TrustProxyHeaders:     cfg.Server.TrustProxyHeaders,
	}
	if cfg.Metrics.Enabled {
		opts.MetricsPath = cfg.Metrics.Path
	}
	if opts.AllowDevTokens {
		log.Warn("Development token endpoint enabled", "environment", cfg.App.Environment)
	}

	handler := api.NewServer(services, storeHandle.Store, rec, opts, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv, api: handler}, nil
}
