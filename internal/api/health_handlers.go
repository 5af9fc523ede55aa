package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"

	healthCheckTimeout = 2 * time.Second
)

// statusRank orders statuses so the overall status is the worst component's.
var statusRank = map[string]int{statusHealthy: 0, statusDegraded: 1, statusUnhealthy: 2}

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Reports whether the stats database answers and the achievement catalog is loaded",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Worst component status"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	components := map[string]ComponentHealth{
		"database":     s.checkDatabase(ctx),
		"achievements": s.checkCatalog(ctx),
	}

	overall := statusHealthy
	for _, c := range components {
		if statusRank[c.Status] > statusRank[overall] {
			overall = c.Status
		}
	}

	return &HealthOutput{Body: HealthResponse{Status: overall, Components: components}}, nil
}

func (s *Server) checkDatabase(ctx context.Context) ComponentHealth {
	if s.db == nil {
		return ComponentHealth{Status: statusDegraded, Message: "database not configured"}
	}

	start := time.Now()
	err := s.db.Ping(ctx)
	latency := time.Since(start).String()
	if err != nil {
		return ComponentHealth{Status: statusUnhealthy, Latency: latency, Message: "database ping failed"}
	}
	return ComponentHealth{Status: statusHealthy, Latency: latency}
}

// checkCatalog reports degraded when no rules are seeded: stats still record,
// but nothing can unlock.
func (s *Server) checkCatalog(ctx context.Context) ComponentHealth {
	if s.services.Achievement == nil {
		return ComponentHealth{Status: statusDegraded, Message: "achievement service not configured"}
	}

	n, err := s.services.Achievement.CatalogSize(ctx)
	switch {
	case err != nil:
		return ComponentHealth{Status: statusUnhealthy, Message: "achievement catalog unavailable"}
	case n == 0:
		return ComponentHealth{Status: statusDegraded, Message: "achievement catalog is empty"}
	default:
		return ComponentHealth{Status: statusHealthy}
	}
}
