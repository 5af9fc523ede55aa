package api

import (
	"github.com/ippiapp/ippi-server/internal/auth"
	"github.com/ippiapp/ippi-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Stats       *service.StatsEngine
	Achievement *service.AchievementService
	Activity    *service.ActivityService
	Follow      *service.FollowService
	Reaction    *service.ReactionService
	Tokens      *auth.TokenService
}
