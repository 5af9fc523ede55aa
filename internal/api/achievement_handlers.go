package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerAchievementRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listAchievements",
		Method:      http.MethodGet,
		Path:        "/api/v1/achievements",
		Summary:     "List achievements",
		Description: "Returns every achievement in display order with the current user's progress",
		Tags:        []string{"Achievements"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListAchievements)
}

// AchievementResponse is one catalog entry with the user's status.
type AchievementResponse struct {
	ID          string     `json:"id" doc:"Rule ID"`
	Category    string     `json:"category" doc:"Metric the rule checks"`
	Name        string     `json:"name" doc:"Display name"`
	Description string     `json:"description" doc:"What it takes to unlock"`
	Threshold   int64      `json:"threshold" doc:"Value the metric must reach"`
	Achieved    bool       `json:"achieved" doc:"Whether the user holds it"`
	AchievedAt  *time.Time `json:"achieved_at,omitempty" doc:"When it was awarded"`
}

// AchievementsResponse lists the catalog with counts.
type AchievementsResponse struct {
	Achievements  []AchievementResponse `json:"achievements" doc:"Catalog in display order"`
	TotalCount    int                   `json:"total_count" doc:"Number of achievements"`
	AchievedCount int                   `json:"achieved_count" doc:"Number the user holds"`
}

// AchievementsOutput wraps the achievements response for Huma.
type AchievementsOutput struct {
	Body AchievementsResponse
}

func (s *Server) handleListAchievements(ctx context.Context, _ *struct{}) (*AchievementsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.achievementsFor(ctx, userID)
}

func (s *Server) achievementsFor(ctx context.Context, userID string) (*AchievementsOutput, error) {
	list, err := s.services.Achievement.ListForUser(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	achievements := make([]AchievementResponse, len(list.Achievements))
	for i, a := range list.Achievements {
		achievements[i] = AchievementResponse{
			ID:          a.Rule.ID,
			Category:    string(a.Rule.Category),
			Name:        a.Rule.Name,
			Description: a.Rule.Description,
			Threshold:   a.Rule.Threshold,
			Achieved:    a.Achieved,
			AchievedAt:  a.AchievedAt,
		}
	}

	return &AchievementsOutput{
		Body: AchievementsResponse{
			Achievements:  achievements,
			TotalCount:    list.TotalCount,
			AchievedCount: list.AchievedCount,
		},
	}, nil
}
