package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/ippiapp/ippi-server/internal/errors"
)

func (s *Server) registerAuthRoutes() {
	if !s.opts.AllowDevTokens {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "issueDevToken",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/token",
		Summary:     "Issue a development token",
		Description: "Issues an access token for any user ID. Only available outside production.",
		Tags:        []string{"Authentication"},
		Middlewares: huma.Middlewares{s.rateLimitOperation(s.authRateLimiter)},
	}, s.handleIssueDevToken)
}

// === DTOs ===

// TokenRequest is the request body for dev token issuance.
type TokenRequest struct {
	UserID string `json:"user_id" validate:"required,max=128" doc:"User the token identifies"`
}

// TokenInput wraps the token request for Huma.
type TokenInput struct {
	Body TokenRequest
}

// TokenResponse contains an issued access token.
type TokenResponse struct {
	AccessToken string    `json:"access_token" doc:"PASETO v4.local bearer token"`
	TokenType   string    `json:"token_type" doc:"Always Bearer"`
	ExpiresAt   time.Time `json:"expires_at" doc:"Token expiry"`
}

// TokenOutput wraps the token response for Huma.
type TokenOutput struct {
	Body TokenResponse
}

// === Handlers ===

func (s *Server) handleIssueDevToken(ctx context.Context, input *TokenInput) (*TokenOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, s.fail(ctx, err)
	}

	tokens := s.services.Tokens
	token, err := tokens.GenerateAccessToken(input.Body.UserID)
	if err != nil {
		return nil, s.fail(ctx, domainerrors.Internal(err, "failed to issue token"))
	}

	s.logger.Info("dev token issued", "user_id", input.Body.UserID)

	return &TokenOutput{
		Body: TokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresAt:   time.Now().Add(tokens.AccessTokenDuration()),
		},
	}, nil
}
