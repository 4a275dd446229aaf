package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/mailroom/internal/auth"
	"github.com/spec-kit/mailroom/internal/domain"
	"github.com/spec-kit/mailroom/internal/repository"
	apperrors "github.com/spec-kit/mailroom/pkg/util"
)

// AuthService authenticates agents and issues access tokens.
type AuthService struct {
	agents repository.AgentRepository
	tokens *auth.TokenManager
	hasher *auth.PasswordHasher
	logger *zap.Logger
}

func NewAuthService(agents repository.AgentRepository, tokens *auth.TokenManager, hasher *auth.PasswordHasher, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{agents: agents, tokens: tokens, hasher: hasher, logger: logger}
}

// LoginResult is the successful outcome of a credential check.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Agent     *domain.Agent
}

// Login verifies the credentials and returns a signed token. Unknown email,
// bad password, and deactivated accounts all produce the same error so the
// response does not leak which accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	agent, err := s.agents.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if !agent.Active || !s.hasher.Compare(agent.PasswordHash, password) {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.Issue(agent)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("agent logged in",
		zap.String("agent_id", agent.ID),
		zap.String("tenant_id", agent.TenantID))
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Agent: agent}, nil
}

// CurrentAgent loads the full agent record for an authenticated principal.
func (s *AuthService) CurrentAgent(ctx context.Context, agentID string) (*domain.Agent, error) {
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewUnauthorized("account no longer exists")
		}
		return nil, err
	}
	if !agent.Active {
		return nil, apperrors.NewUnauthorized("account deactivated")
	}
	return agent, nil
}
