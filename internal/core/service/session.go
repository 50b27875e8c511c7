package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/stock-keeper/internal/core/domain"
	"github.com/rl1809/stock-keeper/internal/port"
)

type SessionState int

const (
	StateUnauthenticated SessionState = iota
	StateAuthenticated
	StateTerminated
)

func (s SessionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Session tracks who is operating the gate. The role is fixed at login.
type Session struct {
	id     string
	auth   port.Authenticator
	logger *zap.Logger
	state  SessionState
	role   domain.Role
}

func NewSession(auth port.Authenticator, logger *zap.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		id:     id,
		auth:   auth,
		logger: logger.With(zap.String("session_id", id)),
	}
}

func (s *Session) ID() string          { return s.id }
func (s *Session) State() SessionState { return s.state }

func (s *Session) Login(ctx context.Context, role domain.Role, username, password string) error {
	if s.state != StateUnauthenticated {
		return fmt.Errorf("login in %s session", s.state)
	}
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role", domain.ErrAuthentication)
	}

	if err := s.auth.Authenticate(ctx, role, username, password); err != nil {
		s.logger.Warn("login failed", zap.Stringer("role", role), zap.String("username", username))
		return err
	}

	s.state = StateAuthenticated
	s.role = role
	s.logger.Info("login succeeded", zap.Stringer("role", role), zap.String("username", username))
	return nil
}

// Role returns the authenticated role.
func (s *Session) Role() (domain.Role, error) {
	if s.state != StateAuthenticated {
		return 0, fmt.Errorf("%w: session is %s", domain.ErrNotAuthenticated, s.state)
	}
	return s.role, nil
}

func (s *Session) Terminate() {
	if s.state == StateTerminated {
		return
	}
	s.state = StateTerminated
	s.logger.Info("session terminated")
}
