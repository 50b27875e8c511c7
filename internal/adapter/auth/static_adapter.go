package auth

import (
	"context"
	"fmt"

	"github.com/rl1809/stock-keeper/internal/core/domain"
)

type Credentials struct {
	Username string
	Password string
}

// StaticAdapter checks logins against a fixed credential per role.
// Passwords are compared in plain text.
type StaticAdapter struct {
	creds map[domain.Role]Credentials
}

func NewStaticAdapter(creds map[domain.Role]Credentials) *StaticAdapter {
	copied := make(map[domain.Role]Credentials, len(creds))
	for role, c := range creds {
		copied[role] = c
	}
	return &StaticAdapter{creds: copied}
}

func (a *StaticAdapter) Authenticate(ctx context.Context, role domain.Role, username, password string) error {
	c, ok := a.creds[role]
	if !ok || c.Username == "" {
		return fmt.Errorf("%w: no credentials for %s", domain.ErrAuthentication, role)
	}
	if c.Username != username || c.Password != password {
		return fmt.Errorf("%w: invalid username or password", domain.ErrAuthentication)
	}
	return nil
}
