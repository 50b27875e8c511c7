package port

import (
	"context"

	"github.com/rl1809/stock-keeper/internal/core/domain"
)

type Authenticator interface {
	// Authenticate checks credentials for the claimed role
	Authenticate(ctx context.Context, role domain.Role, username, password string) error
}
