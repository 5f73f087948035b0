package ports

import (
	"context"

	"github.com/gigmarket/contract-hub/internal/core/domain"
)

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	// Authenticate resolves a bearer credential to the identity it was issued for.
	Authenticate(ctx context.Context, token string) (*domain.Identity, error)
}
