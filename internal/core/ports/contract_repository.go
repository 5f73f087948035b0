package ports

import (
	"context"
	"time"

	"github.com/gigmarket/contract-hub/internal/core/domain"
)

// ContractRepository defines persistence operations for contracts.
type ContractRepository interface {
	// CreateFromProposal atomically re-checks that the proposal's job is still
	// open, closes it and inserts an ongoing contract for the proposal. It
	// returns domain.ErrJobClosed when the job is no longer open and
	// domain.ErrJobNotFound when it does not exist.
	CreateFromProposal(ctx context.Context, p *domain.Proposal, clientID int64, createdAt time.Time) (*domain.Contract, error)
	FindByID(ctx context.Context, id int64) (*domain.Contract, error)
	// ListByParty returns the contracts where userID is client or freelancer.
	ListByParty(ctx context.Context, userID int64) ([]*domain.Contract, error)
}
