package ports

import (
	"context"

	"github.com/gigmarket/contract-hub/internal/core/domain"
)

// ContractService defines the contract use cases exposed to the transport layer.
type ContractService interface {
	// Accept converts a proposal into exactly one contract. It is never safe
	// to retry: a second call for the same job fails with domain.ErrJobClosed.
	Accept(ctx context.Context, proposalID, actingUserID int64) (*domain.Contract, error)
	Get(ctx context.Context, contractID, userID int64) (*domain.Contract, error)
	List(ctx context.Context, userID int64) ([]*domain.Contract, error)
}
