package ports

import (
	"context"

	"github.com/gigmarket/contract-hub/internal/core/domain"
)

// JobRepository is the read side of the job/proposal store. The store owns
// job ownership and the one-live-proposal-per-freelancer policy; the hub
// only reads from it.
type JobRepository interface {
	FindJob(ctx context.Context, id int64) (*domain.Job, error)
	FindProposal(ctx context.Context, id int64) (*domain.Proposal, error)
}
