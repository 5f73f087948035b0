package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gigmarket/contract-hub/internal/core/domain"
	"github.com/gigmarket/contract-hub/internal/core/ports"
	"github.com/gigmarket/contract-hub/internal/pkg/metrics"
)

// ContractRegistrar receives every contract the service creates.
type ContractRegistrar interface {
	Register(c *domain.Contract)
}

// ContractNotifier is told about new contracts so a contract_created event
// can reach the party that did not make the accept call.
type ContractNotifier interface {
	ContractCreated(ctx context.Context, c *domain.Contract, deliveredTo int64)
}

// ContractService implements proposal acceptance and contract reads.
type ContractService struct {
	jobs      ports.JobRepository
	contracts ports.ContractRepository
	registry  ContractRegistrar
	notifier  ContractNotifier
	locks     *jobLocks
	logger    zerolog.Logger
	now       func() time.Time
}

func NewContractService(
	jobs ports.JobRepository,
	contracts ports.ContractRepository,
	registry ContractRegistrar,
	notifier ContractNotifier,
	logger zerolog.Logger,
) *ContractService {
	return &ContractService{
		jobs:      jobs,
		contracts: contracts,
		registry:  registry,
		notifier:  notifier,
		locks:     newJobLocks(),
		logger:    logger,
		now:       time.Now,
	}
}

// Accept converts proposalID into a contract on behalf of actingUserID.
//
// Authority is checked before taking the job lock; the job status is only
// trusted inside the lock, where the repository re-reads and flips it in the
// same operation that inserts the contract.
func (s *ContractService) Accept(ctx context.Context, proposalID, actingUserID int64) (*domain.Contract, error) {
	start := time.Now()
	c, err := s.accept(ctx, proposalID, actingUserID)
	metrics.AcceptDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AcceptRejectedTotal.WithLabelValues(rejectReason(err)).Inc()
		s.logger.Info().
			Err(err).
			Int64("proposal_id", proposalID).
			Int64("user_id", actingUserID).
			Msg("proposal accept rejected")
		return nil, err
	}

	metrics.ContractsCreatedTotal.Inc()
	s.logger.Info().
		Int64("contract_id", c.ID).
		Int64("job_id", c.JobID).
		Int64("client_id", c.ClientID).
		Int64("freelancer_id", c.FreelancerID).
		Msg("contract created")
	return c, nil
}

func (s *ContractService) accept(ctx context.Context, proposalID, actingUserID int64) (*domain.Contract, error) {
	if actingUserID <= 0 {
		return nil, domain.ErrUnauthenticated
	}

	proposal, err := s.jobs.FindProposal(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("accept proposal %d: %w", proposalID, err)
	}
	job, err := s.jobs.FindJob(ctx, proposal.JobID)
	if err != nil {
		return nil, fmt.Errorf("accept proposal %d: %w", proposalID, err)
	}
	if job.ClientID != actingUserID {
		return nil, domain.ErrNotJobOwner
	}

	unlock := s.locks.Lock(job.ID)
	defer unlock()

	contract, err := s.contracts.CreateFromProposal(ctx, proposal, job.ClientID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("accept proposal %d: %w", proposalID, err)
	}

	s.registry.Register(contract)
	if s.notifier != nil {
		s.notifier.ContractCreated(ctx, contract, actingUserID)
	}
	return contract, nil
}

// Get returns a contract visible to userID.
func (s *ContractService) Get(ctx context.Context, contractID, userID int64) (*domain.Contract, error) {
	c, err := s.contracts.FindByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !c.IsParty(userID) {
		return nil, domain.ErrNotContractParty
	}
	return c, nil
}

// List returns every contract where userID is the client or the freelancer.
func (s *ContractService) List(ctx context.Context, userID int64) ([]*domain.Contract, error) {
	if userID <= 0 {
		return nil, domain.ErrUnauthenticated
	}
	items, err := s.contracts.ListByParty(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to list contracts")
		return nil, err
	}
	return items, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
