package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gigmarket/contract-hub/internal/core/domain"
)

const collectionContracts = "contracts"

type ContractRepository struct {
	client    *mongo.Client
	contracts *mongo.Collection
	jobs      *mongo.Collection
	ids       sequence
}

func NewContractRepository(db *mongo.Database) *ContractRepository {
	return &ContractRepository{
		client:    db.Client(),
		contracts: db.Collection(collectionContracts),
		jobs:      db.Collection(collectionJobs),
		ids:       newSequence(db, collectionContracts),
	}
}

// CreateFromProposal closes the proposal's job (open -> closed) and inserts
// the contract in one transaction, so the job is never closed without its
// contract. Transactions need a replica set. The unique job_id index still
// rejects a second contract for the same job.
func (r *ContractRepository) CreateFromProposal(ctx context.Context, p *domain.Proposal, clientID int64, createdAt time.Time) (*domain.Contract, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	sess, err := r.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	res, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return r.createInTx(sc, p, clientID, createdAt)
	})
	if err != nil {
		return nil, err
	}
	return res.(*domain.Contract), nil
}

func (r *ContractRepository) createInTx(ctx context.Context, p *domain.Proposal, clientID int64, createdAt time.Time) (*domain.Contract, error) {
	err := r.jobs.FindOneAndUpdate(
		ctx,
		bson.M{"_id": p.JobID, "status": domain.JobOpen},
		bson.M{"$set": bson.M{"status": domain.JobClosed}},
	).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, r.closedOrMissing(ctx, p.JobID)
		}
		return nil, fmt.Errorf("close job %d: %w", p.JobID, err)
	}

	id, err := r.ids.next(ctx)
	if err != nil {
		return nil, err
	}

	c := &domain.Contract{
		ID:           id,
		JobID:        p.JobID,
		ProposalID:   p.ID,
		ClientID:     clientID,
		FreelancerID: p.FreelancerID,
		Amount:       p.BidAmount,
		Status:       domain.ContractOngoing,
		CreatedAt:    createdAt,
	}
	if _, err := r.contracts.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrJobClosed
		}
		return nil, fmt.Errorf("insert contract: %w", err)
	}
	return c, nil
}

func (r *ContractRepository) closedOrMissing(ctx context.Context, jobID int64) error {
	n, err := r.jobs.CountDocuments(ctx, bson.M{"_id": jobID})
	if err != nil {
		return fmt.Errorf("count job %d: %w", jobID, err)
	}
	if n == 0 {
		return domain.ErrJobNotFound
	}
	return domain.ErrJobClosed
}

func (r *ContractRepository) FindByID(ctx context.Context, id int64) (*domain.Contract, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var c domain.Contract
	if err := r.contracts.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrContractNotFound
		}
		return nil, fmt.Errorf("find contract %d: %w", id, err)
	}
	return &c, nil
}

// ListByParty returns the user's contracts, newest first.
func (r *ContractRepository) ListByParty(ctx context.Context, userID int64) ([]*domain.Contract, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"$or": bson.A{
		bson.M{"client_id": userID},
		bson.M{"freelancer_id": userID},
	}}
	cur, err := r.contracts.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer cur.Close(ctx)

	items := make([]*domain.Contract, 0)
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode contracts: %w", err)
	}
	return items, nil
}

// EnsureIndexes creates the unique job_id and proposal_id indexes that keep
// a job at one contract, plus the party lookups.
func (r *ContractRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "job_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "proposal_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "client_id", Value: 1}}},
		{Keys: bson.D{{Key: "freelancer_id", Value: 1}}},
	}
	_, err := r.contracts.Indexes().CreateMany(ctx, indexes)
	return err
}
