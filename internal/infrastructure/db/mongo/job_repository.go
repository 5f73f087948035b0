package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gigmarket/contract-hub/internal/core/domain"
)

const (
	collectionJobs      = "jobs"
	collectionProposals = "proposals"
)

// JobRepository reads jobs and proposals. Both collections are written by
// the marketplace side of the platform.
type JobRepository struct {
	jobs      *mongo.Collection
	proposals *mongo.Collection
}

func NewJobRepository(db *mongo.Database) *JobRepository {
	return &JobRepository{
		jobs:      db.Collection(collectionJobs),
		proposals: db.Collection(collectionProposals),
	}
}

func (r *JobRepository) FindJob(ctx context.Context, id int64) (*domain.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var j domain.Job
	if err := r.jobs.FindOne(ctx, bson.M{"_id": id}).Decode(&j); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("find job %d: %w", id, err)
	}
	return &j, nil
}

func (r *JobRepository) FindProposal(ctx context.Context, id int64) (*domain.Proposal, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var p domain.Proposal
	if err := r.proposals.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProposalNotFound
		}
		return nil, fmt.Errorf("find proposal %d: %w", id, err)
	}
	return &p, nil
}

func (r *JobRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := r.jobs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "client_id", Value: 1}},
	}); err != nil {
		return err
	}
	_, err := r.proposals.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "job_id", Value: 1}},
	})
	return err
}
