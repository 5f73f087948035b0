package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gigmarket/contract-hub/internal/core/domain"
)

// testDatabase connects to the replica set named by MONGO_TEST_URI and
// returns a throwaway database. Transactions need a replica set, so these
// tests are skipped without one.
func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx := context.Background()
	name := fmt.Sprintf("contract_hub_test_%d", time.Now().UnixNano())
	client, db, err := Connect(ctx, Config{URI: uri, Database: name})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	if err := EnsureIndexes(ctx, NewJobRepository(db), NewContractRepository(db)); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	return db
}

func seedJob(t *testing.T, db *mongo.Database, job domain.Job) {
	t.Helper()
	if _, err := db.Collection(collectionJobs).InsertOne(context.Background(), job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
}

func jobStatus(t *testing.T, db *mongo.Database, id int64) domain.JobStatus {
	t.Helper()
	var job domain.Job
	if err := db.Collection(collectionJobs).FindOne(context.Background(), bson.M{"_id": id}).Decode(&job); err != nil {
		t.Fatalf("load job %d: %v", id, err)
	}
	return job.Status
}

func TestContractRepository_CreateFromProposal(t *testing.T) {
	db := testDatabase(t)
	repo := NewContractRepository(db)
	seedJob(t, db, domain.Job{ID: 1, ClientID: 7, Title: "Logo", Budget: 500, Status: domain.JobOpen})

	p := &domain.Proposal{ID: 4, JobID: 1, FreelancerID: 9, BidAmount: 450}
	c, err := repo.CreateFromProposal(context.Background(), p, 7, time.Now().UTC())
	if err != nil {
		t.Fatalf("CreateFromProposal returned error: %v", err)
	}
	if c.JobID != 1 || c.ClientID != 7 || c.FreelancerID != 9 || c.Amount != 450 || c.Status != domain.ContractOngoing {
		t.Fatalf("unexpected contract: %+v", c)
	}
	if got := jobStatus(t, db, 1); got != domain.JobClosed {
		t.Fatalf("expected job closed, got %s", got)
	}

	stored, err := repo.FindByID(context.Background(), c.ID)
	if err != nil || stored.ProposalID != 4 {
		t.Fatalf("FindByID: %+v, %v", stored, err)
	}

	other := &domain.Proposal{ID: 5, JobID: 1, FreelancerID: 10, BidAmount: 400}
	if _, err := repo.CreateFromProposal(context.Background(), other, 7, time.Now()); !errors.Is(err, domain.ErrJobClosed) {
		t.Fatalf("expected ErrJobClosed, got %v", err)
	}
}

func TestContractRepository_CreateFromProposal_MissingJob(t *testing.T) {
	db := testDatabase(t)
	repo := NewContractRepository(db)

	p := &domain.Proposal{ID: 4, JobID: 99, FreelancerID: 9, BidAmount: 450}
	if _, err := repo.CreateFromProposal(context.Background(), p, 7, time.Now()); !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestContractRepository_FailedInsertLeavesJobOpen(t *testing.T) {
	db := testDatabase(t)
	repo := NewContractRepository(db)
	seedJob(t, db, domain.Job{ID: 2, ClientID: 7, Title: "Site", Budget: 900, Status: domain.JobOpen})

	// A contract already holds the proposal, so the insert fails after the
	// job flip inside the transaction.
	if _, err := db.Collection(collectionContracts).InsertOne(context.Background(), domain.Contract{
		ID: 1000, JobID: 77, ProposalID: 6, ClientID: 7, FreelancerID: 9, Status: domain.ContractOngoing,
	}); err != nil {
		t.Fatalf("seed contract: %v", err)
	}

	p := &domain.Proposal{ID: 6, JobID: 2, FreelancerID: 9, BidAmount: 800}
	if _, err := repo.CreateFromProposal(context.Background(), p, 7, time.Now()); err == nil {
		t.Fatal("expected insert to fail")
	}
	if got := jobStatus(t, db, 2); got != domain.JobOpen {
		t.Fatalf("job must stay open when no contract was written, got %s", got)
	}
}

func TestContractRepository_ConcurrentAcceptsCreateOneContract(t *testing.T) {
	db := testDatabase(t)
	repo := NewContractRepository(db)
	seedJob(t, db, domain.Job{ID: 3, ClientID: 7, Title: "App", Budget: 2000, Status: domain.JobOpen})

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := &domain.Proposal{ID: int64(100 + i), JobID: 3, FreelancerID: int64(20 + i), BidAmount: 1500}
			_, err := repo.CreateFromProposal(context.Background(), p, 7, time.Now())
			switch {
			case err == nil:
				mu.Lock()
				success++
				mu.Unlock()
			case !errors.Is(err, domain.ErrJobClosed):
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if success != 1 {
		t.Fatalf("expected exactly one contract, got %d", success)
	}
	n2, err := db.Collection(collectionContracts).CountDocuments(context.Background(), bson.M{"job_id": 3})
	if err != nil || n2 != 1 {
		t.Fatalf("expected one stored contract, got %d (%v)", n2, err)
	}
}
