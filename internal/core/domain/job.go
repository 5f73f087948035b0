package domain

// JobStatus is the lifecycle state of a job posting.
type JobStatus string

const (
	JobOpen   JobStatus = "open"
	JobClosed JobStatus = "closed"
)

// Job is a posting owned by a client. The hub reads its owner and status.
type Job struct {
	ID          int64     `json:"id" bson:"_id"`
	ClientID    int64     `json:"client_id" bson:"client_id"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Budget      int64     `json:"budget" bson:"budget"`
	Status      JobStatus `json:"status" bson:"status"`
}

// Proposal is a freelancer's bid on exactly one job.
type Proposal struct {
	ID           int64  `json:"id" bson:"_id"`
	JobID        int64  `json:"job_id" bson:"job_id"`
	FreelancerID int64  `json:"freelancer_id" bson:"freelancer_id"`
	BidAmount    int64  `json:"bid_amount" bson:"bid_amount"`
	CoverLetter  string `json:"cover_letter,omitempty" bson:"cover_letter,omitempty"`
}
