package domain

import "time"

// ContractStatus represents the lifecycle state of a contract.
type ContractStatus string

const (
	ContractOngoing   ContractStatus = "ongoing"
	ContractCompleted ContractStatus = "completed"
)

// Contract binds a client and a freelancer once a proposal is accepted.
// The (ClientID, FreelancerID) pair never changes after creation.
type Contract struct {
	ID           int64          `json:"id" bson:"_id"`
	JobID        int64          `json:"job_id" bson:"job_id"`
	ProposalID   int64          `json:"proposal_id" bson:"proposal_id"`
	ClientID     int64          `json:"client_id" bson:"client_id"`
	FreelancerID int64          `json:"freelancer_id" bson:"freelancer_id"`
	Amount       int64          `json:"amount" bson:"amount"`
	Status       ContractStatus `json:"status" bson:"status"`
	CreatedAt    time.Time      `json:"created_at" bson:"created_at"`
}

// IsParty reports whether userID is the contract's client or freelancer.
func (c *Contract) IsParty(userID int64) bool {
	return userID != 0 && (userID == c.ClientID || userID == c.FreelancerID)
}

// Counterpart returns the other party of the contract, or 0 when userID is
// not a party.
func (c *Contract) Counterpart(userID int64) int64 {
	switch userID {
	case c.ClientID:
		return c.FreelancerID
	case c.FreelancerID:
		return c.ClientID
	}
	return 0
}
