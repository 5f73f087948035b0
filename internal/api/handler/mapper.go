package handler

import (
	"time"

	"github.com/gigmarket/contract-hub/internal/core/domain"
	"github.com/gigmarket/contract-hub/internal/core/ports"
)

// --- Request → Service input ---

func toRegisterInput(req registerRequest) ports.RegisterInput {
	return ports.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	}
}

// --- Domain → Response ---

func toUserResponse(u *domain.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: formatTime(u.CreatedAt),
	}
}

func toContractResponse(c *domain.Contract) contractResponse {
	return contractResponse{
		ID:           c.ID,
		JobID:        c.JobID,
		ProposalID:   c.ProposalID,
		ClientID:     c.ClientID,
		FreelancerID: c.FreelancerID,
		Amount:       c.Amount,
		Status:       string(c.Status),
		CreatedAt:    formatTime(c.CreatedAt),
	}
}

func toContractList(items []*domain.Contract) contractListResponse {
	out := contractListResponse{Items: make([]contractResponse, 0, len(items))}
	for _, c := range items {
		out.Items = append(out.Items, toContractResponse(c))
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
