package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type registerRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role"     validate:"required,oneof=client freelancer"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

type authResponse struct {
	Token     string        `json:"token,omitempty"`
	TokenType string        `json:"token_type,omitempty"`
	User      *userResponse `json:"user,omitempty"`
}

type contractResponse struct {
	ID           int64  `json:"id"`
	JobID        int64  `json:"job_id"`
	ProposalID   int64  `json:"proposal_id"`
	ClientID     int64  `json:"client_id"`
	FreelancerID int64  `json:"freelancer_id"`
	Amount       int64  `json:"amount"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
}

type contractListResponse struct {
	Items []contractResponse `json:"items"`
}
