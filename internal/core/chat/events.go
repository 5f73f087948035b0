package chat

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/gigmarket/contract-hub/internal/core/domain"
	"github.com/gigmarket/contract-hub/internal/core/registry"
)

// EventType tags every outbound frame.
type EventType string

const (
	EventChat            EventType = "chat"
	EventUserJoined      EventType = "user_joined"
	EventUserLeft        EventType = "user_left"
	EventContractCreated EventType = "contract_created"
	EventError           EventType = "error"
)

// Event is the JSON object written to a participant. Only the fields that
// belong to Type are set.
type Event struct {
	Type         EventType             `json:"type"`
	From         int64                 `json:"from,omitempty"`
	Message      string                `json:"message,omitempty"`
	UserID       int64                 `json:"user_id,omitempty"`
	ContractID   int64                 `json:"contract_id,omitempty"`
	JobID        int64                 `json:"job_id,omitempty"`
	ClientID     int64                 `json:"client_id,omitempty"`
	FreelancerID int64                 `json:"freelancer_id,omitempty"`
	Status       domain.ContractStatus `json:"status,omitempty"`
	Error        string                `json:"error,omitempty"`
}

func chatEvent(from int64, message string) Event {
	return Event{Type: EventChat, From: from, Message: message}
}

func joinedEvent(userID int64) Event {
	return Event{Type: EventUserJoined, UserID: userID}
}

func leftEvent(userID int64) Event {
	return Event{Type: EventUserLeft, UserID: userID}
}

func contractCreatedEvent(e registry.Entry) Event {
	return Event{
		Type:         EventContractCreated,
		ContractID:   e.ContractID,
		JobID:        e.JobID,
		ClientID:     e.ClientID,
		FreelancerID: e.FreelancerID,
		Status:       e.Status,
	}
}

func errorEvent(msg string) Event {
	return Event{Type: EventError, Error: msg}
}

// frameError is a malformed inbound frame. Its text goes back to the
// sender verbatim.
type frameError struct{ msg string }

func (e *frameError) Error() string { return e.msg }
func (e *frameError) Unwrap() error { return domain.ErrMalformed }

var (
	ErrInvalidFrame    error = &frameError{"invalid message format"}
	ErrMessageRequired error = &frameError{"message is required"}
	ErrRateLimited           = errors.New("rate limit exceeded")
)

type inboundFrame struct {
	Message string `json:"message" validate:"required"`
}

// parseFrame decodes an inbound chat frame.
func parseFrame(v *validator.Validate, frame []byte) (string, error) {
	var in inboundFrame
	if err := json.Unmarshal(frame, &in); err != nil {
		return "", ErrInvalidFrame
	}
	if err := v.Struct(in); err != nil {
		return "", ErrMessageRequired
	}
	return in.Message, nil
}
