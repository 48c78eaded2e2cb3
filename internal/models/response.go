// internal/models/response.go
package models

import "time"

type ResponseStatus string

const (
	ResponseStatusPending  ResponseStatus = "pending"
	ResponseStatusAccepted ResponseStatus = "accepted"
	ResponseStatusDeclined ResponseStatus = "declined"
	ResponseStatusExpired  ResponseStatus = "expired"
)

// GigResponse tracks whether a dispatched candidate accepted, declined,
// or has not yet responded. Created by the dispatch pass with status
// pending; mutated afterwards by the candidate-response and expiry flows.
type GigResponse struct {
	ID          string         `json:"id"`
	GigID       string         `json:"gigId"`
	CandidateID string         `json:"candidateId"`
	Status      ResponseStatus `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
}
