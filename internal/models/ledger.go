// internal/models/ledger.go
package models

import "time"

type NotificationCategory string

const (
	CategoryUrgentGig NotificationCategory = "urgent_gig"
)

type NotificationOutcome string

const (
	OutcomeSent     NotificationOutcome = "sent"
	OutcomeDeclined NotificationOutcome = "declined"
)

// NotificationLedgerEntry is an append-only record of one notification
// attempt. Daily caps and decline cooldowns are enforced by time-window
// aggregation over these rows.
type NotificationLedgerEntry struct {
	ID          string               `json:"id"`
	CandidateID string               `json:"candidateId"`
	Category    NotificationCategory `json:"category"`
	GigID       string               `json:"gigId"`
	Outcome     NotificationOutcome  `json:"outcome"`
	CreatedAt   time.Time            `json:"createdAt"`
}
