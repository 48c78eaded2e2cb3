// internal/models/gig.go
package models

import "time"

type GigCategory string

const (
	GigCategoryUrgent   GigCategory = "urgent"
	GigCategoryStandard GigCategory = "standard"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusEscrowed PaymentStatus = "escrowed"
	PaymentStatusReleased PaymentStatus = "released"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// GeoPoint is a WGS84 coordinate in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// GigRequest is a paid, time-critical job posting. Skill, location and
// amount are immutable once the gig is paid; only the payment status is
// mutated by the dispatch pass.
type GigRequest struct {
	ID            string        `json:"id"`
	RequesterID   string        `json:"requesterId"`
	Category      GigCategory   `json:"category"`
	Skill         string        `json:"skill"`
	Genres        []string      `json:"genres,omitempty"`
	Location      GeoPoint      `json:"location"`
	RadiusKm      float64       `json:"radiusKm"`
	DurationHours float64       `json:"durationHours"`
	Amount        float64       `json:"amount"`
	Currency      string        `json:"currency"`
	LocationLabel string        `json:"locationLabel,omitempty"`
	NeededBy      time.Time     `json:"neededBy"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	PaymentRef    string        `json:"paymentRef"`
	CreatedAt     time.Time     `json:"createdAt"`
}
