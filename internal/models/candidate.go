// internal/models/candidate.go
package models

import "time"

// CandidateAvailability is owned and updated by the candidate; the
// dispatch engine only reads it.
type CandidateAvailability struct {
	CandidateID    string
	LiveLocation   *GeoPoint
	LiveLocationAt *time.Time
	GeneralArea    *GeoPoint
	MaxRadiusKm    float64
	HourlyRate     float64
	FlatRate       *float64
	Negotiable     bool
	// Schedule is nil when the stored schedule could not be parsed;
	// scoring treats that as ambiguous rather than unavailable.
	Schedule               *WeekSchedule
	QuietHours             *TimeWindow
	MaxNotificationsPerDay int
}

// Location returns the candidate's live location when present, falling
// back to the declared general area. ok is false when neither is set.
func (a *CandidateAvailability) Location() (GeoPoint, bool) {
	if a.LiveLocation != nil {
		return *a.LiveLocation, true
	}
	if a.GeneralArea != nil {
		return *a.GeneralArea, true
	}
	return GeoPoint{}, false
}

// CandidateProfile is assembled by joining skill, genre, rating and
// preference records; read-only to the engine.
type CandidateProfile struct {
	CandidateID string   `json:"candidateId"`
	Skills      []string `json:"skills"`
	Genres      []string `json:"genres"`
	RatingAvg   float64  `json:"ratingAvg"`
	RatingCount int      `json:"ratingCount"`
	Timezone    string   `json:"timezone"`
	UrgentOptIn bool     `json:"urgentOptIn"`
}

// MatchScore is the transient per-candidate result of one matching pass;
// it is never persisted.
type MatchScore struct {
	CandidateID string
	DistanceKm  float64
	Score       float64
	Breakdown   ScoreBreakdown
}

// ScoreBreakdown holds the unweighted component values in [0,1].
type ScoreBreakdown struct {
	Distance     float64
	SkillGenre   float64
	Rating       float64
	Availability float64
	Budget       float64
}
