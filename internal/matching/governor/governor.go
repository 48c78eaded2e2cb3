// internal/matching/governor/governor.go
package governor

import (
	"time"

	"gig-dispatch/internal/models"
)

const (
	// DefaultDailyCap applies when a candidate has not set their own limit.
	DefaultDailyCap = 5

	// DeclineCooldownWindow is the trailing window scanned for declines.
	DeclineCooldownWindow = 2 * time.Hour

	// DeclineCooldownThreshold is the decline count at which a candidate
	// is rested for the pass.
	DeclineCooldownThreshold = 3
)

// Suppression reasons, recorded in logs and metrics.
const (
	ReasonQuietHours      = "quiet_hours"
	ReasonOptOut          = "opt_out"
	ReasonDailyCap        = "daily_cap"
	ReasonDeclineCooldown = "decline_cooldown"
)

// Input carries everything the governor needs for one candidate. SentToday
// counts ledger entries for this category since the UTC midnight before Now;
// RecentDeclines counts declined entries within DeclineCooldownWindow of Now.
type Input struct {
	Profile        *models.CandidateProfile
	Availability   *models.CandidateAvailability
	SentToday      int
	RecentDeclines int
	Now            time.Time
}

// Decision is the governor's verdict for one candidate.
type Decision struct {
	Allowed bool
	Reason  string
}

// Evaluate applies the suppression rules in order: quiet hours, opt-out,
// daily cap, decline cooldown. A suppressed candidate is skipped, never
// replaced from further down the ranking.
func Evaluate(in Input) Decision {
	if inQuietHours(in.Profile, in.Availability, in.Now) {
		return Decision{Reason: ReasonQuietHours}
	}

	if !in.Profile.UrgentOptIn {
		return Decision{Reason: ReasonOptOut}
	}

	dailyCap := in.Availability.MaxNotificationsPerDay
	if dailyCap <= 0 {
		dailyCap = DefaultDailyCap
	}
	if in.SentToday >= dailyCap {
		return Decision{Reason: ReasonDailyCap}
	}

	if in.RecentDeclines >= DeclineCooldownThreshold {
		return Decision{Reason: ReasonDeclineCooldown}
	}

	return Decision{Allowed: true}
}

// inQuietHours checks the quiet window in the candidate's own time zone.
// Candidates with no window, or with a time zone we cannot resolve, are not
// suppressed.
func inQuietHours(profile *models.CandidateProfile, avail *models.CandidateAvailability, now time.Time) bool {
	if avail.QuietHours == nil {
		return false
	}

	loc, err := time.LoadLocation(profile.Timezone)
	if err != nil {
		return false
	}

	local := now.In(loc)
	return avail.QuietHours.Contains(models.TimeOfDay{Hour: local.Hour(), Minute: local.Minute()})
}
