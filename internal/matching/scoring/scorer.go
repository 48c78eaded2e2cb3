// internal/matching/scoring/scorer.go
package scoring

import (
	"sort"
	"strings"
	"time"

	"gig-dispatch/internal/matching/geo"
	"gig-dispatch/internal/models"
)

const (
	WeightDistance     = 0.25
	WeightSkillGenre   = 0.40
	WeightRating       = 0.20
	WeightAvailability = 0.10
	WeightBudget       = 0.05

	// SkillWeight and GenreWeight split the skill+genre component.
	SkillWeight = 0.7
	GenreWeight = 0.3

	// RatingFloor is the minimum average rating; candidates below it are
	// excluded before scoring rather than down-weighted.
	RatingFloor = 4.0

	// NeutralRating is the rating subscore for candidates with no ratings yet.
	NeutralRating = 0.6

	// ShortlistSize is the maximum number of candidates that proceed past
	// ranking.
	ShortlistSize = 10
)

// MeetsRatingFloor reports whether the candidate survives the hard rating
// cutoff. Unrated candidates pass; they get the neutral subscore instead.
func MeetsRatingFloor(profile *models.CandidateProfile) bool {
	return profile.RatingCount == 0 || profile.RatingAvg >= RatingFloor
}

// Score computes the composite match score for one eligible candidate.
// distanceKm must be the already-computed haversine distance used for
// eligibility.
func Score(
	gig *models.GigRequest,
	profile *models.CandidateProfile,
	avail *models.CandidateAvailability,
	distanceKm float64,
	now time.Time,
) models.MatchScore {
	breakdown := models.ScoreBreakdown{
		Distance:     distanceSubscore(gig, avail, distanceKm),
		SkillGenre:   skillGenreSubscore(gig, profile),
		Rating:       ratingSubscore(profile),
		Availability: availabilitySubscore(profile, avail, now),
		Budget:       budgetSubscore(gig, avail),
	}

	total := WeightDistance*breakdown.Distance +
		WeightSkillGenre*breakdown.SkillGenre +
		WeightRating*breakdown.Rating +
		WeightAvailability*breakdown.Availability +
		WeightBudget*breakdown.Budget

	return models.MatchScore{
		CandidateID: profile.CandidateID,
		DistanceKm:  distanceKm,
		Score:       total,
		Breakdown:   breakdown,
	}
}

func distanceSubscore(gig *models.GigRequest, avail *models.CandidateAvailability, distanceKm float64) float64 {
	radius := geo.EffectiveRadius(gig.RadiusKm, avail.MaxRadiusKm)
	if radius <= 0 {
		return 0
	}
	s := 1 - distanceKm/radius
	if s < 0 {
		return 0
	}
	return s
}

func skillGenreSubscore(gig *models.GigRequest, profile *models.CandidateProfile) float64 {
	skillMatch := 0.0
	wanted := strings.ToLower(gig.Skill)
	for _, s := range profile.Skills {
		if strings.Contains(strings.ToLower(s), wanted) {
			skillMatch = 1
			break
		}
	}

	genreOverlap := 1.0
	if len(gig.Genres) > 0 {
		candidateGenres := make(map[string]bool, len(profile.Genres))
		for _, g := range profile.Genres {
			candidateGenres[strings.ToLower(g)] = true
		}
		matched := 0
		for _, g := range gig.Genres {
			if candidateGenres[strings.ToLower(g)] {
				matched++
			}
		}
		genreOverlap = float64(matched) / float64(len(gig.Genres))
	}

	return SkillWeight*skillMatch + GenreWeight*genreOverlap
}

func ratingSubscore(profile *models.CandidateProfile) float64 {
	if profile.RatingCount == 0 {
		return NeutralRating
	}
	return (profile.RatingAvg - 1) / 4
}

// availabilitySubscore evaluates the candidate's weekly schedule at the
// current instant in their own time zone. A missing or unparseable schedule,
// or an unknown time zone, scores the ambiguous 0.5 rather than 0.
func availabilitySubscore(profile *models.CandidateProfile, avail *models.CandidateAvailability, now time.Time) float64 {
	if avail.Schedule == nil {
		return 0.5
	}

	loc, err := time.LoadLocation(profile.Timezone)
	if err != nil {
		return 0.5
	}

	if avail.Schedule.At(now.In(loc)) {
		return 1
	}
	return 0
}

func budgetSubscore(gig *models.GigRequest, avail *models.CandidateAvailability) float64 {
	rate := avail.HourlyRate * gig.DurationHours
	if avail.FlatRate != nil && *avail.FlatRate < rate {
		rate = *avail.FlatRate
	}

	if rate <= gig.Amount {
		return 1
	}
	if avail.Negotiable {
		return 0.5
	}
	return 0
}

// Rank sorts scores descending, preserving input order among ties.
func Rank(scores []models.MatchScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
}

// Shortlist returns the top candidates after ranking, at most ShortlistSize.
func Shortlist(scores []models.MatchScore) []models.MatchScore {
	Rank(scores)
	if len(scores) > ShortlistSize {
		return scores[:ShortlistSize]
	}
	return scores
}
