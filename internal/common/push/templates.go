// internal/common/push/templates.go
package push

import (
	"fmt"
	"strings"
	"time"

	"gig-dispatch/internal/models"
)

const (
	urgentGigTitle = "Urgent gig near you: {{skill}}"
	urgentGigBody  = "{{skill}} needed {{distanceKm}} km away at {{locationLabel}}. {{currency}}{{amount}} for {{durationHours}}h, starting {{neededBy}}."
)

// BuildUrgentGigNotification renders the urgent-gig push for one candidate.
func BuildUrgentGigNotification(gig *models.GigRequest, candidateID string, distanceKm float64, deepLinkBase string) *Notification {
	data := map[string]interface{}{
		"skill":         gig.Skill,
		"distanceKm":    fmt.Sprintf("%.1f", distanceKm),
		"locationLabel": gig.LocationLabel,
		"currency":      gig.Currency,
		"amount":        fmt.Sprintf("%.0f", gig.Amount),
		"durationHours": fmt.Sprintf("%g", gig.DurationHours),
		"neededBy":      gig.NeededBy.Format("15:04 MST"),
	}

	return &Notification{
		RecipientID: candidateID,
		Title:       renderTemplate(urgentGigTitle, data),
		Body:        renderTemplate(urgentGigBody, data),
		Category:    string(models.CategoryUrgentGig),
		Priority:    "high",
		Payload: Payload{
			GigID:      gig.ID,
			DistanceKm: distanceKm,
			Amount:     gig.Amount,
			Currency:   gig.Currency,
			Skill:      gig.Skill,
			Genres:     gig.Genres,
			NeededBy:   gig.NeededBy.UTC().Format(time.RFC3339),
			DeepLink:   fmt.Sprintf("%s/gigs/%s", strings.TrimRight(deepLinkBase, "/"), gig.ID),
		},
	}
}

// Simplified template rendering with placeholder removal for missing values
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	// First, replace all known placeholders
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if i, ok := v.(int); ok {
			value = fmt.Sprintf("%d", i)
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	// Remove any remaining placeholders (missing values)
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}
