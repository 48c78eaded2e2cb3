// internal/common/push/gateway.go
package push

import (
	"context"
	"fmt"
	"time"

	"gig-dispatch/internal/common/config"
	"gig-dispatch/internal/common/logger"
)

// Notification is a single push message addressed to one candidate device group.
type Notification struct {
	RecipientID string  `json:"recipientId"`
	Title       string  `json:"title"`
	Body        string  `json:"body"`
	Category    string  `json:"category"`
	Priority    string  `json:"priority"`
	Payload     Payload `json:"payload"`
}

// Payload carries the structured gig context a client app needs to render
// the notification and deep-link into the gig.
type Payload struct {
	GigID      string   `json:"gigId"`
	DistanceKm float64  `json:"distanceKm"`
	Amount     float64  `json:"amount"`
	Currency   string   `json:"currency"`
	Skill      string   `json:"skill"`
	Genres     []string `json:"genres,omitempty"`
	NeededBy   string   `json:"neededBy"`
	DeepLink   string   `json:"deepLink"`
}

// Gateway delivers push notifications. Implementations must be safe for
// concurrent use.
type Gateway interface {
	Send(ctx context.Context, n *Notification) error
}

// NewGateway builds the configured push gateway implementation.
func NewGateway(ctx context.Context, cfg config.PushConfig, log logger.Logger) (Gateway, error) {
	switch cfg.Provider {
	case "http":
		return NewHTTPGateway(cfg.HTTP, log), nil
	case "sns":
		return NewSNSGateway(ctx, cfg.SNS, log)
	default:
		return nil, fmt.Errorf("unknown push provider: %s", cfg.Provider)
	}
}

// timeoutFromMillis converts a millisecond config value with a fallback.
func timeoutFromMillis(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
