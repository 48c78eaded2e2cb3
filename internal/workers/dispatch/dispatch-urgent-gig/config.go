// internal/workers/dispatch/dispatch-urgent-gig/config.go
package dispatchurgentgig

import (
	"time"

	"gig-dispatch/internal/common/config"
)

type Config struct {
	Timeout           time.Duration
	ProfileCacheTTL   time.Duration
	LocationFreshness time.Duration
	GuardTTL          time.Duration
	DeepLinkBaseURL   string
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout:           30 * time.Second,
		ProfileCacheTTL:   time.Duration(cfg.Dispatch.ProfileCacheTTL) * time.Second,
		LocationFreshness: time.Duration(cfg.Dispatch.LocationFreshness) * time.Hour,
		GuardTTL:          time.Duration(cfg.Dispatch.GuardTTL) * time.Hour,
		DeepLinkBaseURL:   cfg.Dispatch.DeepLinkBaseURL,
	}
}
