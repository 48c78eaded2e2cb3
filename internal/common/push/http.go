// internal/common/push/http.go
package push

import (
	"context"
	"fmt"
	"io"
	"time"

	"gig-dispatch/internal/common/config"
	commonhttp "gig-dispatch/internal/common/http"
	"gig-dispatch/internal/common/logger"
)

// HTTPGateway delivers notifications through an internal push relay service.
type HTTPGateway struct {
	client    *commonhttp.Client
	baseURL   string
	authToken string
	logger    logger.Logger
}

func NewHTTPGateway(cfg config.HTTPPushConfig, log logger.Logger) *HTTPGateway {
	return &HTTPGateway{
		client:    commonhttp.NewClient(timeoutFromMillis(cfg.Timeout, 5*time.Second)),
		baseURL:   cfg.BaseURL,
		authToken: cfg.AuthToken,
		logger:    log.WithFields(map[string]interface{}{"pushProvider": "http"}),
	}
}

func (g *HTTPGateway) Send(ctx context.Context, n *Notification) error {
	resp, err := g.client.PostJSON(ctx, g.baseURL+"/v1/push", n, g.authToken)
	if err != nil {
		return fmt.Errorf("push relay request failed: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("push relay returned status %d for recipient %s", resp.StatusCode, n.RecipientID)
	}

	g.logger.Debug("push delivered", map[string]interface{}{
		"recipientId": n.RecipientID,
		"category":    n.Category,
	})
	return nil
}
