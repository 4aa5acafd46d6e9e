package poller

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/wxrouter/wxrouter/internal/logger"
)

// WaitForReady polls url until it answers with a 2xx status or the timeout
// elapses. Used to hold the first fetch until a dependent service is up.
func WaitForReady(ctx context.Context, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	attempt := 0
	for {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				logger.Info("Upstream ready", "url", url, "attempts", attempt)
				return nil
			}
			logger.Debug("Upstream not ready", "url", url, "status", resp.StatusCode)
		} else {
			logger.Debug("Upstream not reachable", "url", url, "error", err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("upstream %s not ready after %d attempts: %w", url, attempt, ctx.Err())
		case <-ticker.C:
		}
	}
}
