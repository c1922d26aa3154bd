package server

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const healthPollInterval = 100 * time.Millisecond

// WaitForHealthy polls http://addr/health until it answers 200 OK or ctx ends.
// addr is the websocket listener's host:port.
func WaitForHealthy(ctx context.Context, addr string) error {
	url := fmt.Sprintf("http://%s/health", addr)
	client := &http.Client{Timeout: time.Second}

	ticker := time.NewTicker(healthPollInterval)
	defer ticker.Stop()

	for {
		if healthy(ctx, client, url) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", url, ctx.Err())
		case <-ticker.C:
		}
	}
}

func healthy(ctx context.Context, client *http.Client, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
