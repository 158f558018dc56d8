package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultSearchTimeout = 10 * time.Second

// getJSON issues a GET to rawURL and decodes a 2xx JSON body into dst.
func getJSON(ctx context.Context, hc *http.Client, rawURL, userAgent, provider string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	if hc == nil {
		hc = &http.Client{Timeout: defaultSearchTimeout}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s status: %d", provider, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s response: %w", provider, err)
	}
	return nil
}
