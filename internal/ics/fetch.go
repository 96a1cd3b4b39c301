// Package ics turns ICS calendar feeds into candidate events for the
// merge-write engine, expanding recurring events into concrete
// occurrences whose ids carry the series' occurrence-timestamp suffix.
package ics

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Fetch retrieves the raw ICS payload at rawURL
func Fetch(rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequest("GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "calstore/1.0 (calendar-sync)")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	// Feeds are small; 10MB is already a misbehaving server.
	limited := io.LimitReader(resp.Body, 10*1024*1024)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty ICS body")
	}
	return body, nil
}
