// Package probe checks whether a deployed application answers over HTTP.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Timeout bounds a single public reachability probe.
const Timeout = 10 * time.Second

// Outcome is the result of a reachability probe.
type Outcome string

const (
	OutcomeFull         Outcome = "full"
	OutcomeHeadOnly     Outcome = "head-only"
	OutcomeInconclusive Outcome = "inconclusive"
)

// Report describes a probe.
type Report struct {
	URL     string
	Outcome Outcome
	Status  int
	Err     error
}

// Message is a one-line human summary.
func (r Report) Message() string {
	switch r.Outcome {
	case OutcomeFull:
		return fmt.Sprintf("%s answered GET with HTTP %d", r.URL, r.Status)
	case OutcomeHeadOnly:
		return fmt.Sprintf("%s answered HEAD with HTTP %d (GET failed)", r.URL, r.Status)
	}
	if r.Err != nil {
		return fmt.Sprintf("%s is not reachable yet: %v", r.URL, r.Err)
	}
	return fmt.Sprintf("%s did not answer successfully", r.URL)
}

// NewClient returns an HTTP client with the probe timeout.
func NewClient() *http.Client {
	return &http.Client{Timeout: Timeout}
}

// HTTP tries GET, then HEAD. Any status below 500 counts as an answer:
// a 404 still proves the proxy and application are wired up.
func HTTP(ctx context.Context, client *http.Client, url string) Report {
	report := Report{URL: url, Outcome: OutcomeInconclusive}

	status, err := do(ctx, client, http.MethodGet, url)
	if err == nil {
		report.Outcome = OutcomeFull
		report.Status = status
		return report
	}
	report.Err = err

	if status, err := do(ctx, client, http.MethodHead, url); err == nil {
		report.Outcome = OutcomeHeadOnly
		report.Status = status
		report.Err = nil
		return report
	}

	return report
}

func do(ctx context.Context, client *http.Client, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode >= 500 {
		return resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}
