package testassign

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout. Streaming requests
// pass a zero timeout so the solve budget governs instead.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// streamAssignment submits the request and consumes the event stream until
// the run ends, returning the final result.
func streamAssignment(ctx context.Context, config *Config, req *AssignRequest, stats *Stats) (*CompleteEvent, error) {
	log.Printf("📤 Submitting %d participants for assignment into teams of %d...",
		len(req.Participants), req.TargetTeamSize)

	// No client timeout here: the stream stays open for the whole solve.
	client := newHTTPClient(0)
	url := config.BaseURL + "/assign_teams"

	resp, err := client.Post(ctx, url, req)
	if err != nil {
		return nil, fmt.Errorf("failed to submit request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return nil, fmt.Errorf("request rejected with status %d: %s", resp.StatusCode, errResp.Message)
	}

	var (
		complete  *CompleteEvent
		streamErr error
	)
	err = readEventStream(resp.Body, func(event, data string) error {
		switch event {
		case "progress":
			var p ProgressEvent
			if err := json.Unmarshal([]byte(data), &p); err != nil {
				return fmt.Errorf("bad progress payload: %w", err)
			}
			stats.ProgressEvents++
			stats.FinalObjective = p.Objective
			stats.FinalSolutionCount = p.SolutionCount
			if config.Verbose {
				log.Printf("📊 Solution %d: objective %.1f after %.2fs (%d conflicts)",
					p.SolutionCount, p.Objective, p.WallTime, p.Conflicts)
			}
			if p.Message != "" {
				log.Printf("ℹ️  %s", p.Message)
			}
		case "complete":
			var c CompleteEvent
			if err := json.Unmarshal([]byte(data), &c); err != nil {
				return fmt.Errorf("bad complete payload: %w", err)
			}
			complete = &c
		case "error":
			var e struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal([]byte(data), &e)
			streamErr = fmt.Errorf("solve failed: %s", e.Message)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("event stream failed: %w", err)
	}
	if streamErr != nil {
		return nil, streamErr
	}
	if complete == nil {
		return nil, fmt.Errorf("stream ended without a result")
	}
	return complete, nil
}

// readEventStream parses a Server-Sent Events body, invoking handle for
// every event/data pair.
func readEventStream(body io.Reader, handle func(event, data string) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)

	var event, data string
	flush := func() error {
		if event == "" {
			return nil
		}
		err := handle(event, data)
		event, data = "", ""
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if err := flush(); err != nil {
				return err
			}
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read stream: %w", err)
	}
	return flush()
}
