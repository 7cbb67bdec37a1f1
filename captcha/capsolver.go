package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	capsolverAPI     = "https://api.capsolver.com"
	pollInterval     = 3 * time.Second
	solveTimeout     = 120 * time.Second
	balanceWarnLevel = 5.0 // USD
)

// Capsolver implements Solver using the Capsolver API.
type Capsolver struct {
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	client       *http.Client
}

// NewCapsolver creates a Capsolver client with the given API key.
func NewCapsolver(apiKey string) *Capsolver {
	return &Capsolver{
		apiKey:       apiKey,
		baseURL:      capsolverAPI,
		pollInterval: pollInterval,
		client:       &http.Client{Timeout: 10 * time.Second},
	}
}

// apiStatus is the error envelope shared by every Capsolver response.
type apiStatus struct {
	ErrorID          int    `json:"errorId"`
	ErrorCode        string `json:"errorCode"`
	ErrorDescription string `json:"errorDescription"`
}

func (s apiStatus) err(op string) error {
	if s.ErrorID == 0 {
		return nil
	}
	return fmt.Errorf("capsolver %s error %s: %s", op, s.ErrorCode, s.ErrorDescription)
}

// Solve submits a FunCaptcha (Arkose Labs) challenge and polls until it is solved.
func (c *Capsolver) Solve(ctx context.Context, siteKey, pageURL string) (string, error) {
	if bal, err := c.Balance(ctx); err == nil && bal < balanceWarnLevel {
		slog.Warn("Capsolver balance low", slog.Float64("balance", bal))
	}

	var created struct {
		apiStatus
		TaskID string `json:"taskId"`
	}
	err := c.post(ctx, "/createTask", map[string]any{
		"clientKey": c.apiKey,
		"task": map[string]any{
			"type":             "FunCaptchaTaskProxyLess",
			"websiteURL":       pageURL,
			"websitePublicKey": siteKey,
		},
	}, &created)
	if err != nil {
		return "", fmt.Errorf("capsolver createTask: %w", err)
	}
	if err := created.err("createTask"); err != nil {
		return "", err
	}
	if created.TaskID == "" {
		return "", fmt.Errorf("capsolver: empty taskId in response")
	}
	slog.Info("CAPTCHA task created", slog.String("taskId", created.TaskID))

	ctx, cancel := context.WithTimeout(ctx, solveTimeout)
	defer cancel()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var result struct {
			apiStatus
			Status   string `json:"status"`
			Solution struct {
				Token string `json:"token"`
			} `json:"solution"`
		}
		req := map[string]any{"clientKey": c.apiKey, "taskId": created.TaskID}
		if err := c.post(ctx, "/getTaskResult", req, &result); err != nil {
			return "", fmt.Errorf("capsolver getTaskResult: %w", err)
		}
		if err := result.err("getTaskResult"); err != nil {
			return "", err
		}

		switch result.Status {
		case "ready":
			if result.Solution.Token == "" {
				return "", fmt.Errorf("capsolver: ready but empty token")
			}
			slog.Info("CAPTCHA solved", slog.String("taskId", created.TaskID))
			return result.Solution.Token, nil
		case "processing", "idle":
		default:
			return "", fmt.Errorf("capsolver: unexpected status %q", result.Status)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("capsolver: waiting for task %s: %w", created.TaskID, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Balance returns the Capsolver account balance in USD.
func (c *Capsolver) Balance(ctx context.Context) (float64, error) {
	var resp struct {
		apiStatus
		Balance float64 `json:"balance"`
	}
	if err := c.post(ctx, "/getBalance", map[string]any{"clientKey": c.apiKey}, &resp); err != nil {
		return 0, err
	}
	if err := resp.err("getBalance"); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

// post sends a JSON POST request to the Capsolver API and decodes the response.
func (c *Capsolver) post(ctx context.Context, path string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("capsolver HTTP %d: %s", resp.StatusCode, string(data[:min(200, len(data))]))
	}
	return json.Unmarshal(data, result)
}
