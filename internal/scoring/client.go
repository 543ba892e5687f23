// Package scoring provides the HTTP client for the external lead scoring
// service. The scorer receives a lead snapshot plus its ordered event
// history and proposes a new score; the state machine decides what that
// score means for stage and status.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"leaddesk_backend/internal/leads/domain"
	"leaddesk_backend/platform/apperr"
	"leaddesk_backend/platform/config"
	"leaddesk_backend/platform/logger"
)

// Request is the payload sent to the scorer.
type Request struct {
	Lead   any `json:"lead"`
	Events any `json:"events"`
}

// Result is the scorer's verdict. Meta keeps unknown keys so whatever the
// scorer attaches survives into the lead's stored metadata.
type Result struct {
	Score   float64          `json:"score"`
	Status  string           `json:"status"`
	Reasons []domain.Reason  `json:"reasons"`
	Meta    domain.ScoreMeta `json:"meta"`
}

// Client calls the external scoring service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        *logger.Logger
}

// New creates a scoring client from config.
func New(cfg config.ScoringConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.GetScoringTimeout()},
		baseURL:    strings.TrimRight(cfg.GetScoringURL(), "/"),
		log:        log,
	}
}

// Score submits a lead snapshot and event history for scoring. Upstream
// failures surface as KindUpstream errors so handlers answer 502.
func (c *Client) Score(ctx context.Context, leadID string, payload Request) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal scoring request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build scoring request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "scoring service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, apperr.Upstream(fmt.Sprintf("scoring service returned %d", resp.StatusCode)).
			WithDetails(strings.TrimSpace(string(detail)))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "scoring service returned invalid JSON", err)
	}

	c.log.ScoringCall(leadID, int(result.Score), result.Status, float64(time.Since(start).Milliseconds()))
	return &result, nil
}
