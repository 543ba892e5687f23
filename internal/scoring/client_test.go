package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leaddesk_backend/platform/apperr"
	"leaddesk_backend/platform/logger"
)

type testConfig struct {
	url     string
	timeout time.Duration
}

func (c testConfig) GetScoringURL() string            { return c.url }
func (c testConfig) GetScoringTimeout() time.Duration { return c.timeout }

func newTestClient(url string) *Client {
	return New(testConfig{url: url, timeout: 2 * time.Second}, logger.New("test"))
}

func TestScoreSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/score" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if _, ok := payload["lead"]; !ok {
			t.Error("payload missing lead")
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"score": 72,
			"status": "QUALIFIED",
			"reasons": [{"factor": "recent engagement", "impact": 12, "detail": "replied twice"}],
			"meta": {
				"engine": "external_scorer",
				"model_name": "lead_scoring_v2",
				"probability_qualified": 0.81,
				"feature_weights": {"recency": 0.4}
			}
		}`))
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL).Score(context.Background(), "lead-1", Request{
		Lead:   map[string]any{"id": "lead-1"},
		Events: []any{},
	})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if result.Score != 72 || result.Status != "QUALIFIED" {
		t.Errorf("result = %+v", result)
	}
	if len(result.Reasons) != 1 || result.Reasons[0].Factor != "recent engagement" {
		t.Errorf("reasons = %+v", result.Reasons)
	}
	if result.Meta.Engine != "external_scorer" || result.Meta.ModelName != "lead_scoring_v2" {
		t.Errorf("meta attribution = %q/%q", result.Meta.Engine, result.Meta.ModelName)
	}
	if result.Meta.ProbabilityQualified == nil || *result.Meta.ProbabilityQualified != 0.81 {
		t.Errorf("probability = %v", result.Meta.ProbabilityQualified)
	}
	if _, ok := result.Meta.Extra["feature_weights"]; !ok {
		t.Error("unknown meta key dropped")
	}
}

func TestScoreUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Score(context.Background(), "lead-1", Request{})
	if !apperr.Is(err, apperr.KindUpstream) {
		t.Errorf("err = %v, want upstream kind", err)
	}
}

func TestScoreInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Score(context.Background(), "lead-1", Request{})
	if !apperr.Is(err, apperr.KindUpstream) {
		t.Errorf("err = %v, want upstream kind", err)
	}
}

func TestScoreUnreachable(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:1").Score(context.Background(), "lead-1", Request{})
	if !apperr.Is(err, apperr.KindUpstream) {
		t.Errorf("err = %v, want upstream kind", err)
	}
}
