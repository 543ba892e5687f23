package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"leaddesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type stubEnqueuer struct {
	calls  int
	window int
	dryRun bool
	err    error
}

func (s *stubEnqueuer) EnqueueDedupScan(_ context.Context, windowMinutes int, dryRun bool) error {
	s.calls++
	s.window = windowMinutes
	s.dryRun = dryRun
	return s.err
}

func newAdminRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterAdminRoutes(r.Group("/admin"))
	return r
}

func TestDedupScanAsyncEnqueues(t *testing.T) {
	h := New(nil, validator.New())
	enq := &stubEnqueuer{}
	h.SetDedupEnqueuer(enq)
	r := newAdminRouter(h)

	req := httptest.NewRequest(http.MethodPost,
		"/admin/dedup-leads?async=true&dry_run=false&window_minutes=90", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusAccepted, w.Body.String())
	}
	if enq.calls != 1 || enq.window != 90 || enq.dryRun {
		t.Errorf("enqueue = %+v, want one applied scan with window 90", enq)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["enqueued"] != true || body["dry_run"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestDedupScanAsyncDefaultsToDryRun(t *testing.T) {
	h := New(nil, validator.New())
	enq := &stubEnqueuer{}
	h.SetDedupEnqueuer(enq)
	r := newAdminRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/admin/dedup-leads?async=true", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusAccepted)
	}
	if enq.calls != 1 || !enq.dryRun || enq.window != 0 {
		t.Errorf("enqueue = %+v, want one dry scan with default window", enq)
	}
}

func TestDedupScanAsyncWithoutQueue(t *testing.T) {
	h := New(nil, validator.New())
	r := newAdminRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/admin/dedup-leads?async=true", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestDedupScanRejectsBadWindow(t *testing.T) {
	h := New(nil, validator.New())
	r := newAdminRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/admin/dedup-leads?window_minutes=zero", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
