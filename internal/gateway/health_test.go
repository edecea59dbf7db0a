package gateway

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

func TestHandleHealth_OK(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOpts{upstream: telegramOK(`{}`)})

	rr := h.do(http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want %q", resp.Status, "ok")
	}
	if _, err := time.Parse(time.RFC3339, resp.Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", resp.Timestamp, err)
	}
	if h.hits.Load() != 0 {
		t.Error("health check called upstream")
	}
}

func TestHandleHealth_UpstreamDown(t *testing.T) {
	t.Parallel()

	// nil upstream: every Telegram call would fail.
	h := newHarness(t, harnessOpts{})

	rr := h.do(http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestHandleHealth_PublicWithAuth(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOpts{
		upstream: telegramOK(`{}`),
		mutate:   withBearer("s3cret"),
	})

	if rr := h.do(http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}
