package pavlok

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
	"github.com/yungbote/oni-coach-backend/internal/platform/httpx"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, url string) Client {
	t.Helper()
	c, err := New(logger.Nop(), Config{APIKey: "k-test", BaseURL: url + "/", MaxRetries: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSendPostsStimulus(t *testing.T) {
	var got stimulusRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/stimulus/send" {
			t.Errorf("request: want POST /stimulus/send got=%s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer k-test" {
			t.Errorf("auth: want=%q got=%q", "Bearer k-test", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if err := c.Send(context.Background(), coach.Stimulus{Type: coach.StimulusZap, Intensity: 45}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.Stimulus.StimulusType != "zap" || got.Stimulus.StimulusValue != 45 {
		t.Fatalf("body: want=zap/45 got=%+v", got.Stimulus)
	}
}

func TestSendDoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.Send(context.Background(), coach.Stimulus{Type: coach.StimulusVibe, Intensity: 100})
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("Send: want HTTPError 503 got=%v", err)
	}
	if !httpx.IsRetryableError(err) {
		t.Fatalf("503 should classify as retryable")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("calls: want=1 got=%d", n)
	}
}

func TestSendRejectsInvalidStimulus(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	err := c.Send(context.Background(), coach.Stimulus{Type: coach.StimulusZap, Intensity: 150})
	if !errors.Is(err, coach.ErrInvalidArgument) {
		t.Fatalf("Send: want ErrInvalidArgument got=%v", err)
	}
}

func TestStatusRetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if r.Method != http.MethodGet || r.URL.Path != "/me" {
			t.Errorf("request: want GET /me got=%s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"battery":72,"isCharging":true,"name":"wrist"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Battery != 72 || !st.IsCharging {
		t.Fatalf("status: want=72/charging got=%d/%v", st.Battery, st.IsCharging)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("calls: want=2 got=%d", n)
	}
}

func TestNewFromEnvFallsBackToDryRun(t *testing.T) {
	t.Setenv("PAVLOK_API_KEY", "")
	c, err := NewFromEnv(logger.Nop())
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	if _, ok := c.(*dryRun); !ok {
		t.Fatalf("NewFromEnv: want dry-run client got=%T", c)
	}
	if err := c.Send(context.Background(), coach.Stimulus{Type: coach.StimulusBeep, Intensity: 10}); err != nil {
		t.Fatalf("dry-run Send: %v", err)
	}
}
