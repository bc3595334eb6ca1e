package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
	"github.com/yungbote/oni-coach-backend/internal/jobs/worker"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

func newTestNotifier(t *testing.T, url string) *Notifier {
	t.Helper()
	n, err := New(logger.Nop(), Config{
		Token:    "xoxb-test",
		Channel:  "C123",
		BaseURL:  url,
		Location: time.FixedZone("JST", 9*3600),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return n
}

func TestNotifyRemindPostsButtons(t *testing.T) {
	var got postMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat.postMessage" {
			t.Errorf("path: want=/chat.postMessage got=%s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer xoxb-test" {
			t.Errorf("auth: got=%q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok":true,"ts":"1700000000.000200"}`))
	}))
	defer srv.Close()

	s := coach.NewSchedule("U1", coach.EventRemind, time.Date(2026, 5, 4, 0, 30, 0, 0, time.UTC))
	task := "Stretch"
	s.Comment = &task

	ts, err := newTestNotifier(t, srv.URL).Notify(context.Background(), s)
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if ts != "1700000000.000200" {
		t.Fatalf("ts: want=%q got=%q", "1700000000.000200", ts)
	}
	if got.Channel != "C123" {
		t.Fatalf("channel: want=C123 got=%q", got.Channel)
	}
	if !strings.Contains(got.Text, "Stretch") || !strings.Contains(got.Text, "09:30") {
		t.Fatalf("text: want task and local time got=%q", got.Text)
	}
	var actions []string
	for _, b := range got.Blocks {
		for _, e := range b.Elements {
			actions = append(actions, e.ActionID)
			if e.Value != s.ID.String() {
				t.Fatalf("button value: want=%s got=%s", s.ID, e.Value)
			}
		}
	}
	if strings.Join(actions, ",") != ActionRemindYes+","+ActionRemindNo {
		t.Fatalf("actions: got=%v", actions)
	}
}

func TestNotifyClassifiesErrors(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		retryable bool
	}{
		{name: "channel not found", status: 200, body: `{"ok":false,"error":"channel_not_found"}`, retryable: false},
		{name: "rate limited", status: 200, body: `{"ok":false,"error":"ratelimited"}`, retryable: true},
		{name: "server error", status: 502, body: `bad gateway`, retryable: true},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))
		_, err := newTestNotifier(t, srv.URL).Notify(context.Background(), coach.NewSchedule("U1", coach.EventPlan, time.Now()))
		srv.Close()
		if err == nil {
			t.Fatalf("%s: want error", tc.name)
		}
		if got := worker.IsRetryable(err); got != tc.retryable {
			t.Fatalf("%s: retryable want=%v got=%v (err=%v)", tc.name, tc.retryable, got, err)
		}
	}
}

func TestConfigFromEnvChannelFallbacks(t *testing.T) {
	t.Setenv("SLACK_CHANNEL", "")
	t.Setenv("SLACK_CHANNEL_ID", "")
	t.Setenv("CHANNEL_ID", "C-legacy")
	if got := ConfigFromEnv().Channel; got != "C-legacy" {
		t.Fatalf("channel: want=C-legacy got=%q", got)
	}
	t.Setenv("SLACK_CHANNEL_ID", "C-id")
	if got := ConfigFromEnv().Channel; got != "C-id" {
		t.Fatalf("channel: want=C-id got=%q", got)
	}
}
