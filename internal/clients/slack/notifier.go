package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
	"github.com/yungbote/oni-coach-backend/internal/jobs/worker"
	"github.com/yungbote/oni-coach-backend/internal/platform/ctxutil"
	"github.com/yungbote/oni-coach-backend/internal/platform/envutil"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

const DefaultBaseURL = "https://slack.com/api"

const (
	ActionRemindYes = "remind_yes"
	ActionRemindNo  = "remind_no"
	ActionPlanOpen  = "plan_open_modal"
)

// Slack API errors that no retry can fix.
var permanentCodes = map[string]bool{
	"channel_not_found": true,
	"not_in_channel":    true,
	"is_archived":       true,
	"invalid_auth":      true,
	"not_authed":        true,
	"account_inactive":  true,
	"token_revoked":     true,
	"missing_scope":     true,
	"invalid_blocks":    true,
}

type Config struct {
	Token    string
	Channel  string
	BaseURL  string
	Timeout  time.Duration
	Location *time.Location
}

func ConfigFromEnv() Config {
	channel := strings.TrimSpace(os.Getenv("SLACK_CHANNEL"))
	if channel == "" {
		channel = strings.TrimSpace(os.Getenv("SLACK_CHANNEL_ID"))
	}
	if channel == "" {
		channel = strings.TrimSpace(os.Getenv("CHANNEL_ID"))
	}
	return Config{
		Token:    strings.TrimSpace(os.Getenv("SLACK_BOT_USER_OAUTH_TOKEN")),
		Channel:  channel,
		BaseURL:  strings.TrimSpace(os.Getenv("SLACK_BASE_URL")),
		Timeout:  envutil.Seconds("SLACK_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		Location: envutil.Location("TIMEZONE"),
	}
}

type Notifier struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

func NewFromEnv(log *logger.Logger) (*Notifier, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (*Notifier, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("missing SLACK_BOT_USER_OAUTH_TOKEN")
	}
	if cfg.Channel == "" {
		return nil, fmt.Errorf("missing SLACK_CHANNEL")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Notifier{
		log:        log.With("client", "SlackNotifier"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// APIError is an ok=false reply from the Web API.
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string { return "slack " + e.Method + ": " + e.Code }

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("slack http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

type postMessageRequest struct {
	Channel string  `json:"channel"`
	Text    string  `json:"text"`
	Blocks  []block `json:"blocks,omitempty"`
}

type postMessageResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	TS    string `json:"ts,omitempty"`
}

type textObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type element struct {
	Type     string      `json:"type"`
	Text     *textObject `json:"text,omitempty"`
	ActionID string      `json:"action_id,omitempty"`
	Value    string      `json:"value,omitempty"`
	Style    string      `json:"style,omitempty"`
}

type block struct {
	Type     string      `json:"type"`
	Text     *textObject `json:"text,omitempty"`
	Elements []element   `json:"elements,omitempty"`
}

// Notify posts the prompt for s and returns the message ts.
func (n *Notifier) Notify(ctx context.Context, s *coach.Schedule) (string, error) {
	if s == nil {
		return "", worker.Permanent("slack notify", fmt.Errorf("nil schedule"))
	}
	var msg postMessageRequest
	switch s.EventType {
	case coach.EventPlan:
		msg = n.planMessage(s)
	case coach.EventRemind:
		msg = n.remindMessage(s)
	default:
		return "", worker.Permanent("slack notify", fmt.Errorf("unsupported event_type %q", s.EventType))
	}
	msg.Channel = n.cfg.Channel

	var out postMessageResponse
	if err := n.call(ctx, "chat.postMessage", msg, &out); err != nil {
		return "", err
	}
	n.log.Debug("slack message posted", "schedule_id", s.ID, "event_type", s.EventType, "ts", out.TS)
	return out.TS, nil
}

func (n *Notifier) planMessage(s *coach.Schedule) postMessageRequest {
	text := "Time to plan your day."
	return postMessageRequest{
		Text: text,
		Blocks: []block{
			{Type: "section", Text: &textObject{Type: "mrkdwn", Text: "*" + text + "*\nRegister today's tasks."}},
			{Type: "actions", Elements: []element{
				button("Plan", ActionPlanOpen, s.ID.String(), "primary"),
			}},
		},
	}
}

func (n *Notifier) remindMessage(s *coach.Schedule) postMessageRequest {
	task := "Reminder"
	if s.Comment != nil && strings.TrimSpace(*s.Comment) != "" {
		task = strings.TrimSpace(*s.Comment)
	}
	at := s.RunAt.In(n.cfg.Location).Format("15:04")
	return postMessageRequest{
		Text: fmt.Sprintf("%s (%s)", task, at),
		Blocks: []block{
			{Type: "section", Text: &textObject{Type: "mrkdwn", Text: fmt.Sprintf("*%s*\n%s", task, at)}},
			{Type: "actions", Elements: []element{
				button("Done", ActionRemindYes, s.ID.String(), "primary"),
				button("Can't", ActionRemindNo, s.ID.String(), "danger"),
			}},
		},
	}
}

func button(label, actionID, value, style string) element {
	return element{
		Type:     "button",
		Text:     &textObject{Type: "plain_text", Text: label},
		ActionID: actionID,
		Value:    value,
		Style:    style,
	}
}

func (n *Notifier) call(ctx context.Context, method string, body any, out *postMessageResponse) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return worker.Permanent("slack "+method, err)
	}
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPost, n.cfg.BaseURL+"/"+method, bytes.NewReader(raw))
	if err != nil {
		return worker.Permanent("slack "+method, err)
	}
	req.Header.Set("Authorization", "Bearer "+n.cfg.Token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	data, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("slack %s: decode: %w", method, err)
	}
	if !out.OK {
		apiErr := &APIError{Method: method, Code: out.Error}
		if permanentCodes[out.Error] {
			return worker.Permanent("slack "+method, apiErr)
		}
		return apiErr
	}
	return nil
}
