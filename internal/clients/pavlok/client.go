package pavlok

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
	"github.com/yungbote/oni-coach-backend/internal/platform/ctxutil"
	"github.com/yungbote/oni-coach-backend/internal/platform/envutil"
	"github.com/yungbote/oni-coach-backend/internal/platform/httpx"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

const DefaultBaseURL = "https://app.pavlok-the-api.com/api/v5"

type Client interface {
	Send(ctx context.Context, s coach.Stimulus) error
	Status(ctx context.Context) (*DeviceStatus, error)
}

type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:     strings.TrimSpace(os.Getenv("PAVLOK_API_KEY")),
		BaseURL:    strings.TrimSpace(os.Getenv("PAVLOK_BASE_URL")),
		Timeout:    envutil.Seconds("PAVLOK_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		MaxRetries: envutil.Int("PAVLOK_STATUS_MAX_RETRIES", 2),
	}
}

// NewFromEnv returns a dry-run client when PAVLOK_API_KEY is unset.
func NewFromEnv(log *logger.Logger) (Client, error) {
	cfg := ConfigFromEnv()
	if cfg.APIKey == "" {
		if log == nil {
			return nil, fmt.Errorf("logger required")
		}
		log.Warn("PAVLOK_API_KEY not set; stimuli will be logged, not sent")
		return NewDryRun(log), nil
	}
	return New(log, cfg)
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing PAVLOK_API_KEY")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:        log.With("client", "PavlokClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

type DeviceStatus struct {
	Battery    int            `json:"battery"`
	IsCharging bool           `json:"is_charging"`
	Raw        map[string]any `json:"raw,omitempty"`
}

type stimulusRequest struct {
	Stimulus stimulusBody `json:"stimulus"`
}

type stimulusBody struct {
	StimulusType  string `json:"stimulusType"`
	StimulusValue int    `json:"stimulusValue"`
}

// Send makes a single attempt; the worker re-evaluates failed deliveries on the next poll.
func (c *client) Send(ctx context.Context, s coach.Stimulus) error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("pavlok client unavailable")
	}
	if !s.Valid() {
		return fmt.Errorf("pavlok: invalid stimulus %s/%d: %w", s.Type, s.Intensity, coach.ErrInvalidArgument)
	}
	wire := stimulusRequest{Stimulus: stimulusBody{
		StimulusType:  string(s.Type),
		StimulusValue: s.Intensity,
	}}
	if _, _, err := c.doOnce(ctx, http.MethodPost, "/stimulus/send", wire); err != nil {
		return err
	}
	c.log.Info("stimulus sent", "type", s.Type, "intensity", s.Intensity)
	return nil
}

func (c *client) Status(ctx context.Context) (*DeviceStatus, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("pavlok client unavailable")
	}
	_, raw, err := c.do(ctx, http.MethodGet, "/me", nil)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("pavlok: decode /me: %w", err)
	}
	out := &DeviceStatus{Raw: data}
	if v, ok := data["battery"].(float64); ok {
		out.Battery = int(v)
	}
	if v, ok := data["isCharging"].(bool); ok {
		out.IsCharging = v
	}
	return out, nil
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "pavlok: <nil error>"
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 2000 {
		msg = msg[:2000] + "..."
	}
	return fmt.Sprintf("pavlok http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) do(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	backoff := 500 * time.Millisecond

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			return resp, raw, nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return nil, nil, err
		}

		sleepFor := httpx.Jitter(httpx.RetryAfterDuration(resp, backoff, 5*time.Second))
		c.log.Warn("Pavlok request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}

	return nil, nil, errors.New("unreachable retry loop")
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var rdr io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
		rdr = &buf
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, c.cfg.BaseURL+path, rdr)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}
