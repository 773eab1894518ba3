package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"taskforge/internal/version"
)

// demoCap is the fixed number of successful demo calls per process.
// No configuration can raise it.
const demoCap = 2

// ErrNeedAPIKey is returned once the demo call cap is exhausted.
var ErrNeedAPIKey = errors.New("NEED_API_KEY: demo limit reached (2/2), add your ANTHROPIC_API_KEY")

// Demo serves a capped number of completions without an API key. With
// a relay URL configured it forwards the request there; otherwise it
// returns a synthetic reply. The cap is deliberately process-local and
// does not survive restarts.
type Demo struct {
	relayURL    string
	relaySecret string
	httpClient  *http.Client

	mu    sync.Mutex
	calls int
}

// NewDemo creates a demo provider. relayURL and relaySecret may be empty.
func NewDemo(relayURL, relaySecret string) *Demo {
	return &Demo{
		relayURL:    relayURL,
		relaySecret: relaySecret,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Name implements Provider.
func (d *Demo) Name() string { return "demo" }

// Remaining returns how many demo calls are left.
func (d *Demo) Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.calls >= demoCap {
		return 0
	}
	return demoCap - d.calls
}

// Generate implements Provider. Only successful calls count against
// the cap.
func (d *Demo) Generate(ctx context.Context, req Request) (string, error) {
	d.mu.Lock()
	if d.calls >= demoCap {
		d.mu.Unlock()
		return "", ErrNeedAPIKey
	}
	d.mu.Unlock()

	out, err := d.relay(ctx, req)
	if err != nil {
		return "", err
	}

	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	return out, nil
}

// DemoResult is the payload returned for a demo-gated request.
type DemoResult struct {
	Success        bool    `json:"success"`
	Demo           bool    `json:"demo,omitempty"`
	CallNumber     int     `json:"call_number,omitempty"`
	Remaining      int     `json:"remaining,omitempty"`
	ProcessingTime float64 `json:"processing_time,omitempty"`
	Output         string  `json:"output,omitempty"`
	Error          string  `json:"error,omitempty"`
	Detail         string  `json:"detail,omitempty"`
}

// ProcessText runs one capped demo completion for raw request text.
// Relay failures become output text and still consume a call; only
// the exhausted cap is reported as an error.
func (d *Demo) ProcessText(ctx context.Context, text string) DemoResult {
	d.mu.Lock()
	if d.calls >= demoCap {
		d.mu.Unlock()
		return DemoResult{
			Error:  "NEED_API_KEY",
			Detail: "Demo limit reached (2/2). Please add your ANTHROPIC_API_KEY.",
		}
	}
	callNumber := d.calls + 1
	d.mu.Unlock()

	started := time.Now()
	out, err := d.relay(ctx, Request{Prompt: text})
	if err != nil {
		out = fmt.Sprintf("[demo relay error] %v", err)
	}

	d.mu.Lock()
	d.calls++
	d.mu.Unlock()

	return DemoResult{
		Success:        true,
		Demo:           true,
		CallNumber:     callNumber,
		Remaining:      d.Remaining(),
		ProcessingTime: time.Since(started).Seconds(),
		Output:         out,
	}
}

// relayPayload mirrors the chat-completions shape the relay expects.
type relayPayload struct {
	Model       string         `json:"model"`
	Messages    []relayMessage `json:"messages"`
	Temperature float64        `json:"temperature"`
	MaxTokens   int            `json:"max_tokens"`
	Stream      bool           `json:"stream"`
}

type relayMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type relayResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (d *Demo) relay(ctx context.Context, req Request) (string, error) {
	if d.relayURL == "" {
		prompt := req.Prompt
		if len(prompt) > 60 {
			prompt = prompt[:60]
		}
		return fmt.Sprintf("[demo] synthetic response for: %s", prompt), nil
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 256
	}
	payload := relayPayload{
		Model: "relay-default",
		Messages: []relayMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: 0.7,
		MaxTokens:   maxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal relay payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.relayURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build relay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	if d.relaySecret != "" {
		httpReq.Header.Set("X-Taskforge-Demo", d.relaySecret)
	}

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("relay request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read relay response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("relay http %d: %s", resp.StatusCode, truncate(string(raw), 120))
	}

	var parsed relayResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Choices) == 0 {
		return "", fmt.Errorf("relay response undecodable")
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
