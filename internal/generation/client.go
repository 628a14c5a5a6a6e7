package generation

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/adorable-labs/adorable-backend/config"
)

// AllowedTools is the fixed capability set granted to the engine for code
// generation sessions.
var AllowedTools = []string{
	"Read",
	"Write",
	"Edit",
	"MultiEdit",
	"Bash",
	"LS",
	"Glob",
	"Grep",
	"WebSearch",
	"WebFetch",
}

// Client talks to the generation engine service. The engine runs a bounded
// multi-turn agent against a workspace and streams back ordered messages;
// their contents are opaque to this service.
type Client struct {
	BaseURL  string
	MaxTurns int
	HTTP     *http.Client
}

// NewClient builds an engine client. No client-side timeout is set: the
// caller owns the deadline through ctx, and a generation run can take
// minutes.
func NewClient(cfg *config.EngineConfig) *Client {
	return &Client{
		BaseURL:  cfg.BaseURL,
		MaxTurns: cfg.MaxTurns,
		HTTP:     &http.Client{},
	}
}

type runRequest struct {
	Prompt        string   `json:"prompt"`
	WorkspacePath string   `json:"workspace_path"`
	MaxTurns      int      `json:"max_turns"`
	AllowedTools  []string `json:"allowed_tools"`
}

// streamFrame is the envelope of one NDJSON line from the engine. The final
// line has Type "result" and carries the terminal success/failure flag;
// every other line is an opaque session message relayed in yield order.
type streamFrame struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Result is the outcome of one engine session.
type Result struct {
	Success  bool
	Messages []json.RawMessage
	Err      string
}

// Run submits a prompt against a workspace and consumes the whole message
// stream before returning. Messages keep their yield order; they are never
// interpreted here.
func (c *Client) Run(ctx context.Context, prompt, workspacePath string) (*Result, error) {
	body, _ := json.Marshal(runRequest{
		Prompt:        prompt,
		WorkspacePath: workspacePath,
		MaxTurns:      c.MaxTurns,
		AllowedTools:  AllowedTools,
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("engine request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("engine run: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("engine error (status %d)", resp.StatusCode)
	}

	res := &Result{}
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	terminal := false
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var frame streamFrame
		if err := json.Unmarshal(line, &frame); err != nil {
			return nil, fmt.Errorf("engine stream decode: %w", err)
		}

		if frame.Type == "result" {
			terminal = true
			res.Success = frame.Subtype == "success"
			res.Err = frame.Error
			continue
		}

		msg := make(json.RawMessage, len(line))
		copy(msg, line)
		res.Messages = append(res.Messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("engine stream: %w", err)
	}
	if !terminal {
		return nil, fmt.Errorf("engine stream ended without a result frame")
	}

	return res, nil
}
