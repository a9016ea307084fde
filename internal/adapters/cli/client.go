package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client talks to the daemon's HTTP command endpoint
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a daemon client for the given base URL
func NewClient(base string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// commandEnvelope mirrors the daemon's ingress format
type commandEnvelope struct {
	Header  int64           `json:"header"`
	CmdID   string          `json:"cmd_id"`
	CmdType string          `json:"cmd_type"`
	Params  json.RawMessage `json:"params"`
}

// CommandReply is the union of the daemon's reply shapes: error
// replies carry code+message, data replies carry data, queue acks
// carry task_id+queue_size.
type CommandReply struct {
	Success   bool            `json:"success"`
	Code      *int            `json:"code,omitempty"`
	Message   string          `json:"message,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	TaskID    string          `json:"task_id,omitempty"`
	QueueSize *int            `json:"queue_size,omitempty"`
}

// Send posts one command to the daemon. A reply with success=false is
// returned as an error carrying the daemon's code and message.
func (c *Client) Send(ctx context.Context, cmdType string, params any) (*CommandReply, error) {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}
	if params == nil {
		rawParams = json.RawMessage(`{}`)
	}

	env := commandEnvelope{
		Header:  time.Now().Unix(),
		CmdID:   uuid.New().String(),
		CmdType: cmdType,
		Params:  rawParams,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode command: %w", err)
	}
	return c.post(ctx, body)
}

// SendRaw posts a pre-built command envelope verbatim
func (c *Client) SendRaw(ctx context.Context, envelope []byte) (*CommandReply, error) {
	return c.post(ctx, envelope)
}

func (c *Client) post(ctx context.Context, body []byte) (*CommandReply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable at %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read reply: %w", err)
	}

	var reply CommandReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("malformed reply (HTTP %d): %s", resp.StatusCode, string(raw))
	}
	if !reply.Success {
		code := 0
		if reply.Code != nil {
			code = *reply.Code
		}
		return &reply, fmt.Errorf("daemon error %d: %s", code, reply.Message)
	}
	return &reply, nil
}

// Get fetches a read-only endpoint and decodes the reply into out
func (c *Client) Get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read reply: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var reply CommandReply
		if json.Unmarshal(raw, &reply) == nil && reply.Message != "" {
			code := 0
			if reply.Code != nil {
				code = *reply.Code
			}
			return fmt.Errorf("daemon error %d: %s", code, reply.Message)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(raw))
	}
	return json.Unmarshal(raw, out)
}

// newClient builds a client from the global flags
func newClient() *Client {
	return NewClient(daemonAddr, timeout)
}

// printJSON pretty-prints any value as indented JSON
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
