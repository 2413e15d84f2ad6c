package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harunnryd/bursar/internal/credentials"
	bursarErrors "github.com/harunnryd/bursar/internal/errors"
	"github.com/harunnryd/bursar/internal/retry"
)

// UserAgent identifies the daemon on every gateway call for server-side
// attribution.
const UserAgent = "bursar/2.0"

const defaultTimeout = 10 * time.Second

// Client talks to the approval gateway. All three operations carry the bearer
// token and the fixed client identifier, and share one bounded retry policy.
type Client struct {
	apiBase string
	token   string
	agentID string
	http    *http.Client
	retry   retry.Policy
}

func NewClient(creds credentials.Credentials, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiBase: strings.TrimRight(creds.APIBase, "/"),
		token:   creds.Token,
		agentID: creds.AgentID,
		http:    &http.Client{Timeout: timeout},
		retry:   retry.Default(),
	}
}

// AgentID returns the identity the client polls on behalf of.
func (c *Client) AgentID() string {
	return c.agentID
}

// ListPending fetches the pending approvals assigned to the agent. Approvals
// whose status is not pending are dropped here so callers never see them.
func (c *Client) ListPending(ctx context.Context) ([]ApprovalRequest, error) {
	endpoint := "/api/bot/pending-approvals?agent_id=" + url.QueryEscape(c.agentID)

	var resp pendingApprovalsResponse
	if err := c.call(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	pending := resp.Approvals[:0]
	for _, a := range resp.Approvals {
		if a.Status == StatusPending {
			pending = append(pending, a)
		}
	}
	return pending, nil
}

// ListMessages fetches the full chat history for an approval request.
func (c *Client) ListMessages(ctx context.Context, requestID string) ([]ChatMessage, error) {
	endpoint := "/api/chat-messages/" + url.PathEscape(requestID)

	var resp chatMessagesResponse
	if err := c.call(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// PostMessage appends an agent reply to an approval's chat.
func (c *Client) PostMessage(ctx context.Context, requestID, body string) error {
	payload := postMessageRequest{
		ApprovalRequestID: requestID,
		Sender:            SenderAgent,
		Message:           body,
	}

	var resp postMessageResponse
	if err := c.call(ctx, http.MethodPost, "/api/chat-messages", payload, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return bursarErrors.Transport("gateway rejected chat message")
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, endpoint string, payload, out interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, endpoint, bursarErrors.ErrInvalidRequest)
		}
	}

	op := method + " " + endpoint
	return c.retry.Do(ctx, op, func(ctx context.Context) error {
		return c.doOnce(ctx, method, endpoint, body, out)
	})
}

func (c *Client) doOnce(ctx context.Context, method, endpoint string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+endpoint, reader)
	if err != nil {
		return bursarErrors.Wrap(err, "build gateway request")
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %v: %w", method, endpoint, err, bursarErrors.ErrTransport)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %v: %w", method, endpoint, err, bursarErrors.ErrTransport)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return bursarErrors.FromHTTPStatus(resp.StatusCode, fmt.Sprintf("%s %s: %s", method, endpoint, truncateBody(raw)))
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%s %s: decode response: %v: %w", method, endpoint, err, bursarErrors.ErrTransport)
		}
	}
	return nil
}

func truncateBody(raw []byte) string {
	const max = 256
	s := strings.TrimSpace(string(raw))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
