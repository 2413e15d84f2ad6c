package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/harunnryd/bursar/internal/credentials"
	bursarErrors "github.com/harunnryd/bursar/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(credentials.Credentials{
		Token:   "test-token",
		APIBase: srv.URL,
		AgentID: "agent-7",
	}, 0)
}

func TestListPending(t *testing.T) {
	var gotAuth, gotUA, gotQuery string

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.Query().Get("agent_id")

		json.NewEncoder(w).Encode(map[string]interface{}{
			"approvals": []map[string]interface{}{
				{"id": "req-1", "vendor": "Acme", "spending_amount_cents": 12345, "category": "tools", "status": "pending"},
				{"id": "req-2", "vendor": "Other", "spending_amount_cents": 500, "category": "food", "status": "approved"},
			},
		})
	}))

	approvals, err := client.ListPending(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, UserAgent, gotUA)
	assert.Equal(t, "agent-7", gotQuery)

	// Non-pending statuses are filtered out.
	require.Len(t, approvals, 1)
	assert.Equal(t, "req-1", approvals[0].ID)
	assert.Equal(t, "$123.45", approvals[0].AmountDisplay())
}

func TestListMessages(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat-messages/req-1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"messages": []map[string]interface{}{
				{"id": "m1", "approval_request_id": "req-1", "sender": "user", "message": "why?", "created_at": "2026-08-01T10:00:00Z"},
				{"id": "m2", "approval_request_id": "req-1", "sender": "agent", "message": "because", "created_at": "2026-08-01T10:01:00Z"},
			},
		})
	}))

	messages, err := client.ListMessages(context.Background(), "req-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, SenderUser, messages[0].Sender)
	assert.False(t, messages[0].CreatedAt.IsZero())
}

func TestPostMessage(t *testing.T) {
	var got postMessageRequest

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))

	err := client.PostMessage(context.Background(), "req-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "req-1", got.ApprovalRequestID)
	assert.Equal(t, SenderAgent, got.Sender)
	assert.Equal(t, "hello", got.Message)
}

func TestPostMessageRejected(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"success": false})
	}))

	err := client.PostMessage(context.Background(), "req-1", "hello")
	assert.ErrorIs(t, err, bursarErrors.ErrTransport)
}

func TestServerErrorRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"approvals": []interface{}{}})
	}))

	_, err := client.ListPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestUnauthorizedNeverRetries(t *testing.T) {
	attempts := 0
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.ListPending(context.Background())
	assert.ErrorIs(t, err, bursarErrors.ErrAuthorization)
	assert.Equal(t, 1, attempts)
}

func TestAmountDisplay(t *testing.T) {
	assert.Equal(t, "$0.05", ApprovalRequest{SpendingAmountCents: 5}.AmountDisplay())
	assert.Equal(t, "$12.00", ApprovalRequest{SpendingAmountCents: 1200}.AmountDisplay())
	assert.Equal(t, "-$1.50", ApprovalRequest{SpendingAmountCents: -150}.AmountDisplay())
}
