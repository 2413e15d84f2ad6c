package gateway

import (
	"fmt"
	"time"
)

// Approval statuses as reported by the gateway.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDenied   = "denied"
	StatusExpired  = "expired"
)

// Chat message senders.
const (
	SenderUser  = "user"
	SenderAgent = "agent"
)

// ApprovalRequest is a pending spend decision, read-only from the daemon's
// side. Amounts are integer minor units; the gateway never sends floats.
type ApprovalRequest struct {
	ID                  string `json:"id"`
	AgentID             string `json:"agent_id,omitempty"`
	Vendor              string `json:"vendor"`
	SpendingAmountCents int64  `json:"spending_amount_cents"`
	Category            string `json:"category"`
	Reason              string `json:"reason"`
	Status              string `json:"status"`
	DealSlug            string `json:"deal_slug,omitempty"`
}

// AmountDisplay renders the amount as dollars for prompts and tables.
func (a ApprovalRequest) AmountDisplay() string {
	cents := a.SpendingAmountCents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

// ChatMessage is one entry in an approval's append-only chat history.
type ChatMessage struct {
	ID                string    `json:"id"`
	ApprovalRequestID string    `json:"approval_request_id"`
	Sender            string    `json:"sender"`
	Message           string    `json:"message"`
	CreatedAt         time.Time `json:"created_at"`
}

type pendingApprovalsResponse struct {
	Approvals []ApprovalRequest `json:"approvals"`
}

type chatMessagesResponse struct {
	Messages []ChatMessage `json:"messages"`
}

type postMessageRequest struct {
	ApprovalRequestID string `json:"approval_request_id"`
	Sender            string `json:"sender"`
	Message           string `json:"message"`
}

type postMessageResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
}
