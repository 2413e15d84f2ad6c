package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/harunnryd/bursar/internal/gateway"
	"github.com/harunnryd/bursar/internal/metrics"
)

// Kicker hands a verified approval to the poll loop for processing on its
// own goroutine. Kick reports false when the buffer is full; the poller's
// regular cadence remains the backstop.
type Kicker interface {
	Kick(approval gateway.ApprovalRequest) bool
}

// payload is the push-notification body. Messages are still fetched from
// the feed afterwards, so the dedup watermark stays the single ordering
// authority; the payload only tells us which approval to look at.
type payload struct {
	ApprovalRequestID   string `json:"approval_request_id"`
	MessageID           string `json:"message_id"`
	Vendor              string `json:"vendor"`
	SpendingAmountCents int64  `json:"spending_amount_cents"`
	Category            string `json:"category"`
	Reason              string `json:"reason"`
	Status              string `json:"status"`
	DealSlug            string `json:"deal_slug,omitempty"`
}

// Handler verifies and accepts inbound approval notifications.
type Handler struct {
	secret string
	kicker Kicker
}

func NewHandler(secret string, kicker Kicker) *Handler {
	return &Handler{secret: secret, kicker: kicker}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	// Signature first; nothing in the body is trusted or logged before this.
	if !Verify(h.secret, body, r.Header.Get(SignatureHeader)) {
		metrics.WebhookRejectedTotal.Inc()
		slog.Warn("Webhook rejected: signature verification failed", "remote", r.RemoteAddr)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}
	if p.ApprovalRequestID == "" {
		http.Error(w, "missing approval_request_id", http.StatusBadRequest)
		return
	}

	approval := gateway.ApprovalRequest{
		ID:                  p.ApprovalRequestID,
		Vendor:              p.Vendor,
		SpendingAmountCents: p.SpendingAmountCents,
		Category:            p.Category,
		Reason:              p.Reason,
		Status:              p.Status,
		DealSlug:            p.DealSlug,
	}

	if !h.kicker.Kick(approval) {
		slog.Warn("Webhook kick dropped, poller buffer full", "request_id", p.ApprovalRequestID)
	}

	w.WriteHeader(http.StatusAccepted)
}
