package poll

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/bursar/internal/alert"
	"github.com/harunnryd/bursar/internal/compose"
	"github.com/harunnryd/bursar/internal/config"
	bursarErrors "github.com/harunnryd/bursar/internal/errors"
	"github.com/harunnryd/bursar/internal/gateway"
	"github.com/harunnryd/bursar/internal/logger"
	"github.com/harunnryd/bursar/internal/metrics"
	"github.com/harunnryd/bursar/internal/state"

	"github.com/oklog/ulid/v2"
	"github.com/robfig/cron/v3"
)

// answerBudget bounds one detached answer (generate plus post) so a wedged
// provider cannot hold shutdown open forever.
const answerBudget = 2 * time.Minute

// Feed is the slice of the gateway client the engine needs.
type Feed interface {
	ListPending(ctx context.Context) ([]gateway.ApprovalRequest, error)
	ListMessages(ctx context.Context, requestID string) ([]gateway.ChatMessage, error)
	PostMessage(ctx context.Context, requestID, body string) error
}

// TextGenerator produces a reply for a prompt. Retry policy lives behind
// this interface.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// MemoryExcerpter selects a relevant memory excerpt for a question. ok is
// false when the caller should fall back to head truncation.
type MemoryExcerpter interface {
	Relevant(ctx context.Context, query string, maxChars int) (string, bool)
}

// Summary is the outcome of one cycle, printed as JSON in diagnostic mode.
type Summary struct {
	Timestamp        time.Time `json:"timestamp"`
	PendingApprovals int       `json:"pending_approvals"`
	ResponsesSent    int       `json:"responses_sent"`
}

// Options configures the engine.
type Options struct {
	Schedule       string
	KickBuffer     int
	AgentID        string
	Context        config.ContextConfig
	MemoryMaxChars int
	MemoryIndex    MemoryExcerpter // optional

	// FallbackReply posts a canned apology (and advances the watermark)
	// when generation exhausts its retries, instead of leaving the message
	// for the next cycle.
	FallbackReply bool
}

// Engine owns all reply processing on a single goroutine: polling cadence
// and webhook kicks are serialized through the same run loop, so within one
// request replies are strictly ordered by construction.
type Engine struct {
	feed   Feed
	gen    TextGenerator
	store  *state.Store
	alerts *alert.Manager
	opts   Options

	schedule cron.Schedule
	kicks    chan gateway.ApprovalRequest

	mu        sync.RWMutex
	lastCycle time.Time
	running   bool
}

func NewEngine(feed Feed, gen TextGenerator, store *state.Store, alerts *alert.Manager, opts Options) (*Engine, error) {
	if opts.Schedule == "" {
		opts.Schedule = config.DefaultPollSchedule
	}
	if opts.KickBuffer <= 0 {
		opts.KickBuffer = config.DefaultPollKickBuffer
	}
	if opts.MemoryMaxChars <= 0 {
		opts.MemoryMaxChars = config.DefaultMemoryMaxChars
	}

	schedule, err := cron.ParseStandard(opts.Schedule)
	if err != nil {
		return nil, bursarErrors.Configuration(fmt.Sprintf("invalid poll schedule %q: %v", opts.Schedule, err))
	}

	return &Engine{
		feed:     feed,
		gen:      gen,
		store:    store,
		alerts:   alerts,
		opts:     opts,
		schedule: schedule,
		kicks:    make(chan gateway.ApprovalRequest, opts.KickBuffer),
	}, nil
}

// Kick enqueues a verified approval for immediate processing. Non-blocking:
// a full buffer reports false and the regular polling cadence backstops it.
func (e *Engine) Kick(approval gateway.ApprovalRequest) bool {
	select {
	case e.kicks <- approval:
		return true
	default:
		return false
	}
}

// Run polls until the context is cancelled. The first cycle fires
// immediately. On cancellation the in-flight item finishes and state is
// flushed before returning.
func (e *Engine) Run(ctx context.Context) error {
	e.setRunning(true)
	defer e.setRunning(false)

	slog.Info("Poll loop starting", "schedule", e.opts.Schedule, "agent_id", e.opts.AgentID)

	e.cycle(ctx)

	for {
		timer := time.NewTimer(time.Until(e.schedule.Next(time.Now())))

		select {
		case <-ctx.Done():
			timer.Stop()
			if err := e.store.Flush(time.Now()); err != nil {
				slog.Error("Final state flush failed", "error", err)
			}
			slog.Info("Poll loop stopped")
			return nil

		case <-timer.C:
			e.cycle(ctx)

		case approval := <-e.kicks:
			timer.Stop()
			e.processKick(ctx, approval)
		}
	}
}

// RunOnce executes exactly one cycle, for the single-cycle diagnostic mode.
func (e *Engine) RunOnce(ctx context.Context) (Summary, error) {
	return e.cycle(ctx)
}

// LastCycle reports when the last cycle completed, the engine's liveness
// signal.
func (e *Engine) LastCycle() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastCycle
}

func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

func (e *Engine) setRunning(running bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = running
}

func (e *Engine) cycle(ctx context.Context) (Summary, error) {
	started := time.Now()
	ctx = logger.WithCycleID(ctx, ulid.Make().String())

	summary := Summary{Timestamp: started.UTC()}

	pending, err := e.feed.ListPending(ctx)
	if err != nil {
		metrics.GatewayFailuresTotal.WithLabelValues("list_pending").Inc()
		metrics.MarkCycle(false, time.Now())
		e.noteGatewayError(ctx, err)
		slog.Error("Cycle aborted: pending list unavailable",
			"cycle_id", logger.GetCycleID(ctx),
			"error", err,
		)
		return summary, err
	}

	summary.PendingApprovals = len(pending)
	metrics.PendingApprovals.Set(float64(len(pending)))

	docs := compose.LoadDocuments(e.opts.Context)

	messagesSeen := 0
	failures := 0
	for _, approval := range pending {
		if !e.owns(approval) {
			slog.Warn("Skipping approval owned by another agent",
				"request_id", approval.ID,
				"owner", approval.AgentID,
			)
			continue
		}

		seen, sent, err := e.processApproval(ctx, approval, docs)
		messagesSeen += seen
		summary.ResponsesSent += sent
		if err != nil {
			failures++
			if ctx.Err() != nil {
				break
			}
			// One approval's failure never aborts its siblings.
			slog.Error("Approval processing failed",
				"cycle_id", logger.GetCycleID(ctx),
				"request_id", approval.ID,
				"category", bursarErrors.Category(err),
				"error", err,
			)
		}
	}

	finished := time.Now()
	if err := e.store.Flush(finished); err != nil {
		slog.Error("State flush failed", "error", err)
	}

	e.mu.Lock()
	e.lastCycle = finished
	e.mu.Unlock()
	metrics.MarkCycle(true, finished)

	slog.Info("Cycle complete",
		"cycle_id", logger.GetCycleID(ctx),
		"pending_approvals", summary.PendingApprovals,
		"messages_seen", messagesSeen,
		"responses_sent", summary.ResponsesSent,
		"failures", failures,
		"duration_ms", finished.Sub(started).Milliseconds(),
	)

	return summary, nil
}

// processKick handles a webhook-delivered approval on the run-loop
// goroutine. Messages still come from the feed, so the watermark stays the
// single ordering authority.
func (e *Engine) processKick(ctx context.Context, approval gateway.ApprovalRequest) {
	ctx = logger.WithCycleID(ctx, ulid.Make().String())

	if approval.Status != "" && approval.Status != gateway.StatusPending {
		slog.Debug("Ignoring kick for non-pending approval", "request_id", approval.ID, "status", approval.Status)
		return
	}
	if !e.owns(approval) {
		slog.Warn("Ignoring kick for approval owned by another agent", "request_id", approval.ID, "owner", approval.AgentID)
		return
	}

	docs := compose.LoadDocuments(e.opts.Context)
	if _, sent, err := e.processApproval(ctx, approval, docs); err != nil {
		slog.Error("Kick processing failed", "request_id", approval.ID, "error", err)
	} else if sent > 0 {
		slog.Info("Kick answered", "request_id", approval.ID, "responses_sent", sent)
	}
}

func (e *Engine) owns(approval gateway.ApprovalRequest) bool {
	return approval.AgentID == "" || approval.AgentID == e.opts.AgentID
}

// processApproval answers every new user message on one approval, oldest
// first, advancing the watermark after each posted reply so a crash
// re-processes at most the in-flight message.
func (e *Engine) processApproval(ctx context.Context, approval gateway.ApprovalRequest, docs compose.Documents) (seen, sent int, err error) {
	messages, err := e.feed.ListMessages(ctx, approval.ID)
	if err != nil {
		metrics.GatewayFailuresTotal.WithLabelValues("list_messages").Inc()
		e.noteGatewayError(ctx, err)
		return 0, 0, err
	}

	watermark := e.store.Get(approval.ID)
	fresh := selectNewUserMessages(messages, watermark)
	seen = len(fresh)

	for _, msg := range fresh {
		if ctx.Err() != nil {
			return seen, sent, ctx.Err()
		}

		if err := e.answer(ctx, approval, msg, docs); err != nil {
			// The watermark was not advanced; this message is retried
			// next cycle. Later messages wait behind it to keep order.
			return seen, sent, err
		}
		sent++

		if err := e.store.Advance(approval.ID, msg.CreatedAt); err != nil {
			return seen, sent, err
		}
	}

	return seen, sent, nil
}

func (e *Engine) answer(ctx context.Context, approval gateway.ApprovalRequest, msg gateway.ChatMessage, docs compose.Documents) error {
	slog.Info("Answering message",
		"cycle_id", logger.GetCycleID(ctx),
		"request_id", approval.ID,
		"message_id", msg.ID,
		"created_at", msg.CreatedAt.Format(time.RFC3339),
	)

	// The post and the watermark advance travel as a unit: a shutdown
	// arriving mid-item must not abort the in-flight reply, or the gateway
	// may commit it without the watermark recording it. The item runs on a
	// context detached from cancellation and bounded by its own budget;
	// shutdown is honored between messages, in processApproval.
	itemCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), answerBudget)
	defer cancel()

	excerpt := e.memoryExcerpt(itemCtx, msg.Message, docs)
	prompt := compose.Prompt(approval, msg.Message, docs, excerpt)

	reply, err := e.gen.Generate(itemCtx, prompt)
	if err != nil {
		if itemCtx.Err() != nil {
			return err
		}
		metrics.ProviderFailuresTotal.Inc()
		if e.alerts != nil {
			e.alerts.Alert(ctx, "provider-exhausted", "bursar: provider generation failing after retries: "+err.Error())
		}
		if !e.opts.FallbackReply {
			// The message stays unanswered and the watermark stays put, so
			// it is retried next cycle.
			return err
		}
		slog.Warn("Generation failed, posting fallback reply",
			"request_id", approval.ID,
			"message_id", msg.ID,
			"error", err,
		)
		reply = compose.FallbackReply(approval)
	}

	if err := e.feed.PostMessage(itemCtx, approval.ID, reply); err != nil {
		metrics.GatewayFailuresTotal.WithLabelValues("post_message").Inc()
		e.noteGatewayError(ctx, err)
		return err
	}

	metrics.RepliesSentTotal.Inc()
	return nil
}

func (e *Engine) memoryExcerpt(ctx context.Context, question string, docs compose.Documents) string {
	if e.opts.MemoryIndex != nil {
		if excerpt, ok := e.opts.MemoryIndex.Relevant(ctx, question, e.opts.MemoryMaxChars); ok {
			return excerpt
		}
	}
	return compose.HeadExcerpt(docs.Memory, e.opts.MemoryMaxChars)
}

func (e *Engine) noteGatewayError(ctx context.Context, err error) {
	if bursarErrors.IsCategory(err, bursarErrors.ErrAuthorization) && e.alerts != nil {
		e.alerts.Alert(ctx, "gateway-auth", "bursar: approval gateway rejected credentials; operator attention required: "+err.Error())
	}
}

// selectNewUserMessages keeps user-authored messages with non-empty bodies
// strictly newer than the watermark, ascending by creation time.
func selectNewUserMessages(messages []gateway.ChatMessage, watermark time.Time) []gateway.ChatMessage {
	var fresh []gateway.ChatMessage
	for _, m := range messages {
		if m.Sender != gateway.SenderUser {
			continue
		}
		if strings.TrimSpace(m.Message) == "" {
			continue
		}
		if !m.CreatedAt.After(watermark) {
			continue
		}
		fresh = append(fresh, m)
	}

	sort.Slice(fresh, func(i, j int) bool {
		return fresh[i].CreatedAt.Before(fresh[j].CreatedAt)
	})
	return fresh
}
