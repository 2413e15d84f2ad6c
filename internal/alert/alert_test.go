package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	name     string
	messages []string
	err      error
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Notify(ctx context.Context, message string) error {
	r.messages = append(r.messages, message)
	return r.err
}

func TestManagerFansOut(t *testing.T) {
	a := &recordingNotifier{name: "a"}
	b := &recordingNotifier{name: "b"}
	m := NewManager(time.Minute, a, b)

	m.Alert(context.Background(), "auth", "gateway rejected token")

	assert.Equal(t, []string{"gateway rejected token"}, a.messages)
	assert.Equal(t, []string{"gateway rejected token"}, b.messages)
}

func TestManagerCooldownSuppressesRepeats(t *testing.T) {
	n := &recordingNotifier{name: "n"}
	m := NewManager(time.Minute, n)

	clock := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	ctx := context.Background()
	m.Alert(ctx, "auth", "first")
	m.Alert(ctx, "auth", "suppressed")
	require.Len(t, n.messages, 1)

	// A different key is not suppressed.
	m.Alert(ctx, "provider", "other condition")
	require.Len(t, n.messages, 2)

	// After the cooldown the same key fires again.
	clock = clock.Add(2 * time.Minute)
	m.Alert(ctx, "auth", "second")
	assert.Equal(t, []string{"first", "other condition", "second"}, n.messages)
}

func TestManagerToleratesDeliveryFailure(t *testing.T) {
	failing := &recordingNotifier{name: "bad", err: errors.New("boom")}
	ok := &recordingNotifier{name: "good"}
	m := NewManager(time.Minute, failing, ok)

	m.Alert(context.Background(), "k", "msg")
	assert.Len(t, ok.messages, 1, "one notifier failing must not block the others")
}

func TestManagerNoNotifiersIsNoop(t *testing.T) {
	m := NewManager(time.Minute)
	m.Alert(context.Background(), "k", "msg")
}

func TestCommandNotifierParsing(t *testing.T) {
	_, err := NewCommandNotifier("")
	assert.Error(t, err)

	_, err = NewCommandNotifier(`notify-send "unbalanced`)
	assert.Error(t, err)

	n, err := NewCommandNotifier(`echo -n`)
	require.NoError(t, err)
	assert.Equal(t, "command", n.Name())
	assert.NoError(t, n.Notify(context.Background(), "hello"))
}
