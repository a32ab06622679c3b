package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/datasync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(topic string, qos byte, _ bool, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{topic: topic, qos: qos, payload: payload})
	return nil
}

type fakeSource struct {
	fn           func(datasync.Event)
	unsubscribed bool
}

func (f *fakeSource) Subscribe(fn func(datasync.Event)) func() {
	f.fn = fn
	return func() { f.unsubscribed = true }
}

type fakeRefresher struct{ calls int }

func (f *fakeRefresher) Refresh(context.Context) datasync.State {
	f.calls++
	return datasync.State{}
}

func TestNotifier_PublishesEvents(t *testing.T) {
	pub := &fakePublisher{}
	src := &fakeSource{}
	n := NewNotifier(pub, "coalmine/events", 1, zap.NewNop())
	n.Attach(src)

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src.fn(datasync.Event{Type: datasync.EventAdded, RecordID: "local-1", Remote: false, Error: datasync.MsgAddFailed, RecordCount: 4, At: at})

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "coalmine/events", pub.msgs[0].topic)
	assert.Equal(t, byte(1), pub.msgs[0].qos)

	var got map[string]any
	require.NoError(t, json.Unmarshal(pub.msgs[0].payload, &got))
	assert.Equal(t, "added", got["type"])
	assert.Equal(t, "local-1", got["record_id"])
	assert.Equal(t, false, got["remote"])
	assert.Equal(t, datasync.MsgAddFailed, got["error"])
	assert.Equal(t, float64(4), got["record_count"])
	assert.Equal(t, "2024-01-01T00:00:00Z", got["at"])

	n.Detach()
	assert.True(t, src.unsubscribed)
}

func TestNotifier_PublishFailureIsSwallowed(t *testing.T) {
	pub := &fakePublisher{err: errors.New("not connected")}
	n := NewNotifier(pub, "t", 0, zap.NewNop())

	assert.NotPanics(t, func() { n.Publish(datasync.Event{Type: datasync.EventDeleted}) })
	assert.Empty(t, pub.msgs)
}

func TestCommandHandler(t *testing.T) {
	r := &fakeRefresher{}
	h := NewCommandHandler(r, zap.NewNop())

	require.NoError(t, h("cmd", []byte(`{"action":"refresh"}`)))
	assert.Equal(t, 1, r.calls)

	assert.Error(t, h("cmd", []byte(`{"action":"drop"}`)))
	assert.Error(t, h("cmd", []byte(`not json`)))
	assert.Equal(t, 1, r.calls)
}
