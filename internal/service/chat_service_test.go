package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"gameforge-server/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubStream struct {
	events chan session.Event
	closed chan struct{}
	once   sync.Once
}

func newStubStream(events ...session.Event) *stubStream {
	s := &stubStream{
		events: make(chan session.Event, len(events)),
		closed: make(chan struct{}),
	}
	for _, ev := range events {
		s.events <- ev
	}
	close(s.events)
	return s
}

func (s *stubStream) Events() <-chan session.Event { return s.events }

func (s *stubStream) Close() {
	s.once.Do(func() { close(s.closed) })
}

func TestConsumeTranslatesSessionEvents(t *testing.T) {
	stream := newStubStream(
		session.Event{Type: session.EventTextDelta, TextDelta: "hello"},
		session.Event{Type: session.EventCompleted, RunID: "run_1"},
	)
	svc := &chatServiceImpl{logger: zap.NewNop()}
	out := make(chan ChatEvent, 16)

	go svc.consume(context.Background(), "thread_1", stream, out)

	var got []ChatEventType
	for ev := range out {
		got = append(got, ev.Type)
	}
	assert.Equal(t, []ChatEventType{ChatEventDelta, ChatEventDone}, got)

	select {
	case <-stream.closed:
	case <-time.After(time.Second):
		t.Fatal("stream was not closed after the events drained")
	}
}

func TestConsumeStopsWhenClientDisconnects(t *testing.T) {
	// Far more events than the outbound buffer holds; nobody reads them.
	deltas := make([]session.Event, 64)
	for i := range deltas {
		deltas[i] = session.Event{Type: session.EventTextDelta, TextDelta: "x"}
	}
	stream := newStubStream(deltas...)

	svc := &chatServiceImpl{logger: zap.NewNop()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan ChatEvent, 16)
	done := make(chan struct{})
	go func() {
		svc.consume(ctx, "thread_1", stream, out)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consume kept running after the consumer went away")
	}

	select {
	case <-stream.closed:
	case <-time.After(time.Second):
		t.Fatal("stream was not closed on the abandoned turn")
	}

	// The outbound channel is closed, so the handler's read loop always
	// terminates even when events were dropped.
	drained := 0
	for range out {
		drained++
	}
	require.LessOrEqual(t, drained, cap(out))
}
