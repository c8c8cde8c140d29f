package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/dailynotes/internal/models"
)

func next(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg := <-ch:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return ""
	}
}

func drain(ch chan []byte, wait time.Duration) []string {
	var out []string
	deadline := time.After(wait)
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		case <-deadline:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	assert.Equal(t, 0, b.ClientCount())

	ch := b.Subscribe(0)
	assert.Equal(t, 1, b.ClientCount())

	b.Unsubscribe(ch)
	assert.Equal(t, 0, b.ClientCount())
	_, open := <-ch
	assert.False(t, open, "unsubscribe closes the channel")
}

func TestPublishFrame(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe(0)
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "note.created", Data: map[string]string{"id": "n1"}})

	assert.Equal(t, "id: 1\nevent: note.created\ndata: {\"id\":\"n1\"}\n\n", next(t, ch))
}

func TestPublishNoteEvent_Mapping(t *testing.T) {
	cases := []struct {
		kind models.ChangeKind
		want string
		data string
	}{
		{models.ChangeCreated, "event: note.created", `{"id":"a"}`},
		{models.ChangeUpdated, "event: note.updated", `{"id":"a"}`},
		{models.ChangeDeleted, "event: note.deleted", `{"id":"a"}`},
		{models.ChangeSelected, "event: selection.changed", `{"id":"a"}`},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			b := NewBroker(time.Hour)
			defer b.Close()
			ch := b.Subscribe(0)

			b.PublishNoteEvent(tc.kind, "a")
			msg := next(t, ch)
			assert.Contains(t, msg, tc.want)
			assert.Contains(t, msg, "data: "+tc.data)
		})
	}

	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe(0)
	b.PublishNoteEvent(models.ChangeReloaded, "")
	assert.Contains(t, next(t, ch), "event: notes.reloaded\ndata: {}")
}

func TestPublishNoteEvent_ChangedThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe(0)
	defer b.Unsubscribe(ch)

	b.PublishNoteEvent(models.ChangeCreated, "a")
	b.PublishNoteEvent(models.ChangeUpdated, "b")

	var changed, notes int
	for _, msg := range drain(ch, 100*time.Millisecond) {
		if strings.Contains(msg, "notes.changed") {
			changed++
		} else {
			notes++
		}
	}
	assert.Equal(t, 2, notes)
	assert.Equal(t, 1, changed, "notes.changed is throttled")
}

func TestPublishNoteEvent_SelectionIsNotACollectionChange(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	ch := b.Subscribe(0)
	defer b.Unsubscribe(ch)

	b.PublishNoteEvent(models.ChangeSelected, "a")

	msgs := drain(ch, 100*time.Millisecond)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "selection.changed")
}

func TestSubscribe_ReplaysBacklogAfterLastEventID(t *testing.T) {
	b := NewBroker(time.Hour, WithBacklog(3))
	defer b.Close()
	probe := b.Subscribe(0)

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		b.Publish(Event{Type: "note.updated", Data: map[string]string{"id": id}})
	}
	require.Len(t, drain(probe, 100*time.Millisecond), 5)

	// Backlog holds 3..5; resuming after 3 replays 4 and 5.
	ch := b.Subscribe(3)
	defer b.Unsubscribe(ch)
	msgs := drain(ch, 50*time.Millisecond)
	require.Len(t, msgs, 2)
	assert.True(t, strings.HasPrefix(msgs[0], "id: 4\n"))
	assert.True(t, strings.HasPrefix(msgs[1], "id: 5\n"))

	// A fresh client gets no replay.
	fresh := b.Subscribe(0)
	defer b.Unsubscribe(fresh)
	assert.Empty(t, drain(fresh, 50*time.Millisecond))
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100*time.Millisecond, WithHeartbeat(0))
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	b.PublishNoteEvent(models.ChangeUpdated, "x")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "event: note.updated")
	assert.Equal(t, 0, b.ClientCount(), "client cleaned up after disconnect")
}

// lockedRecorder lets the test read the body while the handler writes.
type lockedRecorder struct {
	mu  sync.Mutex
	rec *httptest.ResponseRecorder
}

func (l *lockedRecorder) Header() http.Header { return l.rec.Header() }

func (l *lockedRecorder) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rec.Write(p)
}

func (l *lockedRecorder) WriteHeader(code int) { l.rec.WriteHeader(code) }

func (l *lockedRecorder) Flush() {}

func (l *lockedRecorder) body() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rec.Body.String()
}

func TestSSEHandler_HeartbeatAndResume(t *testing.T) {
	b := NewBroker(time.Hour, WithHeartbeat(10*time.Millisecond))
	defer b.Close()
	probe := b.Subscribe(0)
	b.Publish(Event{Type: "note.created", Data: map[string]string{"id": "old"}})
	b.Publish(Event{Type: "note.created", Data: map[string]string{"id": "new"}})
	next(t, probe)
	next(t, probe)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	req.Header.Set("Last-Event-ID", "1")
	w := &lockedRecorder{rec: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(w.body(), ": ping\n\n")
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	body := w.body()
	assert.Contains(t, body, `"id":"new"`)
	assert.NotContains(t, body, `"id":"old"`)
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe(0)
	defer b.Unsubscribe(ch)

	// More than the client buffer must not block the broker.
	for i := 0; i < clientBuffer+10; i++ {
		b.Publish(Event{Type: "test", Data: map[string]int{"i": i}})
	}
	other := b.Subscribe(0)
	defer b.Unsubscribe(other)
	assert.Equal(t, 2, b.ClientCount())
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe(0)
	require.Equal(t, 1, b.ClientCount())

	b.Close()
	b.Close()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "subscriber channel closed")
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}
	assert.Equal(t, 0, b.ClientCount())

	// Safe no-ops after close.
	b.Publish(Event{Type: "note.updated", Data: map[string]string{"id": "x"}})
	b.PublishNoteEvent(models.ChangeUpdated, "x")
	b.Unsubscribe(ch)
	_, ok := <-b.Subscribe(0)
	assert.False(t, ok)
}
