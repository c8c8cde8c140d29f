// Package sse implements a Server-Sent Events broker that pushes Store
// changes to connected front-ends.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/dailynotes/internal/models"
)

const (
	clientBuffer     = 64
	defaultBacklog   = 128
	defaultHeartbeat = 25 * time.Second
)

// changeEvents maps Store change kinds to SSE event names.
var changeEvents = map[models.ChangeKind]string{
	models.ChangeCreated:  "note.created",
	models.ChangeUpdated:  "note.updated",
	models.ChangeDeleted:  "note.deleted",
	models.ChangeReloaded: "notes.reloaded",
	models.ChangeSelected: "selection.changed",
}

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// message is either a ready-made Event or a Store change to translate.
type message struct {
	event  Event
	change models.ChangeKind
	id     string
}

type membership struct {
	ch    chan []byte
	after uint64 // replay backlog frames with a greater sequence number
	join  bool
	done  chan struct{}
}

type frame struct {
	seq uint64
	raw []byte
}

// Option configures a Broker.
type Option func(*Broker)

// WithHeartbeat sets the keep-alive comment interval on open streams.
// Zero disables it.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) { b.heartbeat = d }
}

// WithBacklog sets how many recent events are kept for Last-Event-ID replay.
func WithBacklog(n int) Option {
	return func(b *Broker) { b.backlog = n }
}

// Broker fans events out to SSE clients.
//
// A single goroutine owns the client set, the replay backlog and the
// notes.changed throttle; public methods talk to it over channels.
type Broker struct {
	changedMin time.Duration
	heartbeat  time.Duration
	backlog    int

	membershipCh chan membership
	messageCh    chan message

	clients   atomic.Int64
	closeOnce sync.Once
	stopCh    chan struct{}
	stopped   chan struct{}
}

// NewBroker creates a new SSE broker. notes.changed is sent at most once per
// changedThrottle.
func NewBroker(changedThrottle time.Duration, opts ...Option) *Broker {
	if changedThrottle <= 0 {
		changedThrottle = 2 * time.Second
	}
	b := &Broker{
		changedMin:   changedThrottle,
		heartbeat:    defaultHeartbeat,
		backlog:      defaultBacklog,
		membershipCh: make(chan membership),
		messageCh:    make(chan message, 256),
		stopCh:       make(chan struct{}),
		stopped:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		history     []frame
		seq         uint64
		lastChanged time.Time
	)

	send := func(e Event) {
		payload, err := json.Marshal(e.Data)
		if err != nil {
			return
		}
		seq++
		f := frame{seq: seq, raw: fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", seq, e.Type, payload)}
		if b.backlog > 0 {
			if len(history) == b.backlog {
				copy(history, history[1:])
				history = history[:len(history)-1]
			}
			history = append(history, f)
		}
		for ch := range clients {
			select {
			case ch <- f.raw:
			default:
				// Slow client; drop rather than stall every other stream.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			b.clients.Store(0)
			return

		case m := <-b.membershipCh:
			if m.join {
				for _, f := range history {
					if m.after > 0 && f.seq > m.after {
						select {
						case m.ch <- f.raw:
						default:
						}
					}
				}
				clients[m.ch] = struct{}{}
			} else if _, ok := clients[m.ch]; ok {
				delete(clients, m.ch)
				close(m.ch)
			}
			b.clients.Store(int64(len(clients)))
			close(m.done)

		case m := <-b.messageCh:
			if m.change == "" {
				send(m.event)
				continue
			}
			typ, ok := changeEvents[m.change]
			if !ok {
				continue
			}
			data := map[string]string{}
			if m.id != "" {
				data["id"] = m.id
			}
			send(Event{Type: typ, Data: data})
			if m.change == models.ChangeSelected {
				continue
			}
			if now := time.Now(); now.Sub(lastChanged) >= b.changedMin {
				lastChanged = now
				send(Event{Type: "notes.changed", Data: map[string]string{}})
			}
		}
	}
}

// Close stops the broker and closes every client channel. It is safe to
// call more than once.
func (b *Broker) Close() {
	b.closeOnce.Do(func() { close(b.stopCh) })
	<-b.stopped
}

func (b *Broker) membership(m membership) bool {
	m.done = make(chan struct{})
	select {
	case b.membershipCh <- m:
	case <-b.stopped:
		return false
	}
	<-m.done
	return true
}

// Subscribe adds a client. Events newer than lastEventID still in the
// backlog are queued first; pass 0 for none.
func (b *Broker) Subscribe(lastEventID uint64) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if !b.membership(membership{ch: ch, after: lastEventID, join: true}) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.membership(membership{ch: ch})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	return int(b.clients.Load())
}

func (b *Broker) enqueue(m message) {
	select {
	case <-b.stopCh:
		return
	default:
	}
	select {
	case b.messageCh <- m:
	case <-b.stopped:
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	b.enqueue(message{event: event})
}

// PublishNoteEvent publishes a Store change. Collection changes are
// followed by a throttled notes.changed event. Its signature matches
// notes.Listener.
func (b *Broker) PublishNoteEvent(kind models.ChangeKind, id string) {
	b.enqueue(message{change: kind, id: id})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). A Last-Event-ID
// header resumes from the backlog.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(lastID)
	defer b.Unsubscribe(ch)

	var ping <-chan time.Time
	if b.heartbeat > 0 {
		t := time.NewTicker(b.heartbeat)
		defer t.Stop()
		ping = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
