// Package sse implements a Server-Sent Events broker that tells clients when
// the model artifacts behind a running server change on disk.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data any    `json:"data"`
}

// Event types.
const (
	EventArtifactChanged = "artifact.changed"
	EventArtifactRemoved = "artifact.removed"
	EventModelStale      = "model.stale"
)

type artifactEventReq struct {
	path     string
	checksum string
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients + stale throttle timestamp). Public methods communicate with this loop
// through channels, so no mutexes are required.
type Broker struct {
	staleMin time.Duration

	subscribeCh     chan chan []byte
	unsubscribeCh   chan chan []byte
	publishCh       chan Event
	artifactEventCh chan artifactEventReq
	countReqCh      chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. At most one model.stale event is sent
// per staleThrottle interval.
func NewBroker(staleThrottle time.Duration) *Broker {
	if staleThrottle <= 0 {
		staleThrottle = 2 * time.Second
	}

	b := &Broker{
		staleMin:        staleThrottle,
		subscribeCh:     make(chan chan []byte),
		unsubscribeCh:   make(chan chan []byte),
		publishCh:       make(chan Event, 256),
		artifactEventCh: make(chan artifactEventReq, 256),
		countReqCh:      make(chan chan int),
		stopCh:          make(chan struct{}),
		stopped:         make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastStale time.Time
	// stale is the last model.stale frame; it is replayed to clients that
	// connect after the artifacts changed.
	var stale []byte

	send := func(ch chan []byte, frame []byte) {
		select {
		case ch <- frame:
		default:
			// Client buffer full; skip to avoid blocking broker loop.
		}
	}
	broadcast := func(event Event) []byte {
		frame, err := encode(event)
		if err != nil {
			return nil
		}
		for ch := range clients {
			send(ch, frame)
		}
		return frame
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}
			if stale != nil {
				send(ch, stale)
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.artifactEventCh:
			if req.checksum == "" {
				broadcast(Event{Type: EventArtifactRemoved, Data: map[string]string{"path": req.path}})
			} else {
				broadcast(Event{Type: EventArtifactChanged, Data: map[string]string{
					"path":     req.path,
					"checksum": req.checksum,
				}})
			}

			now := time.Now()
			if now.Sub(lastStale) >= b.staleMin {
				lastStale = now
				stale = broadcast(Event{Type: EventModelStale, Data: map[string]string{
					"path":    req.path,
					"message": "restart to load the new model",
					"since":   now.UTC().Format(time.RFC3339),
				}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// encode renders event as one SSE frame.
func encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", event.Type, payload), nil
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishArtifactChange publishes an artifact change and a throttled
// model.stale event. An empty checksum means the file was removed. It has
// the signature of a bundle watcher callback.
func (b *Broker) PublishArtifactChange(path, checksum string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.artifactEventCh <- artifactEventReq{path: path, checksum: checksum}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
