package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rmksrv/mkxray-web/pkg/protocol"
)

// maxSSEClients caps concurrent activity streams.
const maxSSEClients = 32

// ErrTooManyClients is returned by Subscribe when the stream cap is reached.
var ErrTooManyClients = errors.New("too many activity stream clients")

// EventBus fans NATS events out to SSE clients and keeps a ring buffer of recent events.
type EventBus struct {
	mu       sync.RWMutex
	clients  map[chan []byte]struct{}
	ring     [][]byte
	ringSize int
	ringPos  int
	ringLen  int
}

// NewEventBus creates an event bus with the given ring buffer size.
func NewEventBus(size int) *EventBus {
	return &EventBus{
		clients:  make(map[chan []byte]struct{}),
		ring:     make([][]byte, size),
		ringSize: size,
	}
}

// Publish adds an event to the ring buffer and fans it out to all SSE clients.
func (eb *EventBus) Publish(data []byte) {
	data = append([]byte(nil), data...)

	eb.mu.Lock()
	eb.ring[eb.ringPos] = data
	eb.ringPos = (eb.ringPos + 1) % eb.ringSize
	if eb.ringLen < eb.ringSize {
		eb.ringLen++
	}
	clients := make([]chan []byte, 0, len(eb.clients))
	for ch := range eb.clients {
		clients = append(clients, ch)
	}
	eb.mu.Unlock()

	for _, ch := range clients {
		select {
		case ch <- data:
		default:
			// Slow client, drop.
		}
	}
}

// Subscribe returns a channel that receives events and an unsubscribe function.
func (eb *EventBus) Subscribe() (chan []byte, func(), error) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if len(eb.clients) >= maxSSEClients {
		return nil, nil, ErrTooManyClients
	}
	ch := make(chan []byte, 16)
	eb.clients[ch] = struct{}{}
	return ch, func() {
		eb.mu.Lock()
		delete(eb.clients, ch)
		eb.mu.Unlock()
	}, nil
}

// Recent returns the ring buffer contents in chronological order.
func (eb *EventBus) Recent() [][]byte {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	result := make([][]byte, 0, eb.ringLen)
	start := (eb.ringPos - eb.ringLen + eb.ringSize) % eb.ringSize
	for i := 0; i < eb.ringLen; i++ {
		if data := eb.ring[(start+i)%eb.ringSize]; data != nil {
			result = append(result, data)
		}
	}
	return result
}

// ActivityRow is one generated command on the activity page.
type ActivityRow struct {
	Time    string
	Source  string
	Dest    string
	Arch    string
	Command string
}

func decodeActivity(data []byte) (ActivityRow, bool) {
	var evt protocol.Event
	if err := json.Unmarshal(data, &evt); err != nil || evt.Type != protocol.EventCommandGenerated {
		return ActivityRow{}, false
	}
	str := func(k string) string {
		v, _ := evt.Payload[k].(string)
		return v
	}
	return ActivityRow{
		Time:    time.Unix(evt.Timestamp, 0).Format("2006-01-02 15:04:05"),
		Source:  evt.Source,
		Dest:    str("dest"),
		Arch:    str("arch"),
		Command: str("command"),
	}, true
}

func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ch, unsub, err := s.eventBus.Subscribe()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer unsub()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case data := <-ch:
			html := s.renderActivityRow(data)
			if html == "" {
				continue
			}
			writeSSE(w, "activity", html)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// writeSSE emits one event; multi-line payloads become several data lines.
func writeSSE(w http.ResponseWriter, event, payload string) {
	fmt.Fprintf(w, "event: %s\n", event)
	for _, line := range strings.Split(payload, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
}

func (s *Server) renderActivityRow(data []byte) string {
	row, ok := decodeActivity(data)
	if !ok {
		return ""
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "activity_row", row); err != nil {
		s.logger.Error().Err(err).Msg("render activity row")
		return ""
	}
	return strings.TrimSpace(buf.String())
}
