// Package activity counts generated install commands and announces them on NATS.
package activity

import (
	"encoding/json"
	"maps"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/rmksrv/mkxray-web/pkg/protocol"
)

// Stats is a point-in-time copy of the counters.
type Stats struct {
	Total  int64
	ByArch map[string]int64
}

// Recorder tracks generated commands. A nil NATS connection disables publishing.
type Recorder struct {
	mu     sync.Mutex
	total  int64
	byArch map[string]int64
	nc     *nats.Conn
	logger zerolog.Logger
}

// New creates a Recorder.
func New(nc *nats.Conn, logger zerolog.Logger) *Recorder {
	return &Recorder{
		byArch: make(map[string]int64),
		nc:     nc,
		logger: logger.With().Str("component", "activity").Logger(),
	}
}

// Record counts one generation and publishes it on mkxray.events.<source>.
// Publish errors are logged and otherwise ignored.
func (r *Recorder) Record(source, dest, arch, command string) {
	r.mu.Lock()
	r.total++
	r.byArch[arch]++
	r.mu.Unlock()

	if r.nc == nil {
		return
	}
	data, err := json.Marshal(protocol.NewCommandEvent(source, dest, arch, command))
	if err != nil {
		r.logger.Error().Err(err).Msg("marshal command event")
		return
	}
	if err := r.nc.Publish(protocol.SubjectEvents(source), data); err != nil {
		r.logger.Warn().Err(err).Str("source", source).Msg("publish command event")
	}
}

// Stats returns a snapshot of the counters.
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{Total: r.total, ByArch: maps.Clone(r.byArch)}
}

// Connected reports whether events are published.
func (r *Recorder) Connected() bool {
	return r.nc != nil && r.nc.IsConnected()
}
