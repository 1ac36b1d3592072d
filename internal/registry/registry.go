// Package registry tracks live sessions and fans out broadcast lines.
package registry

import (
	"log/slog"
	"sync"

	"github.com/mmynk/expensedash/internal/metrics"
)

// Peer is one connected session as seen by the registry.
type Peer interface {
	ID() string
	// Username is empty until the session logs in.
	Username() string
	// WriteLines writes the lines as one contiguous batch.
	WriteLines(lines ...string) error
	Close() error
}

// Registry is the set of live sessions. Only the owning session removes
// itself; write failures never do.
type Registry struct {
	mu      sync.RWMutex
	peers   map[string]Peer
	metrics *metrics.Metrics
}

// New creates an empty Registry.
func New(m *metrics.Metrics) *Registry {
	return &Registry{
		peers:   make(map[string]Peer),
		metrics: m,
	}
}

// Add registers a peer.
func (r *Registry) Add(p Peer) {
	r.mu.Lock()
	r.peers[p.ID()] = p
	n := len(r.peers)
	r.mu.Unlock()

	r.metrics.Sessions.Set(float64(n))
	slog.Debug("Peer registered", "session_id", p.ID(), "total", n)
}

// Remove unregisters a peer. Removing an unknown peer is a no-op.
func (r *Registry) Remove(p Peer) {
	r.mu.Lock()
	_, ok := r.peers[p.ID()]
	delete(r.peers, p.ID())
	n := len(r.peers)
	r.mu.Unlock()

	if ok {
		r.metrics.Sessions.Set(float64(n))
		slog.Debug("Peer unregistered", "session_id", p.ID(), "total", n)
	}
}

// Count returns the number of live peers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// snapshot copies the current peers so no lock is held while writing.
func (r *Registry) snapshot(match func(Peer) bool) []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	peers := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		if match == nil || match(p) {
			peers = append(peers, p)
		}
	}
	return peers
}

// Broadcast writes lines to every live peer and returns how many received
// them. Each peer is written from its own goroutine so a stalled peer does
// not delay the others.
func (r *Registry) Broadcast(lines ...string) int {
	return r.deliver(r.snapshot(nil), lines)
}

// SendTo writes lines to every peer logged in as username.
func (r *Registry) SendTo(username string, lines ...string) int {
	if username == "" {
		return 0
	}
	return r.deliver(r.snapshot(func(p Peer) bool { return p.Username() == username }), lines)
}

func (r *Registry) deliver(peers []Peer, lines []string) int {
	if len(peers) == 0 || len(lines) == 0 {
		return 0
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		delivered int
	)
	for _, p := range peers {
		wg.Add(1)
		go func(p Peer) {
			defer wg.Done()
			if err := p.WriteLines(lines...); err != nil {
				r.metrics.BroadcastFailures.Inc()
				slog.Warn("Broadcast write failed", "session_id", p.ID(), "error", err)
				return
			}
			r.metrics.BroadcastLines.Add(float64(len(lines)))
			mu.Lock()
			delivered++
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	return delivered
}

// CloseAll closes every peer. Their sessions remove themselves once their
// read loops notice.
func (r *Registry) CloseAll() {
	for _, p := range r.snapshot(nil) {
		if err := p.Close(); err != nil {
			slog.Debug("Peer close failed", "session_id", p.ID(), "error", err)
		}
	}
}
