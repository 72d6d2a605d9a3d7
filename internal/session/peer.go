package session

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/avremote-network/avremote/internal/domain"
	"github.com/avremote-network/avremote/internal/infra/metrics"
)

const listenerBacklog = 16

// EventStream is one listener's receiving end of a peer's controller
// events. Close detaches it; the events channel is then closed by the
// next broadcast.
type EventStream struct {
	id     uuid.UUID
	events chan domain.ControllerEvent
	done   chan struct{}
	once   sync.Once
}

// Events returns the event channel. It closes after Close.
func (s *EventStream) Events() <-chan domain.ControllerEvent { return s.events }

// Close detaches the listener from its peer.
func (s *EventStream) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *EventStream) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// remotePeer is the shared state for one remote device: connection and
// descriptors under mu, listeners and the installed dispatcher under
// ctlMu. The supervisor loop is the only writer of dispatcher state.
type remotePeer struct {
	id domain.PeerID

	mu         sync.RWMutex
	status     domain.ConnectionStatus
	conn       PeerConnection
	epoch      uint64 // bumped on every install and reset
	targetDesc *domain.ServiceRecord
	ctrlDesc   *domain.ServiceRecord

	ctlMu      sync.Mutex
	listeners  []*EventStream
	dispatcher *dispatcher
}

func newRemotePeer(id domain.PeerID) *remotePeer {
	return &remotePeer{id: id, status: domain.StatusDisconnected}
}

// connection returns the live connection, its epoch, and whether one is
// established.
func (p *remotePeer) connection() (PeerConnection, uint64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.status != domain.StatusConnected || p.conn == nil {
		return nil, p.epoch, false
	}
	return p.conn, p.epoch, true
}

func (p *remotePeer) isConnected() bool {
	_, _, ok := p.connection()
	return ok
}

func (p *remotePeer) hasDescriptor() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.targetDesc != nil || p.ctrlDesc != nil
}

// markConnecting flips Disconnected to Connecting. It refuses any other
// starting state so only one outbound attempt runs at a time.
func (p *remotePeer) markConnecting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != domain.StatusDisconnected {
		return false
	}
	p.status = domain.StatusConnecting
	return true
}

// abortConnecting returns a failed outbound attempt to Disconnected. A
// connection installed in the meantime wins and stays.
func (p *remotePeer) abortConnecting() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == domain.StatusConnecting {
		p.status = domain.StatusDisconnected
	}
}

// installConnection makes conn the peer's connection. The last transition
// wins: an existing connection is closed and replaced.
func (p *remotePeer) installConnection(conn PeerConnection) uint64 {
	p.mu.Lock()
	old := p.conn
	wasConnected := p.status == domain.StatusConnected
	p.conn = conn
	p.status = domain.StatusConnected
	p.epoch++
	epoch := p.epoch
	p.mu.Unlock()

	p.clearDispatcher()
	if old != nil {
		log.Printf("[session] peer %s: replacing existing connection", p.id)
		_ = old.Close()
	}
	if !wasConnected {
		metrics.PeersConnected.Inc()
	}
	return epoch
}

// resetConnection tears down the connection installed at epoch. A stale
// epoch means a newer connection exists; that one is left alone.
func (p *remotePeer) resetConnection(epoch uint64) bool {
	p.mu.Lock()
	if p.epoch != epoch || p.conn == nil {
		p.mu.Unlock()
		return false
	}
	conn := p.conn
	p.conn = nil
	p.status = domain.StatusDisconnected
	p.epoch++
	p.mu.Unlock()

	p.clearDispatcher()
	_ = conn.Close()
	metrics.PeersConnected.Dec()
	return true
}

func (p *remotePeer) mergeServices(records []domain.ServiceRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range records {
		rec := records[i]
		switch rec.Role {
		case domain.RoleTarget:
			p.targetDesc = &rec
		case domain.RoleController:
			p.ctrlDesc = &rec
		}
	}
}

func (p *remotePeer) snapshot() domain.PeerSnapshot {
	p.mu.RLock()
	snap := domain.PeerSnapshot{
		ID:                   p.id,
		Status:               p.status,
		TargetDescriptor:     p.targetDesc != nil,
		ControllerDescriptor: p.ctrlDesc != nil,
	}
	p.mu.RUnlock()

	p.ctlMu.Lock()
	snap.DispatcherInstalled = p.dispatcher != nil
	snap.Listeners = len(p.listeners)
	p.ctlMu.Unlock()
	return snap
}

// ─── Dispatcher ─────────────────────────────────────────────────────────────

func (p *remotePeer) setDispatcher(d *dispatcher) {
	p.ctlMu.Lock()
	p.dispatcher = d
	p.ctlMu.Unlock()
}

func (p *remotePeer) clearDispatcher() {
	p.ctlMu.Lock()
	p.dispatcher = nil
	p.ctlMu.Unlock()
}

func (p *remotePeer) currentDispatcher() *dispatcher {
	p.ctlMu.Lock()
	defer p.ctlMu.Unlock()
	return p.dispatcher
}

// ─── Event Listeners ────────────────────────────────────────────────────────

// takeEventStream registers a new bounded listener. Listeners survive
// connection resets; they are pruned when their stream is closed.
func (p *remotePeer) takeEventStream() *EventStream {
	s := &EventStream{
		id:     uuid.New(),
		events: make(chan domain.ControllerEvent, listenerBacklog),
		done:   make(chan struct{}),
	}
	p.ctlMu.Lock()
	p.listeners = append(p.listeners, s)
	p.ctlMu.Unlock()
	return s
}

// broadcastEvent delivers ev to every live listener. Closed listeners are
// pruned here; a listener that cannot keep up loses the event.
func (p *remotePeer) broadcastEvent(ev domain.ControllerEvent) {
	p.ctlMu.Lock()
	defer p.ctlMu.Unlock()

	live := p.listeners[:0]
	for _, s := range p.listeners {
		if s.closed() {
			close(s.events)
			continue
		}
		live = append(live, s)
		select {
		case s.events <- ev:
		default:
			log.Printf("[session] peer %s: listener %s backlog full, dropping %s",
				p.id, s.id, ev.Kind)
		}
	}
	p.listeners = live
}
