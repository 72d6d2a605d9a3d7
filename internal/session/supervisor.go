// Package session owns the lifetime of every remote peer: it consumes
// discovery reports, establishes and tears down control channels, answers
// inbound commands in the target role, keeps notification subscriptions
// alive, and hands out controllers for the local host to drive peers.
package session

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"

	"github.com/avremote-network/avremote/internal/avc"
	"github.com/avremote-network/avremote/internal/avctp"
	"github.com/avremote-network/avremote/internal/discovery"
	"github.com/avremote-network/avremote/internal/domain"
	"github.com/avremote-network/avremote/internal/infra/metrics"
)

// Config tunes the supervisor.
type Config struct {
	// PSM is the L2CAP multiplexer id outbound channels are dialed on.
	PSM uint16
	// PositionIntervalSeconds is the reporting interval requested for
	// playback position notifications.
	PositionIntervalSeconds uint32
}

func (c *Config) withDefaults() {
	if c.PSM == 0 {
		c.PSM = avc.PSMAVCTP
	}
	if c.PositionIntervalSeconds == 0 {
		c.PositionIntervalSeconds = 5
	}
}

type controllerRequest struct {
	peerID domain.PeerID
	reply  chan *Controller
}

type connectResult struct {
	peerID  domain.PeerID
	channel io.ReadWriteCloser
	err     error
}

// inboundItem is one inbound command tagged with the connection epoch it
// arrived on. closed marks the end of that connection's command stream.
type inboundItem struct {
	peerID domain.PeerID
	epoch  uint64
	cmd    *avctp.Command
	closed bool
}

// Supervisor multiplexes discovery reports, controller requests, outbound
// connect results, and inbound commands over one event loop. The loop is
// the only writer of the peer registry and of dispatcher installs.
type Supervisor struct {
	cfg Config
	svc discovery.Service

	// dial wraps a raw channel into a connection; tests swap it out
	dial func(io.ReadWriteCloser) PeerConnection

	mu    sync.RWMutex
	peers map[domain.PeerID]*remotePeer

	requests chan controllerRequest
	connects chan connectResult
	inbound  chan inboundItem
}

// NewSupervisor builds a supervisor over the given discovery service.
func NewSupervisor(svc discovery.Service, cfg Config) *Supervisor {
	cfg.withDefaults()
	return &Supervisor{
		cfg:      cfg,
		svc:      svc,
		dial:     func(ch io.ReadWriteCloser) PeerConnection { return avctp.NewConnection(ch) },
		peers:    make(map[domain.PeerID]*remotePeer),
		requests: make(chan controllerRequest),
		connects: make(chan connectResult),
		inbound:  make(chan inboundItem, 32),
	}
}

// Run drives the event loop until ctx is canceled or discovery fails
// fatally. A nil return is a clean shutdown.
func (s *Supervisor) Run(ctx context.Context) error {
	events := s.svc.Events()
	errs := s.svc.Errors()

	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return nil
		case err, ok := <-errs:
			if !ok {
				err = domain.ErrDiscoveryClosed
			}
			s.closeAll()
			return fmt.Errorf("discovery failed: %w", err)
		case ev, ok := <-events:
			if !ok {
				s.closeAll()
				return domain.ErrDiscoveryClosed
			}
			s.handleDiscoveryEvent(ctx, ev)
		case req := <-s.requests:
			peer := s.ensurePeer(req.peerID)
			req.reply <- &Controller{peerID: peer.id, sup: s}
		case res := <-s.connects:
			s.handleConnectResult(ctx, res)
		case item := <-s.inbound:
			s.handleInbound(ctx, item)
		}
	}
}

// ControllerRequest returns a controller for peer. The peer is created in
// the registry if it is unknown; the controller itself never fails, its
// operations do when no connection exists.
func (s *Supervisor) ControllerRequest(ctx context.Context, peerID domain.PeerID) (*Controller, error) {
	req := controllerRequest{peerID: peerID, reply: make(chan *Controller, 1)}
	select {
	case s.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case ctrl := <-req.reply:
		return ctrl, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Snapshots returns the registry's read-only view, sorted by peer id.
func (s *Supervisor) Snapshots() []domain.PeerSnapshot {
	s.mu.RLock()
	peers := make([]*remotePeer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.RUnlock()

	snaps := make([]domain.PeerSnapshot, 0, len(peers))
	for _, p := range peers {
		snaps = append(snaps, p.snapshot())
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID < snaps[j].ID })
	return snaps
}

// Snapshot returns one peer's view.
func (s *Supervisor) Snapshot(peerID domain.PeerID) (domain.PeerSnapshot, bool) {
	if p := s.peer(peerID); p != nil {
		return p.snapshot(), true
	}
	return domain.PeerSnapshot{}, false
}

// ─── Registry ───────────────────────────────────────────────────────────────

func (s *Supervisor) peer(id domain.PeerID) *remotePeer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.peers[id]
}

// ensurePeer returns the tracked peer, creating it on first sight. The
// registry only grows; peers stay tracked across disconnects.
func (s *Supervisor) ensurePeer(id domain.PeerID) *remotePeer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.peers[id]; ok {
		return p
	}
	p := newRemotePeer(id)
	s.peers[id] = p
	metrics.PeersKnown.Set(float64(len(s.peers)))
	log.Printf("[session] tracking peer %s", id)
	return p
}

func (s *Supervisor) closeAll() {
	s.mu.RLock()
	peers := make([]*remotePeer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.RUnlock()
	for _, p := range peers {
		_, epoch, ok := p.connection()
		if ok {
			p.resetConnection(epoch)
		}
	}
}

// ─── Event Handling ─────────────────────────────────────────────────────────

func (s *Supervisor) handleDiscoveryEvent(ctx context.Context, ev discovery.Event) {
	peer := s.ensurePeer(ev.PeerID)
	switch ev.Kind {
	case discovery.EventIncomingConnection:
		log.Printf("[session] peer %s: inbound control channel", peer.id)
		peer.installConnection(s.dial(ev.Channel))
		// pumps wait for a role descriptor; checkPeerState starts them
		// once one is known
		s.checkPeerState(ctx, peer)
	case discovery.EventServicesDiscovered:
		peer.mergeServices(ev.Services)
		log.Printf("[session] peer %s: %d service record(s)", peer.id, len(ev.Services))
		s.checkPeerState(ctx, peer)
	}
}

// checkPeerState advances a peer toward its goal state: a descriptor plus
// no connection starts an outbound attempt, an established connection gets
// its pumps if it has none yet.
func (s *Supervisor) checkPeerState(ctx context.Context, peer *remotePeer) {
	if !peer.hasDescriptor() {
		return
	}
	if _, epoch, ok := peer.connection(); ok {
		if peer.currentDispatcher() == nil {
			s.startPumps(ctx, peer, epoch)
		}
		return
	}
	if !peer.markConnecting() {
		return
	}
	log.Printf("[session] peer %s: dialing control channel", peer.id)
	go func() {
		channel, err := s.svc.ConnectToDevice(ctx, peer.id, s.cfg.PSM)
		select {
		case s.connects <- connectResult{peerID: peer.id, channel: channel, err: err}:
		case <-ctx.Done():
			if channel != nil {
				channel.Close()
			}
		}
	}()
}

func (s *Supervisor) handleConnectResult(ctx context.Context, res connectResult) {
	peer := s.ensurePeer(res.peerID)
	if res.err != nil {
		metrics.ConnectFailures.Inc()
		log.Printf("[session] peer %s: outbound connect failed: %v", peer.id, res.err)
		peer.abortConnecting()
		return
	}
	// last transition wins: an inbound connection racing this dial is
	// replaced by the fresher channel
	epoch := peer.installConnection(s.dial(res.channel))
	s.startPumps(ctx, peer, epoch)
}

// startPumps installs the dispatcher and starts the command and
// notification pumps for the connection at epoch. The dispatcher is
// installed only once at least one role descriptor is known.
func (s *Supervisor) startPumps(ctx context.Context, peer *remotePeer, epoch uint64) {
	if !peer.hasDescriptor() {
		return
	}
	conn, cur, ok := peer.connection()
	if !ok || cur != epoch {
		return
	}
	peer.setDispatcher(newDispatcher(s, peer.id))
	go s.runCommandPump(ctx, peer.id, epoch, conn)
	go s.runNotificationPump(ctx, peer, epoch)
}

// runCommandPump forwards one connection's inbound commands into the
// loop, tagged with the connection epoch so stale items are dropped.
func (s *Supervisor) runCommandPump(ctx context.Context, peerID domain.PeerID, epoch uint64, conn PeerConnection) {
	for cmd := range conn.IncomingCommands() {
		select {
		case s.inbound <- inboundItem{peerID: peerID, epoch: epoch, cmd: cmd}:
		case <-ctx.Done():
			return
		}
	}
	select {
	case s.inbound <- inboundItem{peerID: peerID, epoch: epoch, closed: true}:
	case <-ctx.Done():
	}
}

func (s *Supervisor) handleInbound(ctx context.Context, item inboundItem) {
	peer := s.peer(item.peerID)
	if peer == nil {
		return
	}
	_, epoch, ok := peer.connection()
	if !ok || epoch != item.epoch {
		return // connection already replaced or gone
	}

	if item.closed {
		log.Printf("[session] peer %s: command stream ended", peer.id)
		s.resetPeer(ctx, peer, item.epoch)
		return
	}
	if item.cmd.Err != nil {
		log.Printf("[session] peer %s: undecodable frame: %v", peer.id, item.cmd.Err)
		s.resetPeer(ctx, peer, item.epoch)
		return
	}

	d := peer.currentDispatcher()
	if d == nil {
		return
	}
	if err := d.handleCommand(item.cmd); err != nil {
		log.Printf("[session] peer %s: response send failed: %v", peer.id, err)
		s.resetPeer(ctx, peer, item.epoch)
	}
}

// resetPeer tears the connection down and, with a descriptor still known,
// immediately tries to get a new one.
func (s *Supervisor) resetPeer(ctx context.Context, peer *remotePeer, epoch uint64) {
	if !peer.resetConnection(epoch) {
		return
	}
	metrics.ConnectionResets.Inc()
	log.Printf("[session] peer %s: connection reset", peer.id)
	s.checkPeerState(ctx, peer)
}
