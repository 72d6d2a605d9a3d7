// Package discovery reports remote-control peers to the session supervisor:
// service records as they are discovered and raw control channels as remote
// devices connect inbound. It also dials outbound control channels.
package discovery

import (
	"context"
	"io"

	"github.com/avremote-network/avremote/internal/domain"
)

// EventKind tags a discovery event variant.
type EventKind int

const (
	// EventIncomingConnection carries a raw control channel a remote peer
	// opened toward the local host.
	EventIncomingConnection EventKind = iota
	// EventServicesDiscovered carries service records found for a peer.
	EventServicesDiscovered
)

// Event is one discovery report. Channel is set for
// EventIncomingConnection, Services for EventServicesDiscovered.
type Event struct {
	Kind     EventKind
	PeerID   domain.PeerID
	Channel  io.ReadWriteCloser
	Services []domain.ServiceRecord
}

// Service is the discovery boundary the supervisor runs against. A fatal
// failure of the underlying stack is reported on Errors and ends the
// supervisor.
type Service interface {
	// Events is the stream of discovery reports.
	Events() <-chan Event

	// Errors reports unrecoverable discovery failures.
	Errors() <-chan error

	// ConnectToDevice opens an outbound control channel to peer on the
	// given protocol/service multiplexer id.
	ConnectToDevice(ctx context.Context, peer domain.PeerID, psm uint16) (io.ReadWriteCloser, error)

	// Close releases the discovery stack.
	Close() error
}
