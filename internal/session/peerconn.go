package session

import (
	"context"

	"github.com/avremote-network/avremote/internal/avc"
	"github.com/avremote-network/avremote/internal/avctp"
)

// PeerConnection is the transport boundary the session layer runs against.
// avctp.Connection is the production implementation; tests inject fakes.
type PeerConnection interface {
	// SendVendorCommand sends one vendor-dependent command and returns the
	// stream its responses arrive on.
	SendVendorCommand(ctx context.Context, ctype avc.CommandType, body []byte) (<-chan avctp.Response, error)

	// SendPassthroughCommand sends one panel passthrough command and waits
	// for its single response.
	SendPassthroughCommand(ctx context.Context, body []byte) (avc.ResponseCode, error)

	// IncomingCommands is the stream of commands the remote peer sends.
	IncomingCommands() <-chan *avctp.Command

	// Close tears the connection down.
	Close() error
}
