package session

import (
	"context"
	"fmt"

	"github.com/avremote-network/avremote/internal/avc"
	"github.com/avremote-network/avremote/internal/domain"
	"github.com/avremote-network/avremote/internal/infra/metrics"
)

// Controller drives one remote peer in the controller role. Controllers
// are cheap handles: they stay valid across disconnects, and every
// command operation fails with ErrRemoteNotFound while no connection is
// established.
type Controller struct {
	peerID domain.PeerID
	sup    *Supervisor
}

// PeerID returns the peer this controller drives.
func (c *Controller) PeerID() domain.PeerID { return c.peerID }

// IsConnected reports whether the peer has a live control channel.
func (c *Controller) IsConnected() bool {
	p := c.sup.peer(c.peerID)
	return p != nil && p.isConnected()
}

// TakeEventStream registers a listener for the peer's controller events.
// Listeners survive disconnects and receive events again after the peer
// reconnects.
func (c *Controller) TakeEventStream(ctx context.Context) (*EventStream, error) {
	_ = ctx
	p := c.sup.peer(c.peerID)
	if p == nil {
		return nil, domain.ErrRemoteNotFound
	}
	return p.takeEventStream(), nil
}

func (c *Controller) connection() (PeerConnection, error) {
	p := c.sup.peer(c.peerID)
	if p == nil {
		return nil, domain.ErrRemoteNotFound
	}
	conn, _, ok := p.connection()
	if !ok {
		return nil, domain.ErrRemoteNotFound
	}
	return conn, nil
}

// ─── Command Operations ─────────────────────────────────────────────────────

// SendKeypress sends a key press followed by its release. The release is
// sent even when the press is refused, so the remote never sees a stuck
// key; the first refusal still decides the result.
func (c *Controller) SendKeypress(ctx context.Context, key avc.KeyCode) error {
	conn, err := c.connection()
	if err != nil {
		return err
	}

	pressCode, pressErr := conn.SendPassthroughCommand(ctx, avc.EncodePassthroughBody(key, true))
	releaseCode, releaseErr := conn.SendPassthroughCommand(ctx, avc.EncodePassthroughBody(key, false))

	err = firstError(
		pressErr,
		releaseErr,
		passthroughResult(pressCode),
		passthroughResult(releaseCode),
	)
	observeExchange("send_keypress", err)
	return err
}

// SetAbsoluteVolume asks the peer to set its volume and returns the
// volume the peer confirmed.
func (c *Controller) SetAbsoluteVolume(ctx context.Context, volume byte) (byte, error) {
	conn, err := c.connection()
	if err != nil {
		return 0, err
	}
	params, err := fetchStatusCommand(ctx, conn,
		avc.PduSetAbsoluteVolume, avc.EncodeSetAbsoluteVolume(volume))
	observeExchange("set_absolute_volume", err)
	if err != nil {
		return 0, err
	}
	return avc.DecodeSetAbsoluteVolumeResponse(params)
}

// GetMediaAttributes fetches the element attributes of the currently
// playing track.
func (c *Controller) GetMediaAttributes(ctx context.Context) (domain.MediaAttributes, error) {
	conn, err := c.connection()
	if err != nil {
		return domain.MediaAttributes{}, err
	}
	params, err := fetchStatusCommand(ctx, conn,
		avc.PduGetElementAttributes, avc.EncodeGetElementAttributes())
	observeExchange("get_media_attributes", err)
	if err != nil {
		return domain.MediaAttributes{}, err
	}
	return avc.DecodeElementAttributes(params)
}

// GetSupportedEvents fetches the notification events the peer supports.
func (c *Controller) GetSupportedEvents(ctx context.Context) ([]avc.EventID, error) {
	conn, err := c.connection()
	if err != nil {
		return nil, err
	}
	params, err := fetchStatusCommand(ctx, conn,
		avc.PduGetCapabilities, avc.EncodeGetCapabilities(avc.CapabilityEventsSupported))
	observeExchange("get_supported_events", err)
	if err != nil {
		return nil, err
	}
	return avc.DecodeSupportedEvents(params)
}

// SendRawVendorCommand runs one status exchange for an arbitrary PDU and
// returns the assembled parameter bytes.
func (c *Controller) SendRawVendorCommand(ctx context.Context, pdu avc.PduID, params []byte) ([]byte, error) {
	conn, err := c.connection()
	if err != nil {
		return nil, err
	}
	out, err := fetchStatusCommand(ctx, conn, pdu, params)
	observeExchange("raw_vendor_command", err)
	return out, err
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// passthroughResult maps a passthrough response code to an operation
// result.
func passthroughResult(code avc.ResponseCode) error {
	switch code {
	case avc.ResponseAccepted:
		return nil
	case avc.ResponseRejected, avc.ResponseNotImplemented:
		return domain.ErrCommandNotSupported
	default:
		return fmt.Errorf("%w: %s", domain.ErrCommandFailed, code)
	}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func observeExchange(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.OutboundExchanges.WithLabelValues(operation, outcome).Inc()
}
