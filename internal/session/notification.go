package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/avremote-network/avremote/internal/avc"
	"github.com/avremote-network/avremote/internal/avctp"
	"github.com/avremote-network/avremote/internal/domain"
	"github.com/avremote-network/avremote/internal/infra/metrics"
)

// watchedEvents is the set of remote events the session layer subscribes
// to when the peer supports them.
var watchedEvents = []avc.EventID{
	avc.EventPlaybackStatusChanged,
	avc.EventTrackChanged,
	avc.EventPlaybackPosChanged,
	avc.EventVolumeChanged,
}

// connSource hands out the connection a notification stream should use,
// or an error when it is gone.
type connSource func() (PeerConnection, error)

// notificationStream is one long-lived subscription to a single remote
// event. Each Next call yields the raw payload of the next Interim
// notification; a Changed response or an ADDRESSED_PLAYER_CHANGED
// rejection transparently re-subscribes.
type notificationStream struct {
	source          connSource
	event           avc.EventID
	intervalSeconds uint32

	responses <-chan avctp.Response
}

func newNotificationStream(source connSource, event avc.EventID, intervalSeconds uint32) *notificationStream {
	return &notificationStream{source: source, event: event, intervalSeconds: intervalSeconds}
}

// Next blocks until the next notification payload for this event arrives.
// It terminates the stream with an error when the registration is refused
// or the connection goes away.
func (n *notificationStream) Next(ctx context.Context) ([]byte, error) {
	for {
		if n.responses == nil {
			if err := n.subscribe(ctx); err != nil {
				return nil, err
			}
		}

		var resp avctp.Response
		var open bool
		select {
		case resp, open = <-n.responses:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if !open {
			n.responses = nil
			return nil, domain.ErrConnectionClosed
		}
		if resp.Err != nil {
			n.responses = nil
			return nil, resp.Err
		}

		switch resp.Code {
		case avc.ResponseInterim:
			payload, err := n.decodeInterim(resp.Body)
			if err != nil {
				n.responses = nil
				return nil, err
			}
			return payload, nil
		case avc.ResponseChanged:
			// event fired; register again for the next one
			n.responses = nil
			continue
		case avc.ResponseRejected:
			n.responses = nil
			if err := n.classifyRejection(resp.Body); err != nil {
				return nil, err
			}
			continue
		case avc.ResponseNotImplemented:
			n.responses = nil
			return nil, domain.ErrCommandNotSupported
		default:
			n.responses = nil
			return nil, fmt.Errorf("%w: %s", domain.ErrUnexpectedResponse, resp.Code)
		}
	}
}

func (n *notificationStream) subscribe(ctx context.Context) error {
	conn, err := n.source()
	if err != nil {
		return err
	}
	body := avc.EncodeVendorBody(avc.PduRegisterNotification,
		avc.EncodeRegisterNotification(n.event, n.intervalSeconds))
	stream, err := conn.SendVendorCommand(ctx, avc.CommandNotify, body)
	if err != nil {
		return err
	}
	n.responses = stream
	return nil
}

func (n *notificationStream) decodeInterim(body []byte) ([]byte, error) {
	_, params, err := avc.DecodePreamble(body)
	if err != nil {
		return nil, err
	}
	event, payload, err := avc.DecodeRegisterNotificationEvent(params)
	if err != nil {
		return nil, err
	}
	if event != n.event {
		return nil, domain.NewPacketError(domain.PacketInvalidMessage,
			"notification for %s on %s subscription", event, n.event)
	}
	return payload, nil
}

// classifyRejection decides whether a Rejected response ends the stream.
// ADDRESSED_PLAYER_CHANGED re-subscribes, INVALID_PARAMETER means the
// event is not supported, INTERNAL_ERROR and an undecodable status are
// internal failures, and every remaining status fails the command.
func (n *notificationStream) classifyRejection(body []byte) error {
	status, err := avc.DecodeRejectedStatus(body)
	if err != nil {
		return domain.ErrInternal
	}
	switch status {
	case avc.StatusAddressedPlayerChanged:
		return nil
	case avc.StatusInvalidParameter:
		return domain.ErrCommandNotSupported
	case avc.StatusInternalError:
		return fmt.Errorf("%w: %s", domain.ErrInternal, status)
	default:
		return fmt.Errorf("%w: %s", domain.ErrCommandFailed, status)
	}
}

// ─── Notification Pump ──────────────────────────────────────────────────────

// runNotificationPump subscribes to every watched event the peer supports
// and broadcasts decoded notifications to the peer's listeners. It exits
// when the connection at epoch goes away.
func (s *Supervisor) runNotificationPump(ctx context.Context, peer *remotePeer, epoch uint64) {
	source := func() (PeerConnection, error) {
		conn, cur, ok := peer.connection()
		if !ok || cur != epoch {
			return nil, domain.ErrRemoteNotFound
		}
		return conn, nil
	}

	conn, err := source()
	if err != nil {
		return
	}
	params, err := fetchStatusCommand(ctx, conn,
		avc.PduGetCapabilities, avc.EncodeGetCapabilities(avc.CapabilityEventsSupported))
	if err != nil {
		log.Printf("[session] peer %s: supported events query failed: %v", peer.id, err)
		return
	}
	supported, err := avc.DecodeSupportedEvents(params)
	if err != nil {
		log.Printf("[session] peer %s: bad supported events reply: %v", peer.id, err)
		return
	}

	var wg sync.WaitGroup
	for _, event := range intersectWatched(supported) {
		wg.Add(1)
		go func(event avc.EventID) {
			defer wg.Done()
			s.watchEvent(ctx, peer, source, event)
		}(event)
	}
	wg.Wait()
}

func intersectWatched(supported []avc.EventID) []avc.EventID {
	var out []avc.EventID
	for _, want := range watchedEvents {
		for _, have := range supported {
			if want == have {
				out = append(out, want)
				break
			}
		}
	}
	return out
}

// watchEvent drives one notification stream until it terminates, turning
// payloads into ControllerEvents.
func (s *Supervisor) watchEvent(ctx context.Context, peer *remotePeer, source connSource, event avc.EventID) {
	metrics.NotificationStreamsActive.Inc()
	defer metrics.NotificationStreamsActive.Dec()

	stream := newNotificationStream(source, event, s.cfg.PositionIntervalSeconds)
	for {
		payload, err := stream.Next(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrRemoteNotFound) &&
				!errors.Is(err, domain.ErrConnectionClosed) &&
				!errors.Is(err, domain.ErrCommandNotSupported) &&
				!errors.Is(err, context.Canceled) {
				log.Printf("[session] peer %s: %s stream ended: %v", peer.id, event, err)
			}
			return
		}
		ev, err := decodeControllerEvent(event, payload)
		if err != nil {
			log.Printf("[session] peer %s: bad %s payload: %v", peer.id, event, err)
			continue
		}
		metrics.NotificationEvents.WithLabelValues(event.String()).Inc()
		peer.broadcastEvent(ev)
	}
}

func decodeControllerEvent(event avc.EventID, payload []byte) (domain.ControllerEvent, error) {
	switch event {
	case avc.EventPlaybackStatusChanged:
		status, err := avc.DecodePlaybackStatusPayload(payload)
		if err != nil {
			return domain.ControllerEvent{}, err
		}
		return domain.ControllerEvent{Kind: domain.PlaybackStatusChanged, Playback: status}, nil
	case avc.EventTrackChanged:
		track, err := avc.DecodeTrackIDPayload(payload)
		if err != nil {
			return domain.ControllerEvent{}, err
		}
		return domain.ControllerEvent{Kind: domain.TrackIDChanged, TrackID: track}, nil
	case avc.EventPlaybackPosChanged:
		pos, err := avc.DecodePlaybackPosPayload(payload)
		if err != nil {
			return domain.ControllerEvent{}, err
		}
		return domain.ControllerEvent{Kind: domain.PlaybackPosChanged, PosMs: pos}, nil
	case avc.EventVolumeChanged:
		volume, err := avc.DecodeVolumePayload(payload)
		if err != nil {
			return domain.ControllerEvent{}, err
		}
		return domain.ControllerEvent{Kind: domain.VolumeChanged, Volume: volume}, nil
	default:
		return domain.ControllerEvent{}, domain.NewPacketError(domain.PacketUnsupportedMessage,
			"event 0x%02x", byte(event))
	}
}
