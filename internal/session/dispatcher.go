package session

import (
	"fmt"
	"log"

	"github.com/avremote-network/avremote/internal/avc"
	"github.com/avremote-network/avremote/internal/avctp"
	"github.com/avremote-network/avremote/internal/domain"
	"github.com/avremote-network/avremote/internal/infra/metrics"
)

// dispatcher answers commands the remote peer sends while the local host
// is in the target role. It holds a non-owning reference back into the
// registry; a reset clears it from the peer and a stale dispatcher simply
// stops being called.
type dispatcher struct {
	peerID domain.PeerID
	sup    *Supervisor
}

func newDispatcher(sup *Supervisor, peerID domain.PeerID) *dispatcher {
	return &dispatcher{peerID: peerID, sup: sup}
}

// handleCommand answers one inbound command. A returned error is a
// transport failure sending the response and grounds for a reset;
// unrecognized or malformed commands are answered on the wire and do not
// error.
func (d *dispatcher) handleCommand(cmd *avctp.Command) error {
	var err error
	switch cmd.Opcode {
	case avc.OpcodePassthrough:
		err = d.handlePassthrough(cmd)
	case avc.OpcodeVendorDependent:
		err = d.handleVendor(cmd)
	default:
		err = cmd.Respond(avc.ResponseNotImplemented, cmd.Body)
	}

	result := "ok"
	if err != nil {
		result = "transport_error"
	}
	metrics.InboundCommands.WithLabelValues(cmd.Opcode.String(), result).Inc()
	return err
}

// ─── Passthrough ────────────────────────────────────────────────────────────

func (d *dispatcher) handlePassthrough(cmd *avctp.Command) error {
	key, _, err := avc.DecodePassthroughBody(cmd.Body)
	if err != nil {
		// best effort: a rejection we cannot send is logged, not escalated
		if rerr := cmd.Respond(avc.ResponseRejected, cmd.Body); rerr != nil {
			log.Printf("[session] peer %s: rejecting malformed passthrough: %v", d.peerID, rerr)
		}
		return nil
	}
	if !avc.KnownKeyCode(key) {
		return cmd.Respond(avc.ResponseRejected, cmd.Body)
	}
	return cmd.Respond(avc.ResponseAccepted, cmd.Body)
}

// ─── Vendor-Dependent ───────────────────────────────────────────────────────

func (d *dispatcher) handleVendor(cmd *avctp.Command) error {
	pre, params, err := avc.DecodePreamble(cmd.Body)
	if err != nil {
		// not even a preamble: echo what we can and say not implemented
		var pdu avc.PduID
		if len(cmd.Body) > 0 {
			pdu = avc.PduID(cmd.Body[0])
		}
		return cmd.Respond(avc.ResponseNotImplemented, avc.EncodeVendorBody(pdu, nil))
	}
	if !avc.KnownPduID(pre.PduID) {
		return cmd.Respond(avc.ResponseNotImplemented, avc.EncodeVendorBody(pre.PduID, nil))
	}

	switch cmd.Type {
	case avc.CommandNotify:
		return d.handleNotify(cmd, pre)
	case avc.CommandStatus:
		return d.handleStatus(cmd, pre, params)
	default:
		return cmd.Respond(avc.ResponseNotImplemented, avc.EncodeVendorBody(pre.PduID, nil))
	}
}

// handleNotify answers Notify-type commands. Only RegisterNotification is
// a legal Notify PDU, and the target role supports no events yet, so every
// registration is rejected with INVALID_PARAMETER.
func (d *dispatcher) handleNotify(cmd *avctp.Command, pre avc.Preamble) error {
	return cmd.Respond(avc.ResponseRejected,
		avc.EncodeVendorBody(pre.PduID, avc.RejectParams(avc.StatusInvalidParameter)))
}

func (d *dispatcher) handleStatus(cmd *avctp.Command, pre avc.Preamble, params []byte) error {
	switch pre.PduID {
	case avc.PduGetCapabilities:
		return d.handleGetCapabilities(cmd, params)
	case avc.PduGetElementAttributes:
		return cmd.Respond(avc.ResponseImplementedStable,
			avc.EncodeVendorBody(pre.PduID, avc.PlaceholderElementAttributesParams()))
	default:
		return cmd.Respond(avc.ResponseNotImplemented, avc.EncodeVendorBody(pre.PduID, nil))
	}
}

func (d *dispatcher) handleGetCapabilities(cmd *avctp.Command, params []byte) error {
	if len(params) < 1 {
		return d.reject(cmd, avc.PduGetCapabilities,
			domain.NewPacketError(domain.PacketInvalidMessage, "capability id missing"))
	}
	switch avc.CapabilityID(params[0]) {
	case avc.CapabilityCompanyID:
		return cmd.Respond(avc.ResponseImplementedStable,
			avc.EncodeVendorBody(avc.PduGetCapabilities, avc.CompanyIDCapabilityParams()))
	case avc.CapabilityEventsSupported:
		return cmd.Respond(avc.ResponseImplementedStable,
			avc.EncodeVendorBody(avc.PduGetCapabilities, avc.EventsCapabilityParams()))
	default:
		return d.reject(cmd, avc.PduGetCapabilities,
			domain.NewPacketError(domain.PacketOutOfRange, "capability id 0x%02x", params[0]))
	}
}

// reject maps a decode failure onto its fixed status code and sends the
// Rejected response.
func (d *dispatcher) reject(cmd *avctp.Command, pdu avc.PduID, perr *domain.PacketError) error {
	status := avc.StatusForPacketError(perr)
	log.Printf("[session] peer %s: rejecting %s: %v (%s)", d.peerID, pdu, perr, status)
	if err := cmd.Respond(avc.ResponseRejected,
		avc.EncodeVendorBody(pdu, avc.RejectParams(status))); err != nil {
		return fmt.Errorf("send rejection: %w", err)
	}
	return nil
}
