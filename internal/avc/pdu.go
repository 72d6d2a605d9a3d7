package avc

import (
	"encoding/binary"

	"github.com/avremote-network/avremote/internal/domain"
)

// ─── GetCapabilities ────────────────────────────────────────────────────────

// EncodeGetCapabilities builds the request params for one capability list.
func EncodeGetCapabilities(cap CapabilityID) []byte {
	return []byte{byte(cap)}
}

// DecodeSupportedEvents parses a GetCapabilities(EventsSupported) reply into
// the event ids the peer supports. An unrecognized event id fails the whole
// decode.
func DecodeSupportedEvents(params []byte) ([]EventID, error) {
	if len(params) < 2 {
		return nil, domain.NewPacketError(domain.PacketInvalidMessage,
			"capabilities reply %d bytes", len(params))
	}
	if CapabilityID(params[0]) != CapabilityEventsSupported {
		return nil, domain.NewPacketError(domain.PacketInvalidMessage,
			"capability id 0x%02x, want events", params[0])
	}
	count := int(params[1])
	if len(params) < 2+count {
		return nil, domain.NewPacketError(domain.PacketInvalidMessage,
			"capability count %d exceeds %d payload bytes", count, len(params)-2)
	}
	events := make([]EventID, 0, count)
	for _, b := range params[2 : 2+count] {
		id := EventID(b)
		if !KnownEventID(id) {
			return nil, domain.NewPacketError(domain.PacketOutOfRange,
				"event id 0x%02x", b)
		}
		events = append(events, id)
	}
	return events, nil
}

// CompanyIDCapabilityParams is the fixed capability payload for
// GetCapabilities(CompanyID) served in the target role.
func CompanyIDCapabilityParams() []byte {
	return []byte{byte(CapabilityCompanyID), 0x01,
		BtSigCompanyID[0], BtSigCompanyID[1], BtSigCompanyID[2]}
}

// EventsCapabilityParams is the capability payload for
// GetCapabilities(EventsSupported) served in the target role. No events are
// supported as a target yet, so the list is empty.
func EventsCapabilityParams() []byte {
	return []byte{byte(CapabilityEventsSupported), 0x00}
}

// ─── GetElementAttributes ───────────────────────────────────────────────────

// EncodeGetElementAttributes builds a request for the listed attributes.
// An empty list requests all attributes.
func EncodeGetElementAttributes(ids ...MediaAttributeID) []byte {
	params := make([]byte, 8+1+4*len(ids))
	// identifier: 8 zero bytes addresses the currently playing element
	params[8] = byte(len(ids))
	for i, id := range ids {
		binary.BigEndian.PutUint32(params[9+4*i:], uint32(id))
	}
	return params
}

// DecodeElementAttributes parses a GetElementAttributes reply. Attributes
// absent from the reply stay empty strings.
func DecodeElementAttributes(params []byte) (domain.MediaAttributes, error) {
	var attrs domain.MediaAttributes
	if len(params) < 1 {
		return attrs, domain.NewPacketError(domain.PacketInvalidMessage,
			"empty element attributes reply")
	}
	count := int(params[0])
	rest := params[1:]
	for i := 0; i < count; i++ {
		if len(rest) < 8 {
			return attrs, domain.NewPacketError(domain.PacketInvalidMessage,
				"attribute entry %d truncated at %d bytes", i, len(rest))
		}
		id := MediaAttributeID(binary.BigEndian.Uint32(rest[0:4]))
		valLen := int(binary.BigEndian.Uint16(rest[6:8]))
		rest = rest[8:]
		if len(rest) < valLen {
			return attrs, domain.NewPacketError(domain.PacketInvalidMessage,
				"attribute 0x%x value truncated: want %d, have %d", id, valLen, len(rest))
		}
		value := string(rest[:valLen])
		rest = rest[valLen:]

		switch id {
		case AttributeTitle:
			attrs.Title = value
		case AttributeArtistName:
			attrs.ArtistName = value
		case AttributeAlbumName:
			attrs.AlbumName = value
		case AttributeTrackNumber:
			attrs.TrackNumber = value
		case AttributeTotalTracks:
			attrs.TotalTracks = value
		case AttributeGenre:
			attrs.Genre = value
		case AttributePlayingTimeMs:
			attrs.PlayingTimeMs = value
		default:
			// unknown attributes are skipped, not fatal
		}
	}
	return attrs, nil
}

// ElementAttributeEntry renders one attribute entry of a reply payload.
func ElementAttributeEntry(id MediaAttributeID, value string) []byte {
	entry := make([]byte, 8+len(value))
	binary.BigEndian.PutUint32(entry[0:4], uint32(id))
	binary.BigEndian.PutUint16(entry[4:6], CharsetUTF8)
	binary.BigEndian.PutUint16(entry[6:8], uint16(len(value)))
	copy(entry[8:], value)
	return entry
}

// PlaceholderElementAttributesParams is the fixed single-title reply served
// in the target role.
func PlaceholderElementAttributesParams() []byte {
	entry := ElementAttributeEntry(AttributeTitle, "Streaming Audio")
	return append([]byte{0x01}, entry...)
}

// ─── SetAbsoluteVolume ──────────────────────────────────────────────────────

// MaxVolume is the top of the 7-bit absolute volume scale.
const MaxVolume = 0x7f

// EncodeSetAbsoluteVolume builds the request params. Volume saturates at
// the 7-bit maximum.
func EncodeSetAbsoluteVolume(volume byte) []byte {
	if volume > MaxVolume {
		volume = MaxVolume
	}
	return []byte{volume}
}

// DecodeSetAbsoluteVolumeResponse parses the confirmed volume.
func DecodeSetAbsoluteVolumeResponse(params []byte) (byte, error) {
	if len(params) < 1 {
		return 0, domain.NewPacketError(domain.PacketInvalidMessage,
			"empty SetAbsoluteVolume reply")
	}
	return params[0] & MaxVolume, nil
}

// ─── RegisterNotification ───────────────────────────────────────────────────

// EncodeRegisterNotification builds the request params for one event type.
// The playback interval is meaningful only for EventPlaybackPosChanged and
// is carried as seconds.
func EncodeRegisterNotification(event EventID, intervalSeconds uint32) []byte {
	params := make([]byte, 5)
	params[0] = byte(event)
	if event == EventPlaybackPosChanged {
		binary.BigEndian.PutUint32(params[1:5], intervalSeconds)
	}
	return params
}

// DecodeRegisterNotificationEvent validates a notification payload and
// splits off the event id it carries.
func DecodeRegisterNotificationEvent(params []byte) (EventID, []byte, error) {
	if len(params) < 1 {
		return 0, nil, domain.NewPacketError(domain.PacketInvalidMessage,
			"empty notification payload")
	}
	return EventID(params[0]), params[1:], nil
}

// DecodePlaybackStatusPayload parses an EventPlaybackStatusChanged payload.
func DecodePlaybackStatusPayload(data []byte) (domain.PlaybackStatus, error) {
	if len(data) < 1 {
		return 0, domain.NewPacketError(domain.PacketInvalidMessage,
			"playback status payload empty")
	}
	s := domain.PlaybackStatus(data[0])
	switch s {
	case domain.PlaybackStopped, domain.PlaybackPlaying, domain.PlaybackPaused,
		domain.PlaybackFwdSeek, domain.PlaybackRevSeek, domain.PlaybackStatusUnknown:
		return s, nil
	}
	return 0, domain.NewPacketError(domain.PacketOutOfRange,
		"playback status 0x%02x", data[0])
}

// DecodeTrackIDPayload parses an EventTrackChanged payload.
func DecodeTrackIDPayload(data []byte) (uint64, error) {
	if len(data) < 8 {
		return 0, domain.NewPacketError(domain.PacketInvalidMessage,
			"track id payload %d bytes, need 8", len(data))
	}
	return binary.BigEndian.Uint64(data[:8]), nil
}

// DecodePlaybackPosPayload parses an EventPlaybackPosChanged payload in ms.
func DecodePlaybackPosPayload(data []byte) (uint32, error) {
	if len(data) < 4 {
		return 0, domain.NewPacketError(domain.PacketInvalidMessage,
			"playback position payload %d bytes, need 4", len(data))
	}
	return binary.BigEndian.Uint32(data[:4]), nil
}

// DecodeVolumePayload parses an EventVolumeChanged payload.
func DecodeVolumePayload(data []byte) (byte, error) {
	if len(data) < 1 {
		return 0, domain.NewPacketError(domain.PacketInvalidMessage,
			"volume payload empty")
	}
	return data[0] & MaxVolume, nil
}

// ─── Rejections & Continuations ─────────────────────────────────────────────

// DecodeRejectedStatus parses the status code of a Rejected vendor response
// body (preamble plus one status byte).
func DecodeRejectedStatus(body []byte) (StatusCode, error) {
	_, params, err := DecodePreamble(body)
	if err != nil {
		return 0, err
	}
	if len(params) < 1 {
		return 0, domain.NewPacketError(domain.PacketInvalidMessage,
			"rejected response carries no status")
	}
	return StatusCode(params[0]), nil
}

// RejectParams is the single status byte carried by a Rejected response.
func RejectParams(status StatusCode) []byte {
	return []byte{byte(status)}
}

// EncodeRequestContinuingResponse builds the Control-type follow-up that
// asks for the next continuation packet of pdu.
func EncodeRequestContinuingResponse(pdu PduID) []byte {
	return EncodeVendorBody(PduRequestContinuingResponse, []byte{byte(pdu)})
}

// ─── Passthrough ────────────────────────────────────────────────────────────

const keyReleasedBit = 0x80

// EncodePassthroughBody builds the two-byte panel operation body.
func EncodePassthroughBody(key KeyCode, pressed bool) []byte {
	op := byte(key)
	if !pressed {
		op |= keyReleasedBit
	}
	return []byte{op, 0x00}
}

// DecodePassthroughBody splits a panel operation body into key and press
// state.
func DecodePassthroughBody(body []byte) (KeyCode, bool, error) {
	if len(body) < 1 {
		return 0, false, domain.NewPacketError(domain.PacketInvalidMessage,
			"empty passthrough body")
	}
	return KeyCode(body[0] &^ keyReleasedBit), body[0]&keyReleasedBit == 0, nil
}
