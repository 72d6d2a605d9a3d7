// Package avc defines the AVRCP wire vocabulary: AV/C command and response
// codes, vendor-dependent PDU ids, the fixed vendor preamble, AVRCP status
// codes, notification event ids, and the encode/decode helpers for every
// PDU the session layer exchanges.
package avc

// ─── AV/C Command Types ─────────────────────────────────────────────────────

// CommandType is the AV/C ctype of an outgoing command frame.
type CommandType byte

const (
	CommandControl CommandType = 0x00
	CommandStatus  CommandType = 0x01
	CommandNotify  CommandType = 0x03
)

// String returns a human-readable command type.
func (c CommandType) String() string {
	switch c {
	case CommandControl:
		return "CONTROL"
	case CommandStatus:
		return "STATUS"
	case CommandNotify:
		return "NOTIFY"
	default:
		return "UNKNOWN"
	}
}

// ─── AV/C Response Codes ────────────────────────────────────────────────────

// ResponseCode is the AV/C response field of an incoming response frame.
type ResponseCode byte

const (
	ResponseNotImplemented    ResponseCode = 0x08
	ResponseAccepted          ResponseCode = 0x09
	ResponseRejected          ResponseCode = 0x0a
	ResponseInTransition      ResponseCode = 0x0b
	ResponseImplementedStable ResponseCode = 0x0c
	ResponseChanged           ResponseCode = 0x0d
	ResponseInterim           ResponseCode = 0x0f
)

// String returns a human-readable response code.
func (r ResponseCode) String() string {
	switch r {
	case ResponseNotImplemented:
		return "NOT_IMPLEMENTED"
	case ResponseAccepted:
		return "ACCEPTED"
	case ResponseRejected:
		return "REJECTED"
	case ResponseInTransition:
		return "IN_TRANSITION"
	case ResponseImplementedStable:
		return "IMPLEMENTED_STABLE"
	case ResponseChanged:
		return "CHANGED"
	case ResponseInterim:
		return "INTERIM"
	default:
		return "UNKNOWN"
	}
}

// ─── Opcodes ────────────────────────────────────────────────────────────────

// Opcode distinguishes the two AV/C command shapes the dispatcher handles.
type Opcode byte

const (
	OpcodeVendorDependent Opcode = 0x00
	OpcodePassthrough     Opcode = 0x7c
)

// String returns a human-readable opcode.
func (o Opcode) String() string {
	switch o {
	case OpcodeVendorDependent:
		return "VENDOR_DEPENDENT"
	case OpcodePassthrough:
		return "PASSTHROUGH"
	default:
		return "UNKNOWN"
	}
}

// ─── Vendor-Dependent PDU Ids ───────────────────────────────────────────────

// PduID identifies one AVRCP vendor-dependent PDU.
type PduID byte

const (
	PduGetCapabilities           PduID = 0x10
	PduGetElementAttributes      PduID = 0x20
	PduGetPlayStatus             PduID = 0x30
	PduRegisterNotification      PduID = 0x31
	PduRequestContinuingResponse PduID = 0x40
	PduAbortContinuingResponse   PduID = 0x41
	PduSetAbsoluteVolume         PduID = 0x50
)

// KnownPduID reports whether id names a PDU this implementation recognizes.
func KnownPduID(id PduID) bool {
	switch id {
	case PduGetCapabilities, PduGetElementAttributes, PduGetPlayStatus,
		PduRegisterNotification, PduRequestContinuingResponse,
		PduAbortContinuingResponse, PduSetAbsoluteVolume:
		return true
	}
	return false
}

// String returns a human-readable PDU name.
func (p PduID) String() string {
	switch p {
	case PduGetCapabilities:
		return "GetCapabilities"
	case PduGetElementAttributes:
		return "GetElementAttributes"
	case PduGetPlayStatus:
		return "GetPlayStatus"
	case PduRegisterNotification:
		return "RegisterNotification"
	case PduRequestContinuingResponse:
		return "RequestContinuingResponse"
	case PduAbortContinuingResponse:
		return "AbortContinuingResponse"
	case PduSetAbsoluteVolume:
		return "SetAbsoluteVolume"
	default:
		return "UNKNOWN"
	}
}

// ─── Packet Types (continuation) ────────────────────────────────────────────

// PacketType is the fragmentation marker in the vendor preamble.
type PacketType byte

const (
	PacketSingle   PacketType = 0x0
	PacketStart    PacketType = 0x1
	PacketContinue PacketType = 0x2
	PacketStop     PacketType = 0x3
)

// HasMore reports whether a reply carrying this packet type is followed by
// further continuation packets.
func (p PacketType) HasMore() bool {
	return p == PacketStart || p == PacketContinue
}

// String returns a human-readable packet type.
func (p PacketType) String() string {
	switch p {
	case PacketSingle:
		return "SINGLE"
	case PacketStart:
		return "START"
	case PacketContinue:
		return "CONTINUE"
	case PacketStop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// ─── AVRCP Status Codes ─────────────────────────────────────────────────────

// StatusCode is the one-byte status carried by Rejected responses.
type StatusCode byte

const (
	StatusInvalidCommand         StatusCode = 0x00
	StatusInvalidParameter       StatusCode = 0x01
	StatusParameterContentError  StatusCode = 0x02
	StatusInternalError          StatusCode = 0x03
	StatusSuccess                StatusCode = 0x04
	StatusUIDChanged             StatusCode = 0x05
	StatusNoAvailablePlayers     StatusCode = 0x15
	StatusAddressedPlayerChanged StatusCode = 0x16
)

// String returns a human-readable status code.
func (s StatusCode) String() string {
	switch s {
	case StatusInvalidCommand:
		return "INVALID_COMMAND"
	case StatusInvalidParameter:
		return "INVALID_PARAMETER"
	case StatusParameterContentError:
		return "PARAMETER_CONTENT_ERROR"
	case StatusInternalError:
		return "INTERNAL_ERROR"
	case StatusSuccess:
		return "SUCCESS"
	case StatusUIDChanged:
		return "UID_CHANGED"
	case StatusNoAvailablePlayers:
		return "NO_AVAILABLE_PLAYERS"
	case StatusAddressedPlayerChanged:
		return "ADDRESSED_PLAYER_CHANGED"
	default:
		return "UNKNOWN"
	}
}

// ─── Notification Event Ids ─────────────────────────────────────────────────

// EventID identifies one RegisterNotification event type.
type EventID byte

const (
	EventPlaybackStatusChanged    EventID = 0x01
	EventTrackChanged             EventID = 0x02
	EventTrackReachedEnd          EventID = 0x03
	EventTrackReachedStart        EventID = 0x04
	EventPlaybackPosChanged       EventID = 0x05
	EventBattStatusChanged        EventID = 0x06
	EventSystemStatusChanged      EventID = 0x07
	EventPlayerAppSettingChanged  EventID = 0x08
	EventNowPlayingContentChanged EventID = 0x09
	EventAvailablePlayersChanged  EventID = 0x0a
	EventAddressedPlayerChanged   EventID = 0x0b
	EventUIDsChanged              EventID = 0x0c
	EventVolumeChanged            EventID = 0x0d
)

// KnownEventID reports whether id is a defined AVRCP event.
func KnownEventID(id EventID) bool {
	return id >= EventPlaybackStatusChanged && id <= EventVolumeChanged
}

// String returns a human-readable event name.
func (e EventID) String() string {
	switch e {
	case EventPlaybackStatusChanged:
		return "PLAYBACK_STATUS_CHANGED"
	case EventTrackChanged:
		return "TRACK_CHANGED"
	case EventPlaybackPosChanged:
		return "PLAYBACK_POS_CHANGED"
	case EventVolumeChanged:
		return "VOLUME_CHANGED"
	case EventAddressedPlayerChanged:
		return "ADDRESSED_PLAYER_CHANGED"
	default:
		return "UNKNOWN"
	}
}

// ─── Capability Ids ─────────────────────────────────────────────────────────

// CapabilityID selects which capability list GetCapabilities returns.
type CapabilityID byte

const (
	CapabilityCompanyID       CapabilityID = 0x02
	CapabilityEventsSupported CapabilityID = 0x03
)

// BtSigCompanyID is the Bluetooth SIG company id carried in capability
// responses, big-endian 24 bit.
var BtSigCompanyID = [3]byte{0x00, 0x19, 0x58}

// ─── Media Attribute Ids ────────────────────────────────────────────────────

// MediaAttributeID identifies one GetElementAttributes attribute.
type MediaAttributeID uint32

const (
	AttributeTitle         MediaAttributeID = 0x01
	AttributeArtistName    MediaAttributeID = 0x02
	AttributeAlbumName     MediaAttributeID = 0x03
	AttributeTrackNumber   MediaAttributeID = 0x04
	AttributeTotalTracks   MediaAttributeID = 0x05
	AttributeGenre         MediaAttributeID = 0x06
	AttributePlayingTimeMs MediaAttributeID = 0x07
)

// CharsetUTF8 is the MIBenum value for UTF-8, used in attribute entries.
const CharsetUTF8 uint16 = 0x006a

// ─── Passthrough Key Codes ──────────────────────────────────────────────────

// KeyCode is an AV/C panel subunit operation id.
type KeyCode byte

const (
	KeySelect      KeyCode = 0x00
	KeyUp          KeyCode = 0x01
	KeyDown        KeyCode = 0x02
	KeyLeft        KeyCode = 0x03
	KeyRight       KeyCode = 0x04
	KeyRootMenu    KeyCode = 0x09
	KeyVolumeUp    KeyCode = 0x41
	KeyVolumeDown  KeyCode = 0x42
	KeyMute        KeyCode = 0x43
	KeyPlay        KeyCode = 0x44
	KeyStop        KeyCode = 0x45
	KeyPause       KeyCode = 0x46
	KeyRecord      KeyCode = 0x47
	KeyRewind      KeyCode = 0x48
	KeyFastForward KeyCode = 0x49
	KeyForward     KeyCode = 0x4b
	KeyBackward    KeyCode = 0x4c
)

// KnownKeyCode reports whether key is an operation this host recognizes.
func KnownKeyCode(key KeyCode) bool {
	switch key {
	case KeySelect, KeyUp, KeyDown, KeyLeft, KeyRight, KeyRootMenu,
		KeyVolumeUp, KeyVolumeDown, KeyMute, KeyPlay, KeyStop, KeyPause,
		KeyRecord, KeyRewind, KeyFastForward, KeyForward, KeyBackward:
		return true
	}
	return false
}

// ParseKeyName maps a CLI/API key name to its code.
func ParseKeyName(name string) (KeyCode, bool) {
	switch name {
	case "play":
		return KeyPlay, true
	case "pause":
		return KeyPause, true
	case "stop":
		return KeyStop, true
	case "next":
		return KeyForward, true
	case "prev":
		return KeyBackward, true
	case "rewind":
		return KeyRewind, true
	case "fast_forward":
		return KeyFastForward, true
	case "volume_up":
		return KeyVolumeUp, true
	case "volume_down":
		return KeyVolumeDown, true
	case "mute":
		return KeyMute, true
	}
	return 0, false
}

// ─── Channel Constants ──────────────────────────────────────────────────────

// PSMAVCTP is the L2CAP protocol/service multiplexer id of the AVCTP
// control channel.
const PSMAVCTP = 0x0017
