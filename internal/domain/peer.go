// Package domain holds the pure value types of the AVRCP session manager:
// peer identity, discovered role descriptors, and controller events.
package domain

import "time"

// PeerID identifies a remote device. Stable for the process lifetime.
type PeerID string

// ─── Role Descriptors ───────────────────────────────────────────────────────

// ServiceRole tells which side of the remote-control protocol a discovered
// service record advertises.
type ServiceRole int

const (
	RoleTarget     ServiceRole = iota // peer accepts control commands
	RoleController                    // peer issues control commands
)

// String returns a human-readable role.
func (r ServiceRole) String() string {
	switch r {
	case RoleTarget:
		return "TARGET"
	case RoleController:
		return "CONTROLLER"
	default:
		return "UNKNOWN"
	}
}

// ServiceRecord is a discovered AVRCP service descriptor for one role.
type ServiceRecord struct {
	Role           ServiceRole
	ProfileVersion uint16
	Features       uint16
	DiscoveredAt   time.Time
}

// ─── Connection Status ──────────────────────────────────────────────────────

// ConnectionStatus is the snapshot form of a peer's connection state.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "DISCONNECTED"
	StatusConnecting   ConnectionStatus = "CONNECTING"
	StatusConnected    ConnectionStatus = "CONNECTED"
)

// PeerSnapshot is the read-only view of a peer exposed by the API.
type PeerSnapshot struct {
	ID                   PeerID           `json:"id"`
	Status               ConnectionStatus `json:"status"`
	TargetDescriptor     bool             `json:"target_descriptor"`
	ControllerDescriptor bool             `json:"controller_descriptor"`
	DispatcherInstalled  bool             `json:"dispatcher_installed"`
	Listeners            int              `json:"listeners"`
}

// ─── Controller Events ──────────────────────────────────────────────────────

// EventKind tags a ControllerEvent variant.
type EventKind int

const (
	PlaybackStatusChanged EventKind = iota
	TrackIDChanged
	PlaybackPosChanged
	VolumeChanged
)

// String returns a human-readable event kind.
func (k EventKind) String() string {
	switch k {
	case PlaybackStatusChanged:
		return "playback_status_changed"
	case TrackIDChanged:
		return "track_id_changed"
	case PlaybackPosChanged:
		return "playback_pos_changed"
	case VolumeChanged:
		return "volume_changed"
	default:
		return "unknown"
	}
}

// PlaybackStatus mirrors the AVRCP play status values.
type PlaybackStatus byte

const (
	PlaybackStopped       PlaybackStatus = 0x00
	PlaybackPlaying       PlaybackStatus = 0x01
	PlaybackPaused        PlaybackStatus = 0x02
	PlaybackFwdSeek       PlaybackStatus = 0x03
	PlaybackRevSeek       PlaybackStatus = 0x04
	PlaybackStatusUnknown PlaybackStatus = 0xff
)

// String returns a human-readable playback status.
func (s PlaybackStatus) String() string {
	switch s {
	case PlaybackStopped:
		return "STOPPED"
	case PlaybackPlaying:
		return "PLAYING"
	case PlaybackPaused:
		return "PAUSED"
	case PlaybackFwdSeek:
		return "FWD_SEEK"
	case PlaybackRevSeek:
		return "REV_SEEK"
	default:
		return "UNKNOWN"
	}
}

// ControllerEvent is a state-change notification broadcast to every live
// listener of a peer. Exactly one payload field is meaningful per kind.
type ControllerEvent struct {
	Kind     EventKind      `json:"kind"`
	Playback PlaybackStatus `json:"playback,omitempty"`
	TrackID  uint64         `json:"track_id,omitempty"`
	PosMs    uint32         `json:"pos_ms,omitempty"`
	Volume   byte           `json:"volume,omitempty"`
}

// ─── Media Attributes ───────────────────────────────────────────────────────

// MediaAttributes holds the element attributes of the currently playing
// track. Missing fields stay empty strings.
type MediaAttributes struct {
	Title         string `json:"title"`
	ArtistName    string `json:"artist_name"`
	AlbumName     string `json:"album_name"`
	TrackNumber   string `json:"track_number"`
	TotalTracks   string `json:"total_number_of_tracks"`
	Genre         string `json:"genre"`
	PlayingTimeMs string `json:"playing_time_ms"`
}
