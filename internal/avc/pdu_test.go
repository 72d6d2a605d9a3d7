package avc

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/avremote-network/avremote/internal/domain"
)

// ─── Preamble ───────────────────────────────────────────────────────────────

func TestPreamble_EncodeDecode(t *testing.T) {
	body := EncodeVendorBody(PduGetCapabilities, []byte{0x03})
	p, params, err := DecodePreamble(body)
	if err != nil {
		t.Fatalf("DecodePreamble() error: %v", err)
	}
	if p.PduID != PduGetCapabilities {
		t.Errorf("PduID = %v, want GetCapabilities", p.PduID)
	}
	if p.PacketType != PacketSingle {
		t.Errorf("PacketType = %v, want SINGLE", p.PacketType)
	}
	if !bytes.Equal(params, []byte{0x03}) {
		t.Errorf("params = %x, want 03", params)
	}
}

func TestDecodePreamble_Truncated(t *testing.T) {
	if _, _, err := DecodePreamble([]byte{0x10, 0x00}); err == nil {
		t.Fatal("DecodePreamble(short) should fail")
	}
}

func TestDecodePreamble_LengthOverrun(t *testing.T) {
	// declared 4 parameter bytes, only 1 present
	body := []byte{byte(PduGetCapabilities), 0x00, 0x00, 0x04, 0xaa}
	_, _, err := DecodePreamble(body)
	pe, ok := domain.AsPacketError(err)
	if !ok {
		t.Fatalf("error = %v, want PacketError", err)
	}
	if pe.Reason != domain.PacketInvalidHeader {
		t.Errorf("reason = %v, want invalid header", pe.Reason)
	}
}

func TestDecodePreamble_PacketTypeBits(t *testing.T) {
	tests := []struct {
		raw  byte
		want PacketType
	}{
		{0x00, PacketSingle},
		{0x01, PacketStart},
		{0x02, PacketContinue},
		{0x03, PacketStop},
		{0xfd, PacketStart}, // only the low two bits count
	}
	for _, tt := range tests {
		body := []byte{byte(PduGetCapabilities), tt.raw, 0x00, 0x00}
		p, _, err := DecodePreamble(body)
		if err != nil {
			t.Fatalf("DecodePreamble(%#x) error: %v", tt.raw, err)
		}
		if p.PacketType != tt.want {
			t.Errorf("PacketType(%#x) = %v, want %v", tt.raw, p.PacketType, tt.want)
		}
	}
}

// ─── Status Mapping ─────────────────────────────────────────────────────────

func TestStatusForPacketError_Total(t *testing.T) {
	tests := []struct {
		reason domain.PacketReason
		want   StatusCode
	}{
		{domain.PacketOutOfRange, StatusInvalidParameter},
		{domain.PacketInvalidHeader, StatusParameterContentError},
		{domain.PacketInvalidMessage, StatusParameterContentError},
		{domain.PacketUnsupportedMessage, StatusInternalError},
		{domain.PacketReason(99), StatusInternalError},
	}
	for _, tt := range tests {
		got := StatusForPacketError(&domain.PacketError{Reason: tt.reason})
		if got != tt.want {
			t.Errorf("StatusForPacketError(%v) = %v, want %v", tt.reason, got, tt.want)
		}
	}
}

// ─── Capabilities ───────────────────────────────────────────────────────────

func TestDecodeSupportedEvents(t *testing.T) {
	params := []byte{byte(CapabilityEventsSupported), 2,
		byte(EventPlaybackStatusChanged), byte(EventTrackChanged)}
	events, err := DecodeSupportedEvents(params)
	if err != nil {
		t.Fatalf("DecodeSupportedEvents() error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0] != EventPlaybackStatusChanged || events[1] != EventTrackChanged {
		t.Errorf("events = %v", events)
	}
}

func TestDecodeSupportedEvents_UnknownIDFailsWholeCall(t *testing.T) {
	params := []byte{byte(CapabilityEventsSupported), 2,
		byte(EventPlaybackStatusChanged), 0x7f}
	if _, err := DecodeSupportedEvents(params); err == nil {
		t.Fatal("unknown event id should fail the whole decode")
	}
}

func TestDecodeSupportedEvents_WrongCapability(t *testing.T) {
	params := []byte{byte(CapabilityCompanyID), 1, 0x00}
	if _, err := DecodeSupportedEvents(params); err == nil {
		t.Fatal("company-id reply should not decode as events")
	}
}

func TestCompanyIDCapabilityParams(t *testing.T) {
	want := []byte{0x02, 0x01, 0x00, 0x19, 0x58}
	if got := CompanyIDCapabilityParams(); !bytes.Equal(got, want) {
		t.Errorf("CompanyIDCapabilityParams() = %x, want %x", got, want)
	}
}

// ─── Element Attributes ─────────────────────────────────────────────────────

func TestElementAttributes_RoundTrip(t *testing.T) {
	params := []byte{0x02}
	params = append(params, ElementAttributeEntry(AttributeTitle, "Song")...)
	params = append(params, ElementAttributeEntry(AttributeArtistName, "Band")...)

	attrs, err := DecodeElementAttributes(params)
	if err != nil {
		t.Fatalf("DecodeElementAttributes() error: %v", err)
	}
	if attrs.Title != "Song" {
		t.Errorf("Title = %q, want %q", attrs.Title, "Song")
	}
	if attrs.ArtistName != "Band" {
		t.Errorf("ArtistName = %q, want %q", attrs.ArtistName, "Band")
	}
	if attrs.AlbumName != "" {
		t.Errorf("AlbumName = %q, want empty (missing field)", attrs.AlbumName)
	}
}

func TestDecodeElementAttributes_Truncated(t *testing.T) {
	entry := ElementAttributeEntry(AttributeTitle, "Song")
	params := append([]byte{0x01}, entry[:len(entry)-2]...)
	if _, err := DecodeElementAttributes(params); err == nil {
		t.Fatal("truncated attribute value should fail")
	}
}

func TestEncodeGetElementAttributes_All(t *testing.T) {
	params := EncodeGetElementAttributes()
	if len(params) != 9 {
		t.Fatalf("all-attributes request = %d bytes, want 9", len(params))
	}
	if params[8] != 0 {
		t.Errorf("attribute count = %d, want 0 (all)", params[8])
	}
}

// ─── RegisterNotification ───────────────────────────────────────────────────

func TestEncodeRegisterNotification_IntervalOnlyForPosition(t *testing.T) {
	pos := EncodeRegisterNotification(EventPlaybackPosChanged, 5)
	if got := binary.BigEndian.Uint32(pos[1:5]); got != 5 {
		t.Errorf("position interval = %d, want 5", got)
	}

	status := EncodeRegisterNotification(EventPlaybackStatusChanged, 5)
	if got := binary.BigEndian.Uint32(status[1:5]); got != 0 {
		t.Errorf("non-position interval = %d, want 0", got)
	}
}

func TestNotificationPayloadDecoders(t *testing.T) {
	if s, err := DecodePlaybackStatusPayload([]byte{0x01}); err != nil || s != domain.PlaybackPlaying {
		t.Errorf("playback status = %v, %v", s, err)
	}
	if _, err := DecodePlaybackStatusPayload([]byte{0x42}); err == nil {
		t.Error("out-of-range playback status should fail")
	}
	if id, err := DecodeTrackIDPayload([]byte{0, 0, 0, 0, 0, 0, 0, 9}); err != nil || id != 9 {
		t.Errorf("track id = %d, %v", id, err)
	}
	if _, err := DecodeTrackIDPayload([]byte{1, 2, 3}); err == nil {
		t.Error("short track id should fail")
	}
	if pos, err := DecodePlaybackPosPayload([]byte{0, 0, 0x01, 0x00}); err != nil || pos != 256 {
		t.Errorf("pos = %d, %v", pos, err)
	}
	if v, err := DecodeVolumePayload([]byte{0xff}); err != nil || v != MaxVolume {
		t.Errorf("volume = %d, %v (high bit must be masked)", v, err)
	}
}

// ─── Rejections ─────────────────────────────────────────────────────────────

func TestDecodeRejectedStatus(t *testing.T) {
	body := EncodeVendorBody(PduRegisterNotification, RejectParams(StatusAddressedPlayerChanged))
	status, err := DecodeRejectedStatus(body)
	if err != nil {
		t.Fatalf("DecodeRejectedStatus() error: %v", err)
	}
	if status != StatusAddressedPlayerChanged {
		t.Errorf("status = %v, want ADDRESSED_PLAYER_CHANGED", status)
	}
}

func TestDecodeRejectedStatus_Empty(t *testing.T) {
	body := EncodeVendorBody(PduRegisterNotification, nil)
	if _, err := DecodeRejectedStatus(body); err == nil {
		t.Fatal("empty rejection should fail to decode")
	}
}

// ─── Passthrough ────────────────────────────────────────────────────────────

func TestPassthroughBody_RoundTrip(t *testing.T) {
	press := EncodePassthroughBody(KeyPlay, true)
	key, pressed, err := DecodePassthroughBody(press)
	if err != nil || key != KeyPlay || !pressed {
		t.Errorf("press decode = (%v, %v, %v)", key, pressed, err)
	}

	release := EncodePassthroughBody(KeyPlay, false)
	key, pressed, err = DecodePassthroughBody(release)
	if err != nil || key != KeyPlay || pressed {
		t.Errorf("release decode = (%v, %v, %v)", key, pressed, err)
	}
}

func TestParseKeyName(t *testing.T) {
	if key, ok := ParseKeyName("play"); !ok || key != KeyPlay {
		t.Errorf(`ParseKeyName("play") = %v, %v`, key, ok)
	}
	if _, ok := ParseKeyName("warp"); ok {
		t.Error(`ParseKeyName("warp") should not resolve`)
	}
}
