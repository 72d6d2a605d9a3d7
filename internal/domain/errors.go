package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Peer / controller errors
	ErrRemoteNotFound      = errors.New("remote peer has no active connection")
	ErrCommandNotSupported = errors.New("command not supported by remote peer")
	ErrCommandFailed       = errors.New("remote peer rejected the command")
	ErrUnexpectedResponse  = errors.New("remote peer sent a response invalid for this command")
	ErrInternal            = errors.New("internal error in remote exchange")
	ErrConnectionFailure   = errors.New("transport connection failure")

	// Transport errors
	ErrConnectionClosed = errors.New("connection closed")
	ErrResponseTimeout  = errors.New("no response before deadline")

	// Discovery errors
	ErrDiscoveryUnsupported = errors.New("bluetooth discovery not supported on this platform")
	ErrDiscoveryClosed      = errors.New("discovery service closed")
)

// ─── Packet Errors ──────────────────────────────────────────────────────────

// PacketReason classifies a local decode failure.
type PacketReason int

const (
	PacketOutOfRange PacketReason = iota
	PacketInvalidHeader
	PacketInvalidMessage
	PacketUnsupportedMessage
)

// String returns a human-readable reason.
func (r PacketReason) String() string {
	switch r {
	case PacketOutOfRange:
		return "out of range"
	case PacketInvalidHeader:
		return "invalid header"
	case PacketInvalidMessage:
		return "invalid message"
	case PacketUnsupportedMessage:
		return "unsupported message"
	default:
		return "unknown"
	}
}

// PacketError is a local decode failure with a fixed reason taxonomy.
// The dispatcher maps each reason to exactly one AVRCP status code.
type PacketError struct {
	Reason PacketReason
	Detail string
}

// Error implements error.
func (e *PacketError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("packet error: %s", e.Reason)
	}
	return fmt.Sprintf("packet error: %s: %s", e.Reason, e.Detail)
}

// NewPacketError builds a PacketError with a formatted detail.
func NewPacketError(reason PacketReason, format string, args ...interface{}) *PacketError {
	return &PacketError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// AsPacketError unwraps err into a *PacketError if it is one.
func AsPacketError(err error) (*PacketError, bool) {
	var pe *PacketError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
