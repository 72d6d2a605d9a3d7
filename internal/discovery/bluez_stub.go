//go:build !linux

package discovery

import (
	"context"
	"io"

	"github.com/avremote-network/avremote/internal/domain"
)

// BlueZ is linux-only; other platforms get a constructor error.
type BlueZ struct{}

// NewBlueZ reports that no discovery backend exists on this platform.
func NewBlueZ() (*BlueZ, error) {
	return nil, domain.ErrDiscoveryUnsupported
}

// Events implements Service.
func (b *BlueZ) Events() <-chan Event { return nil }

// Errors implements Service.
func (b *BlueZ) Errors() <-chan error { return nil }

// ConnectToDevice implements Service.
func (b *BlueZ) ConnectToDevice(context.Context, domain.PeerID, uint16) (io.ReadWriteCloser, error) {
	return nil, domain.ErrDiscoveryUnsupported
}

// Close implements Service.
func (b *BlueZ) Close() error { return nil }
