//go:build linux

package discovery

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	dbus "github.com/godbus/dbus/v5"

	"github.com/avremote-network/avremote/internal/domain"
)

const (
	bluezService        = "org.bluez"
	profileIface        = "org.bluez.Profile1"
	profileManagerIface = "org.bluez.ProfileManager1"
	deviceIface         = "org.bluez.Device1"
	objManagerIface     = "org.freedesktop.DBus.ObjectManager"

	// AVRCP service class UUIDs
	uuidRemoteControl    = "0000110e-0000-1000-8000-00805f9b34fb"
	uuidRemoteTarget     = "0000110c-0000-1000-8000-00805f9b34fb"
	uuidRemoteController = "0000110f-0000-1000-8000-00805f9b34fb"

	profileObjectPath = dbus.ObjectPath("/com/avremote/profile/control")

	connectWait = 30 * time.Second
)

// BlueZ implements Service against the system D-Bus Bluetooth daemon.
// A Profile1 object is exported for the remote-control UUID; BlueZ hands
// every established control channel to it as a unix fd.
type BlueZ struct {
	bus    *dbus.Conn
	events chan Event
	errs   chan error

	mu      sync.Mutex
	waiting map[domain.PeerID]chan connectedChannel
	closed  bool

	cleanup []func()
}

type connectedChannel struct {
	channel io.ReadWriteCloser
	err     error
}

// NewBlueZ connects to the system bus, registers the remote-control
// profile, and starts watching for devices that advertise AVRCP services.
func NewBlueZ() (*BlueZ, error) {
	bus, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("discovery: connect system bus: %w", err)
	}

	b := &BlueZ{
		bus:     bus,
		events:  make(chan Event, 32),
		errs:    make(chan error, 1),
		waiting: make(map[domain.PeerID]chan connectedChannel),
	}
	b.cleanup = append(b.cleanup, func() { bus.Close() })

	if err := bus.Export(&profileHandler{b: b}, profileObjectPath, profileIface); err != nil {
		b.Close()
		return nil, fmt.Errorf("discovery: export profile: %w", err)
	}

	pm := bus.Object(bluezService, dbus.ObjectPath("/org/bluez"))
	opts := map[string]dbus.Variant{
		"Name": dbus.MakeVariant("AVRemote control channel"),
		"Role": dbus.MakeVariant("client"),
	}
	if call := pm.Call(profileManagerIface+".RegisterProfile", 0, profileObjectPath, uuidRemoteControl, opts); call.Err != nil {
		b.Close()
		return nil, fmt.Errorf("discovery: RegisterProfile: %w", call.Err)
	}
	b.cleanup = append(b.cleanup, func() {
		_ = pm.Call(profileManagerIface+".UnregisterProfile", 0, profileObjectPath).Err
		_ = bus.Export(nil, profileObjectPath, profileIface)
	})

	if err := b.watchDevices(); err != nil {
		b.Close()
		return nil, err
	}

	log.Printf("[discovery] bluez profile registered at %s", profileObjectPath)
	return b, nil
}

// Events implements Service.
func (b *BlueZ) Events() <-chan Event { return b.events }

// Errors implements Service.
func (b *BlueZ) Errors() <-chan error { return b.errs }

// ConnectToDevice implements Service. BlueZ has no direct "open L2CAP
// channel to PSM" call on this interface; the profile connection carries
// the control channel, so the psm argument only documents intent.
func (b *BlueZ) ConnectToDevice(ctx context.Context, peer domain.PeerID, psm uint16) (io.ReadWriteCloser, error) {
	_ = psm

	ch := make(chan connectedChannel, 1)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, domain.ErrDiscoveryClosed
	}
	b.waiting[peer] = ch
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.waiting, peer)
		b.mu.Unlock()
	}()

	dev := b.bus.Object(bluezService, devicePath(peer))
	if call := dev.CallWithContext(ctx, deviceIface+".ConnectProfile", 0, uuidRemoteControl); call.Err != nil {
		return nil, fmt.Errorf("%w: ConnectProfile(%s): %v", domain.ErrConnectionFailure, peer, call.Err)
	}

	timer := time.NewTimer(connectWait)
	defer timer.Stop()
	select {
	case res := <-ch:
		return res.channel, res.err
	case <-timer.C:
		return nil, fmt.Errorf("%w: no channel from bluez within %s", domain.ErrConnectionFailure, connectWait)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close implements Service.
func (b *BlueZ) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	cleanup := b.cleanup
	b.cleanup = nil
	b.mu.Unlock()

	for i := len(cleanup) - 1; i >= 0; i-- {
		cleanup[i]()
	}
	return nil
}

// ─── Device Watching ────────────────────────────────────────────────────────

func (b *BlueZ) watchDevices() error {
	if err := b.bus.AddMatchSignal(
		dbus.WithMatchInterface(objManagerIface),
		dbus.WithMatchMember("InterfacesAdded"),
	); err != nil {
		return fmt.Errorf("discovery: AddMatchSignal: %w", err)
	}
	sigCh := make(chan *dbus.Signal, 16)
	b.bus.Signal(sigCh)
	b.cleanup = append(b.cleanup, func() { b.bus.RemoveSignal(sigCh) })

	go b.signalLoop(sigCh)
	go b.primeKnownDevices()
	return nil
}

// primeKnownDevices emits ServicesDiscovered for devices BlueZ already
// knows about at startup.
func (b *BlueZ) primeKnownDevices() {
	obj := b.bus.Object(bluezService, dbus.ObjectPath("/"))
	var objs map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if call := obj.Call(objManagerIface+".GetManagedObjects", 0); call.Err != nil {
		b.fatal(fmt.Errorf("discovery: GetManagedObjects: %w", call.Err))
		return
	} else if err := call.Store(&objs); err != nil {
		b.fatal(fmt.Errorf("discovery: decode GetManagedObjects: %w", err))
		return
	}
	for path, ifaces := range objs {
		b.reportDevice(path, ifaces)
	}
}

func (b *BlueZ) signalLoop(sigCh chan *dbus.Signal) {
	for sig := range sigCh {
		if sig == nil || len(sig.Body) < 2 {
			continue
		}
		path, _ := sig.Body[0].(dbus.ObjectPath)
		ifaces, _ := sig.Body[1].(map[string]map[string]dbus.Variant)
		if ifaces != nil {
			b.reportDevice(path, ifaces)
		}
	}
}

func (b *BlueZ) reportDevice(path dbus.ObjectPath, ifaces map[string]map[string]dbus.Variant) {
	props, ok := ifaces[deviceIface]
	if !ok {
		return
	}
	uuidsVar, ok := props["UUIDs"]
	if !ok {
		return
	}
	uuids, _ := uuidsVar.Value().([]string)

	now := time.Now()
	var records []domain.ServiceRecord
	for _, u := range uuids {
		switch strings.ToLower(u) {
		case uuidRemoteTarget:
			records = append(records, domain.ServiceRecord{Role: domain.RoleTarget, DiscoveredAt: now})
		case uuidRemoteControl, uuidRemoteController:
			records = append(records, domain.ServiceRecord{Role: domain.RoleController, DiscoveredAt: now})
		}
	}
	if len(records) == 0 {
		return
	}
	b.emit(Event{
		Kind:     EventServicesDiscovered,
		PeerID:   peerFromPath(path),
		Services: records,
	})
}

func (b *BlueZ) emit(ev Event) {
	select {
	case b.events <- ev:
	default:
		log.Printf("[discovery] event backlog full, dropping %v for %s", ev.Kind, ev.PeerID)
	}
}

func (b *BlueZ) fatal(err error) {
	select {
	case b.errs <- err:
	default:
	}
}

// ─── Profile1 Handler ───────────────────────────────────────────────────────

// profileHandler implements org.bluez.Profile1; BlueZ calls NewConnection
// with the control channel fd for both inbound and outbound connections.
type profileHandler struct {
	b *BlueZ
}

// Release is called by BlueZ when the profile is unregistered.
func (p *profileHandler) Release() *dbus.Error { return nil }

// RequestDisconnection is ignored; the session layer notices the closed fd.
func (p *profileHandler) RequestDisconnection(_ dbus.ObjectPath) *dbus.Error { return nil }

// NewConnection delivers an established control channel. If a dial is
// waiting on this peer the channel completes it; otherwise it is an
// inbound connection.
func (p *profileHandler) NewConnection(dev dbus.ObjectPath, fd dbus.UnixFD, _ map[string]dbus.Variant) *dbus.Error {
	peer := peerFromPath(dev)
	channel := os.NewFile(uintptr(fd), "avctp")
	if channel == nil {
		return &dbus.Error{Name: "org.bluez.Error.Rejected", Body: []interface{}{"bad fd"}}
	}

	p.b.mu.Lock()
	waiter, dialing := p.b.waiting[peer]
	if dialing {
		delete(p.b.waiting, peer)
	}
	p.b.mu.Unlock()

	if dialing {
		waiter <- connectedChannel{channel: channel}
		return nil
	}

	p.b.emit(Event{
		Kind:    EventIncomingConnection,
		PeerID:  peer,
		Channel: channel,
	})
	return nil
}

// ─── Path Helpers ───────────────────────────────────────────────────────────

// peerFromPath converts .../dev_XX_XX_XX_XX_XX_XX into a MAC-style peer id.
func peerFromPath(p dbus.ObjectPath) domain.PeerID {
	s := string(p)
	idx := strings.LastIndex(s, "/dev_")
	if idx < 0 {
		return domain.PeerID(s)
	}
	return domain.PeerID(strings.ReplaceAll(s[idx+5:], "_", ":"))
}

// devicePath is the inverse of peerFromPath for the default adapter.
func devicePath(peer domain.PeerID) dbus.ObjectPath {
	return dbus.ObjectPath("/org/bluez/hci0/dev_" + strings.ReplaceAll(string(peer), ":", "_"))
}
