package session

import (
	"context"
	"io"
	"sync"

	"github.com/avremote-network/avremote/internal/avc"
	"github.com/avremote-network/avremote/internal/avctp"
	"github.com/avremote-network/avremote/internal/discovery"
	"github.com/avremote-network/avremote/internal/domain"
)

// ─── Fake Connection ────────────────────────────────────────────────────────

type vendorCall struct {
	ctype avc.CommandType
	body  []byte
}

type vendorReply struct {
	responses []avctp.Response
	keepOpen  bool
}

type passReply struct {
	code avc.ResponseCode
	err  error
}

// fakeConn scripts vendor and passthrough replies in call order and
// records every outbound command.
type fakeConn struct {
	mu           sync.Mutex
	vendorCalls  []vendorCall
	vendorScript []vendorReply
	passCalls    [][]byte
	passScript   []passReply
	commands     chan *avctp.Command
	closed       bool
	closeOnce    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{commands: make(chan *avctp.Command, 8)}
}

// scriptVendor queues the replies for the next vendor command. With
// keepOpen the response stream stays open after delivering them.
func (f *fakeConn) scriptVendor(keepOpen bool, responses ...avctp.Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vendorScript = append(f.vendorScript, vendorReply{responses: responses, keepOpen: keepOpen})
}

func (f *fakeConn) scriptPass(code avc.ResponseCode, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passScript = append(f.passScript, passReply{code: code, err: err})
}

func (f *fakeConn) SendVendorCommand(_ context.Context, ctype avc.CommandType, body []byte) (<-chan avctp.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, domain.ErrConnectionClosed
	}
	f.vendorCalls = append(f.vendorCalls, vendorCall{ctype: ctype, body: append([]byte(nil), body...)})

	var reply vendorReply
	if len(f.vendorScript) > 0 {
		reply = f.vendorScript[0]
		f.vendorScript = f.vendorScript[1:]
	}
	ch := make(chan avctp.Response, len(reply.responses)+1)
	for _, resp := range reply.responses {
		ch <- resp
	}
	if !reply.keepOpen {
		close(ch)
	}
	return ch, nil
}

func (f *fakeConn) SendPassthroughCommand(_ context.Context, body []byte) (avc.ResponseCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, domain.ErrConnectionClosed
	}
	f.passCalls = append(f.passCalls, append([]byte(nil), body...))

	reply := passReply{code: avc.ResponseAccepted}
	if len(f.passScript) > 0 {
		reply = f.passScript[0]
		f.passScript = f.passScript[1:]
	}
	return reply.code, reply.err
}

func (f *fakeConn) IncomingCommands() <-chan *avctp.Command { return f.commands }

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		close(f.commands)
	})
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) vendorCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.vendorCalls)
}

func (f *fakeConn) vendorCallAt(i int) vendorCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vendorCalls[i]
}

func (f *fakeConn) passCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.passCalls)
}

func (f *fakeConn) passCallAt(i int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.passCalls[i]
}

// ─── Response Builders ──────────────────────────────────────────────────────

func vendorResponse(code avc.ResponseCode, pdu avc.PduID, packet avc.PacketType, params []byte) avctp.Response {
	body := avc.Preamble{
		PduID:           pdu,
		PacketType:      packet,
		ParameterLength: uint16(len(params)),
	}.Encode(params)
	return avctp.Response{Code: code, Body: body}
}

func stableResponse(pdu avc.PduID, params []byte) avctp.Response {
	return vendorResponse(avc.ResponseImplementedStable, pdu, avc.PacketSingle, params)
}

func rejectedResponse(pdu avc.PduID, status avc.StatusCode) avctp.Response {
	return vendorResponse(avc.ResponseRejected, pdu, avc.PacketSingle, avc.RejectParams(status))
}

func interimNotification(event avc.EventID, payload []byte) avctp.Response {
	params := append([]byte{byte(event)}, payload...)
	return vendorResponse(avc.ResponseInterim, avc.PduRegisterNotification, avc.PacketSingle, params)
}

func eventsCapabilityReply(events ...avc.EventID) avctp.Response {
	params := []byte{byte(avc.CapabilityEventsSupported), byte(len(events))}
	for _, e := range events {
		params = append(params, byte(e))
	}
	return stableResponse(avc.PduGetCapabilities, params)
}

// ─── Fake Discovery ─────────────────────────────────────────────────────────

// nopChannel is a raw channel placeholder handed through ConnectToDevice;
// tests map it onto a fakeConn via the supervisor's dial hook.
type nopChannel struct{}

func (nopChannel) Read([]byte) (int, error)    { return 0, io.EOF }
func (nopChannel) Write(p []byte) (int, error) { return len(p), nil }
func (nopChannel) Close() error                { return nil }

type fakeDiscovery struct {
	events chan discovery.Event
	errs   chan error

	mu      sync.Mutex
	dials   []domain.PeerID
	dialErr error
}

func newFakeDiscovery() *fakeDiscovery {
	return &fakeDiscovery{
		events: make(chan discovery.Event, 16),
		errs:   make(chan error, 1),
	}
}

func (f *fakeDiscovery) Events() <-chan discovery.Event { return f.events }
func (f *fakeDiscovery) Errors() <-chan error           { return f.errs }

func (f *fakeDiscovery) ConnectToDevice(_ context.Context, peer domain.PeerID, _ uint16) (io.ReadWriteCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dials = append(f.dials, peer)
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	return nopChannel{}, nil
}

func (f *fakeDiscovery) Close() error { return nil }

func (f *fakeDiscovery) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.dials)
}

// ─── Command Recorder ───────────────────────────────────────────────────────

type sentResponse struct {
	code avc.ResponseCode
	body []byte
}

// responseRecorder captures what a dispatcher answers on the wire.
type responseRecorder struct {
	mu        sync.Mutex
	responses []sentResponse
	fail      error
}

func (r *responseRecorder) respond(code avc.ResponseCode, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.responses = append(r.responses, sentResponse{code: code, body: append([]byte(nil), body...)})
	return nil
}

func (r *responseRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.responses)
}

func (r *responseRecorder) at(i int) sentResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.responses[i]
}
