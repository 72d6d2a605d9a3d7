package avctp

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avremote-network/avremote/internal/avc"
)

// remoteEnd drives the far side of a net.Pipe as a raw frame peer.
type remoteEnd struct {
	t    *testing.T
	conn net.Conn
}

func newPair(t *testing.T) (*Connection, *remoteEnd) {
	t.Helper()
	local, remote := net.Pipe()
	c := NewConnection(local)
	t.Cleanup(func() { c.Close(); remote.Close() })
	return c, &remoteEnd{t: t, conn: remote}
}

func (r *remoteEnd) readFrame() []byte {
	r.t.Helper()
	var lenBuf [2]byte
	_, err := io.ReadFull(r.conn, lenBuf[:])
	require.NoError(r.t, err)
	frame := make([]byte, binary.BigEndian.Uint16(lenBuf[:]))
	_, err = io.ReadFull(r.conn, frame)
	require.NoError(r.t, err)
	return frame
}

func (r *remoteEnd) writeFrame(frame []byte) {
	r.t.Helper()
	buf := make([]byte, 2+len(frame))
	binary.BigEndian.PutUint16(buf, uint16(len(frame)))
	copy(buf[2:], frame)
	_, err := r.conn.Write(buf)
	require.NoError(r.t, err)
}

// respondVendor answers the command in frame with one vendor response.
func (r *remoteEnd) respondVendor(frame []byte, code avc.ResponseCode, body []byte) {
	r.t.Helper()
	header := frame[0] | crResponseBit
	resp := []byte{header, byte(ProfileID >> 8), byte(ProfileID & 0xff),
		byte(code), subunitPanel, byte(avc.OpcodeVendorDependent)}
	resp = append(resp, avc.BtSigCompanyID[:]...)
	resp = append(resp, body...)
	r.writeFrame(resp)
}

func TestSendVendorCommand_InterimThenStable(t *testing.T) {
	c, remote := newPair(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		frame := remote.readFrame()
		// command bit clear, vendor opcode, company id present
		assert.Equal(t, byte(0), frame[0]&crResponseBit)
		assert.Equal(t, byte(avc.OpcodeVendorDependent), frame[5])
		remote.respondVendor(frame, avc.ResponseInterim, nil)
		remote.respondVendor(frame, avc.ResponseImplementedStable, []byte{0xaa})
	}()

	body := avc.EncodeVendorBody(avc.PduGetCapabilities, []byte{0x03})
	stream, err := c.SendVendorCommand(context.Background(), avc.CommandStatus, body)
	require.NoError(t, err)

	first := <-stream
	assert.Equal(t, avc.ResponseInterim, first.Code)

	second := <-stream
	assert.Equal(t, avc.ResponseImplementedStable, second.Code)
	assert.Equal(t, []byte{0xaa}, second.Body)

	// final response closes the stream
	_, open := <-stream
	assert.False(t, open)
	<-done
}

func TestSendPassthroughCommand(t *testing.T) {
	c, remote := newPair(t)

	go func() {
		frame := remote.readFrame()
		assert.Equal(t, byte(avc.OpcodePassthrough), frame[5])
		header := frame[0] | crResponseBit
		resp := []byte{header, byte(ProfileID >> 8), byte(ProfileID & 0xff),
			byte(avc.ResponseAccepted), subunitPanel, byte(avc.OpcodePassthrough)}
		resp = append(resp, frame[6:]...)
		remote.writeFrame(resp)
	}()

	code, err := c.SendPassthroughCommand(context.Background(),
		avc.EncodePassthroughBody(avc.KeyPlay, true))
	require.NoError(t, err)
	assert.Equal(t, avc.ResponseAccepted, code)
}

func TestSendPassthroughCommand_ContextCancel(t *testing.T) {
	c, remote := newPair(t)

	go remote.readFrame() // swallow the command, never respond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.SendPassthroughCommand(ctx, avc.EncodePassthroughBody(avc.KeyPlay, true))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIncomingCommand_RespondEchoesLabel(t *testing.T) {
	c, remote := newPair(t)

	const label = 0x07
	cmdFrame := []byte{label << 4, byte(ProfileID >> 8), byte(ProfileID & 0xff),
		byte(avc.CommandControl), subunitPanel, byte(avc.OpcodePassthrough)}
	cmdFrame = append(cmdFrame, avc.EncodePassthroughBody(avc.KeyPause, true)...)

	respFrames := make(chan []byte, 1)
	go func() {
		remote.writeFrame(cmdFrame)
		respFrames <- remote.readFrame()
	}()

	cmd := <-c.IncomingCommands()
	require.NoError(t, cmd.Err)
	assert.Equal(t, avc.CommandControl, cmd.Type)
	assert.Equal(t, avc.OpcodePassthrough, cmd.Opcode)

	require.NoError(t, cmd.Respond(avc.ResponseAccepted, cmd.Body))

	resp := <-respFrames
	assert.Equal(t, byte(label<<4|crResponseBit), resp[0])
	assert.Equal(t, byte(avc.ResponseAccepted), resp[3])
}

func TestIncomingCommand_BadProfileIDSurfacesError(t *testing.T) {
	c, remote := newPair(t)

	go remote.writeFrame([]byte{0x00, 0x12, 0x34, 0x00, subunitPanel, 0x00})

	cmd := <-c.IncomingCommands()
	assert.Error(t, cmd.Err)
}

func TestSendVendorCommand_CanceledContext(t *testing.T) {
	c, _ := newPair(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.SendVendorCommand(ctx, avc.CommandStatus, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

// idleChannel accepts writes and blocks reads until closed.
type idleChannel struct {
	done chan struct{}
	once sync.Once
}

func newIdleChannel() *idleChannel { return &idleChannel{done: make(chan struct{})} }

func (c *idleChannel) Read([]byte) (int, error) {
	<-c.done
	return 0, io.EOF
}

func (c *idleChannel) Write(p []byte) (int, error) { return len(p), nil }

func (c *idleChannel) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func TestRouteResponse_RacesCloseWithoutPanic(t *testing.T) {
	for i := 0; i < 1000; i++ {
		c := NewConnection(newIdleChannel())
		stream, err := c.SendVendorCommand(context.Background(), avc.CommandStatus, nil)
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.routeResponse(0, Response{Code: avc.ResponseInterim})
		}()
		go func() {
			defer wg.Done()
			c.Close()
		}()
		wg.Wait()
		for range stream {
		}
	}
}

func TestClose_EndsStreams(t *testing.T) {
	local, remote := net.Pipe()
	c := NewConnection(local)
	defer remote.Close()

	require.NoError(t, c.Close())

	_, open := <-c.IncomingCommands()
	assert.False(t, open)

	_, err := c.SendVendorCommand(context.Background(), avc.CommandStatus, nil)
	assert.Error(t, err)
}
