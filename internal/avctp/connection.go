// Package avctp implements the command/response transport carrying AVRCP
// frames over an established byte channel. It owns transaction-label
// bookkeeping: every outbound command gets a label, responses are routed
// back to the sender's stream by label, and inbound commands are surfaced
// on a consume channel together with a reply hook bound to their label.
package avctp

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/avremote-network/avremote/internal/avc"
	"github.com/avremote-network/avremote/internal/domain"
)

// ProfileID is the AVCTP profile identifier of the remote-control service.
const ProfileID uint16 = 0x110e

const (
	subunitPanel = 0x48

	crResponseBit = 0x02

	// responses buffered per transaction label before the reader drops
	responseBacklog = 8
	commandBacklog  = 16

	maxTransactionLabels = 16
)

// Response is one item of a vendor response stream: a decoded response or a
// transport error. After a non-interim response the stream is closed.
type Response struct {
	Code avc.ResponseCode
	Body []byte // vendor preamble plus parameters
	Err  error
}

// Command is one item of the inbound command stream: a decoded command or a
// decode error. Err being set means the frame could not be decoded; the
// supervisor treats that as grounds to reset the connection.
type Command struct {
	Type   avc.CommandType
	Opcode avc.Opcode
	Body   []byte
	Err    error

	respond func(avc.ResponseCode, []byte) error
}

// NewCommand builds an inbound command bound to the given responder. The
// connection builds these itself from received frames; fakes use it to
// inject commands into the session layer.
func NewCommand(ctype avc.CommandType, opcode avc.Opcode, body []byte, respond func(avc.ResponseCode, []byte) error) *Command {
	return &Command{Type: ctype, Opcode: opcode, Body: body, respond: respond}
}

// Respond sends the response frame for this command, reusing its
// transaction label. An error here is a transport failure.
func (c *Command) Respond(code avc.ResponseCode, body []byte) error {
	if c.respond == nil {
		return domain.ErrConnectionClosed
	}
	return c.respond(code, body)
}

// Connection frames AVRCP commands and responses over one byte channel.
type Connection struct {
	channel io.ReadWriteCloser

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[byte]chan Response
	closed  bool

	commands  chan *Command
	closeOnce sync.Once
}

// NewConnection wraps channel and starts its read loop.
func NewConnection(channel io.ReadWriteCloser) *Connection {
	c := &Connection{
		channel:  channel,
		pending:  make(map[byte]chan Response),
		commands: make(chan *Command, commandBacklog),
	}
	go c.readLoop()
	return c
}

// IncomingCommands returns the stream of decoded inbound commands. The
// channel closes when the connection does.
func (c *Connection) IncomingCommands() <-chan *Command {
	return c.commands
}

// Close tears the connection down. All pending response streams and the
// command stream are closed.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.channel.Close()
		c.mu.Lock()
		c.closed = true
		for label, ch := range c.pending {
			close(ch)
			delete(c.pending, label)
		}
		c.mu.Unlock()
		close(c.commands)
	})
	return err
}

// ─── Outbound ───────────────────────────────────────────────────────────────

// SendVendorCommand sends one vendor-dependent command of the given type
// and returns the stream its responses arrive on. The stream stays open
// across Interim responses and closes after the first final one.
func (c *Connection) SendVendorCommand(ctx context.Context, ctype avc.CommandType, body []byte) (<-chan Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	label, ch, err := c.allocLabel()
	if err != nil {
		return nil, err
	}

	frame := make([]byte, 0, 6+len(body))
	frame = append(frame, byte(ctype), subunitPanel, byte(avc.OpcodeVendorDependent))
	frame = append(frame, avc.BtSigCompanyID[:]...)
	frame = append(frame, body...)

	if err := c.writeFrame(label, false, frame); err != nil {
		c.releaseLabel(label, false)
		return nil, fmt.Errorf("send vendor command: %w", err)
	}
	return ch, nil
}

// SendPassthroughCommand sends one panel passthrough command and waits for
// its single response.
func (c *Connection) SendPassthroughCommand(ctx context.Context, body []byte) (avc.ResponseCode, error) {
	label, ch, err := c.allocLabel()
	if err != nil {
		return 0, err
	}

	frame := make([]byte, 0, 3+len(body))
	frame = append(frame, byte(avc.CommandControl), subunitPanel, byte(avc.OpcodePassthrough))
	frame = append(frame, body...)

	if err := c.writeFrame(label, false, frame); err != nil {
		c.releaseLabel(label, false)
		return 0, fmt.Errorf("send passthrough command: %w", err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return 0, domain.ErrConnectionClosed
		}
		if resp.Err != nil {
			return 0, resp.Err
		}
		return resp.Code, nil
	case <-ctx.Done():
		c.releaseLabel(label, true)
		return 0, ctx.Err()
	}
}

func (c *Connection) allocLabel() (byte, chan Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, nil, domain.ErrConnectionClosed
	}
	for label := byte(0); label < maxTransactionLabels; label++ {
		if _, busy := c.pending[label]; !busy {
			ch := make(chan Response, responseBacklog)
			c.pending[label] = ch
			return label, ch, nil
		}
	}
	return 0, nil, fmt.Errorf("all %d transaction labels in flight", maxTransactionLabels)
}

func (c *Connection) releaseLabel(label byte, closeStream bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.pending[label]
	delete(c.pending, label)
	if ok && closeStream {
		close(ch)
	}
}

// ─── Framing ────────────────────────────────────────────────────────────────

// writeFrame sends one AVCTP frame: u16 length prefix, AVCTP header
// (label, single-packet, C/R), profile id, then the AV/C payload.
func (c *Connection) writeFrame(label byte, isResponse bool, avcFrame []byte) error {
	header := label << 4
	if isResponse {
		header |= crResponseBit
	}

	buf := make([]byte, 2, 2+3+len(avcFrame))
	buf = append(buf, header)
	buf = append(buf, byte(ProfileID>>8), byte(ProfileID&0xff))
	buf = append(buf, avcFrame...)
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(buf)-2))

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.channel.Write(buf); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConnectionFailure, err)
	}
	return nil
}

func (c *Connection) readLoop() {
	defer c.Close()

	for {
		var lenBuf [2]byte
		if _, err := io.ReadFull(c.channel, lenBuf[:]); err != nil {
			return
		}
		frame := make([]byte, binary.BigEndian.Uint16(lenBuf[:]))
		if _, err := io.ReadFull(c.channel, frame); err != nil {
			return
		}
		c.handleFrame(frame)
	}
}

func (c *Connection) handleFrame(frame []byte) {
	if len(frame) < 3 {
		c.deliverCommand(&Command{Err: domain.NewPacketError(domain.PacketInvalidHeader,
			"avctp frame %d bytes", len(frame))})
		return
	}
	header := frame[0]
	label := header >> 4
	isResponse := header&crResponseBit != 0
	pid := binary.BigEndian.Uint16(frame[1:3])
	if pid != ProfileID {
		c.deliverCommand(&Command{Err: domain.NewPacketError(domain.PacketInvalidHeader,
			"unexpected profile id 0x%04x", pid)})
		return
	}

	avcFrame := frame[3:]
	if len(avcFrame) < 3 {
		c.deliverCommand(&Command{Err: domain.NewPacketError(domain.PacketInvalidHeader,
			"av/c frame %d bytes", len(avcFrame))})
		return
	}

	opcode := avc.Opcode(avcFrame[2])
	body := avcFrame[3:]
	if opcode == avc.OpcodeVendorDependent {
		if len(body) < 3 {
			c.deliverCommand(&Command{Err: domain.NewPacketError(domain.PacketInvalidHeader,
				"vendor frame missing company id")})
			return
		}
		body = body[3:] // company id is transport detail
	}

	if isResponse {
		c.routeResponse(label, Response{Code: avc.ResponseCode(avcFrame[0]), Body: body})
		return
	}

	cmd := &Command{
		Type:   avc.CommandType(avcFrame[0]),
		Opcode: opcode,
		Body:   body,
		respond: func(code avc.ResponseCode, respBody []byte) error {
			resp := make([]byte, 0, 6+len(respBody))
			resp = append(resp, byte(code), subunitPanel, byte(opcode))
			if opcode == avc.OpcodeVendorDependent {
				resp = append(resp, avc.BtSigCompanyID[:]...)
			}
			resp = append(resp, respBody...)
			return c.writeFrame(label, true, resp)
		},
	}
	c.deliverCommand(cmd)
}

// routeResponse delivers resp on the stream registered for label. The
// send happens under mu so a concurrent Close cannot close the stream
// between lookup and delivery.
func (c *Connection) routeResponse(label byte, resp Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, ok := c.pending[label]
	if !ok {
		log.Printf("[avctp] dropping response with unknown label %d (%s)", label, resp.Code)
		return
	}
	final := resp.Err != nil || resp.Code != avc.ResponseInterim
	if final {
		delete(c.pending, label)
	}
	select {
	case ch <- resp:
	default:
		log.Printf("[avctp] response backlog full on label %d, dropping %s", label, resp.Code)
	}
	if final {
		close(ch)
	}
}

func (c *Connection) deliverCommand(cmd *Command) {
	defer func() {
		// commands channel may close concurrently with a late frame
		if recover() != nil {
			log.Printf("[avctp] dropped command after close")
		}
	}()
	select {
	case c.commands <- cmd:
	default:
		log.Printf("[avctp] inbound command backlog full, dropping")
	}
}
