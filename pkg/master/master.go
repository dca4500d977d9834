// Package master implements the tool side of the calibration protocol,
// enough to exercise a slave: session handling, memory access, DAQ setup,
// the seed/key handshake and the flashing sequence.
package master

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/roffe/goxcp"
	"github.com/roffe/goxcp/pkg/seedkey"
)

var ErrNoResponse = errors.New("master: timeout waiting for response")

// Bus is the minimal transport surface the client needs, satisfied by the
// adapter package bindings.
type Bus interface {
	Send(data []byte) error
	Recv() <-chan []byte
}

type Client struct {
	bus            Bus
	defaultTimeout time.Duration

	// learned from CONNECT / PROGRAM_START
	maxCTO     int
	maxDTO     int
	pgmMaxSize int
	resources  uint8
}

func New(bus Bus) *Client {
	return &Client{
		bus:            bus,
		defaultTimeout: 150 * time.Millisecond,
		maxCTO:         goxcp.DefaultMaxCTO,
		maxDTO:         goxcp.DefaultMaxDTO,
		pgmMaxSize:     goxcp.DefaultPgmMaxSize,
	}
}

// request sends one command frame and waits for the slave's response
// packet. DAQ data frames that arrive in between are ignored, their PID
// never collides with the four response identifiers.
func (c *Client) request(ctx context.Context, cmd []byte) (goxcp.Packet, error) {
	if err := c.bus.Send(cmd); err != nil {
		return goxcp.Packet{}, err
	}
	deadline := time.NewTimer(c.defaultTimeout)
	defer deadline.Stop()
	for {
		select {
		case <-ctx.Done():
			return goxcp.Packet{}, ctx.Err()
		case <-deadline.C:
			return goxcp.Packet{}, fmt.Errorf("%w: %s", ErrNoResponse, goxcp.CommandName(cmd[0]))
		case frame, ok := <-c.bus.Recv():
			if !ok {
				return goxcp.Packet{}, errors.New("master: bus closed")
			}
			pkt, err := goxcp.Decode(frame)
			if err != nil {
				continue // DAQ data frame
			}
			return pkt, nil
		}
	}
}

// command runs request and folds error packets into Go errors.
func (c *Client) command(ctx context.Context, cmd []byte) (goxcp.Packet, error) {
	pkt, err := c.request(ctx, cmd)
	if err != nil {
		return goxcp.Packet{}, err
	}
	switch pkt.Kind {
	case goxcp.PacketPositive:
		return pkt, nil
	case goxcp.PacketError:
		return pkt, &goxcp.SlaveError{Cmd: cmd[0], Code: pkt.Code}
	default:
		return pkt, nil
	}
}

func (c *Client) Connect(ctx context.Context) error {
	pkt, err := c.command(ctx, []byte{goxcp.CmdConnect, 0x00})
	if err != nil {
		return err
	}
	if len(pkt.Payload) >= 5 {
		c.resources = pkt.Payload[0]
		c.maxCTO = int(pkt.Payload[2])
		c.maxDTO = int(binary.BigEndian.Uint16(pkt.Payload[3:5]))
	}
	return nil
}

func (c *Client) Disconnect(ctx context.Context) error {
	_, err := c.command(ctx, []byte{goxcp.CmdDisconnect})
	return err
}

// Resources reports the resource mask announced by CONNECT.
func (c *Client) Resources() uint8 {
	return c.resources
}

// ProtectionMask asks GET_STATUS for the resources still locked.
func (c *Client) ProtectionMask(ctx context.Context) (uint8, error) {
	pkt, err := c.command(ctx, []byte{goxcp.CmdGetStatus})
	if err != nil {
		return 0, err
	}
	if len(pkt.Payload) < 2 {
		return 0, errors.New("master: short GET_STATUS response")
	}
	return pkt.Payload[1], nil
}

func (c *Client) SetMta(ctx context.Context, extension uint8, address uint32) error {
	cmd := make([]byte, 8)
	cmd[0] = goxcp.CmdSetMta
	cmd[3] = extension
	binary.BigEndian.PutUint32(cmd[4:8], address)
	_, err := c.command(ctx, cmd)
	return err
}

func (c *Client) Upload(ctx context.Context, n int) ([]byte, error) {
	pkt, err := c.command(ctx, []byte{goxcp.CmdUpload, byte(n)})
	if err != nil {
		return nil, err
	}
	return pkt.Payload, nil
}

func (c *Client) ShortUpload(ctx context.Context, n int, extension uint8, address uint32) ([]byte, error) {
	cmd := make([]byte, 8)
	cmd[0] = goxcp.CmdShortUpload
	cmd[1] = byte(n)
	cmd[3] = extension
	binary.BigEndian.PutUint32(cmd[4:8], address)
	pkt, err := c.command(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return pkt.Payload, nil
}

func (c *Client) Download(ctx context.Context, data []byte) error {
	if len(data) > c.maxCTO-2 {
		return fmt.Errorf("master: download chunk %d exceeds limit %d", len(data), c.maxCTO-2)
	}
	cmd := append([]byte{goxcp.CmdDownload, byte(len(data))}, data...)
	_, err := c.command(ctx, cmd)
	return err
}

// BuildChecksum asks for the additive checksum over blockSize bytes at the
// MTA and returns it.
func (c *Client) BuildChecksum(ctx context.Context, blockSize uint32) (uint32, error) {
	cmd := make([]byte, 8)
	cmd[0] = goxcp.CmdBuildChecksum
	binary.BigEndian.PutUint32(cmd[4:8], blockSize)
	pkt, err := c.command(ctx, cmd)
	if err != nil {
		return 0, err
	}
	if len(pkt.Payload) < 7 {
		return 0, errors.New("master: short BUILD_CHECKSUM response")
	}
	return binary.BigEndian.Uint32(pkt.Payload[3:7]), nil
}

// GetSeed requests the challenge for a seed mode. A zero length seed means
// the resource is already unlocked.
func (c *Client) GetSeed(ctx context.Context, mode uint8) ([]byte, error) {
	pkt, err := c.command(ctx, []byte{goxcp.CmdGetSeed, mode})
	if err != nil {
		return nil, err
	}
	if len(pkt.Payload) < 1 {
		return nil, errors.New("master: short GET_SEED response")
	}
	n := int(pkt.Payload[0])
	if len(pkt.Payload) < 1+n {
		return nil, errors.New("master: truncated seed")
	}
	return pkt.Payload[1 : 1+n], nil
}

func (c *Client) SendKey(ctx context.Context, key []byte) error {
	cmd := append([]byte{goxcp.CmdUnlock, byte(len(key))}, key...)
	_, err := c.command(ctx, cmd)
	return err
}

// Unlock runs the full seed/key handshake for one mode using the shared
// secret. Already unlocked modes return immediately.
func (c *Client) Unlock(ctx context.Context, mode uint8, secret uint32) error {
	seed, err := c.GetSeed(ctx, mode)
	if err != nil {
		return err
	}
	if len(seed) == 0 {
		return nil
	}
	return c.SendKey(ctx, seedkey.ComputeKey(seed, secret))
}

// ReadMemory uploads length bytes starting at address in MTA sized chunks.
func (c *Client) ReadMemory(ctx context.Context, extension uint8, address uint32, length int) ([]byte, error) {
	if err := c.SetMta(ctx, extension, address); err != nil {
		return nil, err
	}
	out := make([]byte, 0, length)
	chunk := c.maxCTO - 1
	for len(out) < length {
		n := length - len(out)
		if n > chunk {
			n = chunk
		}
		data, err := c.Upload(ctx, n)
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	return out, nil
}

// WriteMemory downloads data to address in MTA sized chunks.
func (c *Client) WriteMemory(ctx context.Context, extension uint8, address uint32, data []byte) error {
	if err := c.SetMta(ctx, extension, address); err != nil {
		return err
	}
	chunk := c.maxCTO - 2
	for pos := 0; pos < len(data); pos += chunk {
		end := pos + chunk
		if end > len(data) {
			end = len(data)
		}
		if err := c.Download(ctx, data[pos:end]); err != nil {
			return err
		}
	}
	return nil
}
