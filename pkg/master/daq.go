package master

import (
	"context"
	"encoding/binary"

	"github.com/roffe/goxcp"
)

// DaqEntry is one measurement to sample, host side view.
type DaqEntry struct {
	Address   uint32
	Size      uint8
	Extension uint8
}

func (c *Client) FreeDaq(ctx context.Context) error {
	_, err := c.command(ctx, []byte{goxcp.CmdFreeDaq})
	return err
}

func (c *Client) AllocDaq(ctx context.Context, count uint16) error {
	cmd := make([]byte, 4)
	cmd[0] = goxcp.CmdAllocDaq
	binary.BigEndian.PutUint16(cmd[2:4], count)
	_, err := c.command(ctx, cmd)
	return err
}

func (c *Client) AllocOdt(ctx context.Context, list uint16, count uint8) error {
	cmd := make([]byte, 5)
	cmd[0] = goxcp.CmdAllocOdt
	binary.BigEndian.PutUint16(cmd[2:4], list)
	cmd[4] = count
	_, err := c.command(ctx, cmd)
	return err
}

func (c *Client) AllocOdtEntry(ctx context.Context, list uint16, odt, count uint8) error {
	cmd := make([]byte, 6)
	cmd[0] = goxcp.CmdAllocOdtEntry
	binary.BigEndian.PutUint16(cmd[2:4], list)
	cmd[4] = odt
	cmd[5] = count
	_, err := c.command(ctx, cmd)
	return err
}

func (c *Client) SetDaqPtr(ctx context.Context, list uint16, odt, entry uint8) error {
	cmd := make([]byte, 6)
	cmd[0] = goxcp.CmdSetDaqPtr
	binary.BigEndian.PutUint16(cmd[2:4], list)
	cmd[4] = odt
	cmd[5] = entry
	_, err := c.command(ctx, cmd)
	return err
}

func (c *Client) WriteDaq(ctx context.Context, e DaqEntry) error {
	cmd := make([]byte, 8)
	cmd[0] = goxcp.CmdWriteDaq
	cmd[2] = e.Size
	cmd[3] = e.Extension
	binary.BigEndian.PutUint32(cmd[4:8], e.Address)
	_, err := c.command(ctx, cmd)
	return err
}

func (c *Client) SetDaqListMode(ctx context.Context, mode uint8, list, eventChannel uint16, prescaler, priority uint8) error {
	cmd := make([]byte, 8)
	cmd[0] = goxcp.CmdSetDaqListMode
	cmd[1] = mode
	binary.BigEndian.PutUint16(cmd[2:4], list)
	binary.BigEndian.PutUint16(cmd[4:6], eventChannel)
	cmd[6] = prescaler
	cmd[7] = priority
	_, err := c.command(ctx, cmd)
	return err
}

// StartStopDaqList returns the FIRST_PID of the list so the caller can map
// incoming DTO frames back to their ODTs.
func (c *Client) StartStopDaqList(ctx context.Context, mode uint8, list uint16) (uint8, error) {
	cmd := make([]byte, 4)
	cmd[0] = goxcp.CmdStartStopDaqList
	cmd[1] = mode
	binary.BigEndian.PutUint16(cmd[2:4], list)
	pkt, err := c.command(ctx, cmd)
	if err != nil {
		return 0, err
	}
	if len(pkt.Payload) < 1 {
		return 0, nil
	}
	return pkt.Payload[0], nil
}

func (c *Client) StartStopSynch(ctx context.Context, mode uint8) error {
	_, err := c.command(ctx, []byte{goxcp.CmdStartStopSynch, mode})
	return err
}

func (c *Client) GetDaqClock(ctx context.Context) (uint32, error) {
	pkt, err := c.command(ctx, []byte{goxcp.CmdGetDaqClock})
	if err != nil {
		return 0, err
	}
	if len(pkt.Payload) < 7 {
		return 0, nil
	}
	return binary.BigEndian.Uint32(pkt.Payload[3:7]), nil
}

// SetupDaqList allocates and configures one list in a single call: one
// entry per measurement, grouped into ODTs by the caller's chunking.
func (c *Client) SetupDaqList(ctx context.Context, list, eventChannel uint16, odts [][]DaqEntry) error {
	if err := c.AllocOdt(ctx, list, uint8(len(odts))); err != nil {
		return err
	}
	for i, entries := range odts {
		if err := c.AllocOdtEntry(ctx, list, uint8(i), uint8(len(entries))); err != nil {
			return err
		}
	}
	for i, entries := range odts {
		if err := c.SetDaqPtr(ctx, list, uint8(i), 0); err != nil {
			return err
		}
		for _, e := range entries {
			if err := c.WriteDaq(ctx, e); err != nil {
				return err
			}
		}
	}
	return c.SetDaqListMode(ctx, 0x01, list, eventChannel, 1, 0)
}
