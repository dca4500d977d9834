package master

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log"

	"github.com/avast/retry-go"
	"github.com/k0kubun/go-ansi"
	"github.com/roffe/goxcp"
	"github.com/schollz/progressbar/v3"
)

// FlashOptions tunes one programming run.
type FlashOptions struct {
	// Secret unlocks the PGM resource before flashing when the slave's
	// security gate is enabled.
	Secret    uint32
	NeedsAuth bool
	// Progress renders a bar to stdout while writing.
	Progress bool
	// Verify32 compares the first word of the image after programming.
	Verify32 bool
}

func (c *Client) ProgramStart(ctx context.Context) error {
	pkt, err := c.command(ctx, []byte{goxcp.CmdProgramStart})
	if err != nil {
		return err
	}
	if len(pkt.Payload) >= 3 && pkt.Payload[2] > 0 {
		c.pgmMaxSize = int(pkt.Payload[2])
	}
	return nil
}

func (c *Client) ProgramClear(ctx context.Context, length uint32) error {
	cmd := make([]byte, 8)
	cmd[0] = goxcp.CmdProgramClear
	binary.BigEndian.PutUint32(cmd[4:8], length)
	_, err := c.command(ctx, cmd)
	return err
}

func (c *Client) Program(ctx context.Context, data []byte) error {
	cmd := append([]byte{goxcp.CmdProgram, byte(len(data))}, data...)
	_, err := c.command(ctx, cmd)
	return err
}

// ProgramEnd sends the zero length end-of-block marker.
func (c *Client) ProgramEnd(ctx context.Context) error {
	return c.Program(ctx, nil)
}

func (c *Client) ProgramReset(ctx context.Context) error {
	_, err := c.command(ctx, []byte{goxcp.CmdProgramReset})
	return err
}

func (c *Client) ProgramVerify(ctx context.Context, mode uint8, value uint32) error {
	cmd := make([]byte, 8)
	cmd[0] = goxcp.CmdProgramVerify
	cmd[1] = mode
	binary.BigEndian.PutUint32(cmd[4:8], value)
	_, err := c.command(ctx, cmd)
	return err
}

// Flash drives the whole programming sequence for one image: unlock,
// PROGRAM_START, PROGRAM_CLEAR over the image range, chunked PROGRAM
// commands, end-of-block, optional verify, PROGRAM_RESET. Each chunk is
// retried a few times before the sequence is abandoned.
func (c *Client) Flash(ctx context.Context, address uint32, bin []byte, opts FlashOptions) error {
	if opts.NeedsAuth {
		if err := c.Unlock(ctx, goxcp.SeedModePgm, opts.Secret); err != nil {
			return fmt.Errorf("unlock PGM: %w", err)
		}
	}
	if err := c.ProgramStart(ctx); err != nil {
		return err
	}
	if err := c.SetMta(ctx, 0, address); err != nil {
		return err
	}
	if err := c.ProgramClear(ctx, uint32(len(bin))); err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(bin),
		progressbar.OptionSetWriter(barWriter(opts.Progress)),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription("[cyan]flashing ECU[reset]"),
	)

	pos := 0
	for pos < len(bin) {
		end := pos + c.pgmMaxSize
		if end > len(bin) {
			end = len(bin)
		}
		chunk := bin[pos:end]
		err := retry.Do(
			func() error { return c.Program(ctx, chunk) },
			retry.Context(ctx),
			retry.Attempts(3),
			retry.OnRetry(func(n uint, err error) {
				log.Printf("program retry %d at 0x%X: %v", n, address+uint32(pos), err)
			}),
			retry.LastErrorOnly(true),
		)
		if err != nil {
			return fmt.Errorf("program failed at 0x%X: %w", address+uint32(pos), err)
		}
		pos = end
		bar.Set(pos)
	}
	if err := c.ProgramEnd(ctx); err != nil {
		return err
	}

	if opts.Verify32 && len(bin) >= 4 {
		if err := c.SetMta(ctx, 0, address); err != nil {
			return err
		}
		want := binary.BigEndian.Uint32(bin[0:4])
		if err := c.ProgramVerify(ctx, 1, want); err != nil {
			return err
		}
	}
	return c.ProgramReset(ctx)
}

func barWriter(enabled bool) io.Writer {
	if enabled {
		return ansi.NewAnsiStdout()
	}
	return io.Discard
}
