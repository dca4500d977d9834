package cmd

import (
	"log"
	"time"

	"github.com/roffe/goxcp"
	"github.com/roffe/goxcp/pkg/ecusim"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a simulated ECU slave on a serial port",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.Int("memory", 0x10000, "size of the simulated ECU image")
	f.Bool("secure", false, "enable the seed/key gate")
	f.Uint32("secret", 0xDEADBEEF, "gate secret")
	f.Duration("tick", 10*time.Millisecond, "event channel 0 cycle time")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	memSize, _ := cmd.Flags().GetInt("memory")
	secure, _ := cmd.Flags().GetBool("secure")
	secret, _ := cmd.Flags().GetUint32("secret")
	tick, _ := cmd.Flags().GetDuration("tick")
	debug, _ := cmd.Flags().GetBool(flagDebug)

	sr, err := openSerial(cmd)
	if err != nil {
		return err
	}
	defer sr.Close()

	mem := ecusim.NewMemory(memSize)
	flash := ecusim.NewFlash(mem)

	cfg := goxcp.DefaultConfig()
	cfg.Security = goxcp.SecurityConfig{
		Enabled:    secure,
		RequireCal: secure,
		RequireDaq: secure,
		RequirePgm: secure,
		SecretKey:  secret,
	}
	slave, err := goxcp.New(cfg, mem, flash, ecusim.NewClock(), sr)
	if err != nil {
		return err
	}

	log.Printf("slave up, %d byte image, security %v", memSize, secure)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case frame, ok := <-sr.Recv():
				if !ok {
					return nil
				}
				pkt := slave.ProcessCommand(frame)
				if debug {
					log.Printf("%s -> %s", goxcp.CommandName(frame[0]), pkt.ColorString())
				}
				if wire := pkt.Encode(); wire != nil {
					if err := sr.Send(wire); err != nil {
						return err
					}
				}
			}
		}
	})
	g.Go(func() error {
		t := time.NewTicker(tick)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				slave.SendDaqData(0)
			}
		}
	})
	return g.Wait()
}
