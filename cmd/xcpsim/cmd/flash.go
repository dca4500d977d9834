package cmd

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/roffe/goxcp/pkg/master"
	"github.com/spf13/cobra"
)

var flashCmd = &cobra.Command{
	Use:   "flash <binfile>",
	Short: "Flash a binary into the slave",
	Args:  cobra.ExactArgs(1),
	RunE:  runFlash,
}

func init() {
	f := flashCmd.Flags()
	f.String("addr", "0x08000000", "target address")
	f.Bool("secure", false, "run the seed/key handshake first")
	f.Uint32("secret", 0xDEADBEEF, "gate secret")
	rootCmd.AddCommand(flashCmd)
}

func runFlash(cmd *cobra.Command, args []string) error {
	bin, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read bin file: %v", err)
	}
	addr, err := parseAddr(cmd)
	if err != nil {
		return err
	}
	secure, _ := cmd.Flags().GetBool("secure")
	secret, _ := cmd.Flags().GetUint32("secret")

	sr, err := openSerial(cmd)
	if err != nil {
		return err
	}
	defer sr.Close()

	cl := master.New(sr)
	ctx := cmd.Context()
	if err := cl.Connect(ctx); err != nil {
		return err
	}
	if err := cl.Flash(ctx, addr, bin, master.FlashOptions{
		NeedsAuth: secure,
		Secret:    secret,
		Progress:  true,
		Verify32:  true,
	}); err != nil {
		return err
	}
	log.Printf("flashed %d bytes at 0x%08X", len(bin), addr)
	return nil
}

func parseAddr(cmd *cobra.Command) (uint32, error) {
	s, err := cmd.Flags().GetString("addr")
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %v", s, err)
	}
	return uint32(v), nil
}
