package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/roffe/goxcp/pkg/master"
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Upload and hexdump a slave memory region",
	RunE:  runDump,
}

func init() {
	f := dumpCmd.Flags()
	f.String("addr", "0x0", "start address")
	f.Int("length", 256, "bytes to read")
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	addr, err := parseAddr(cmd)
	if err != nil {
		return err
	}
	length, _ := cmd.Flags().GetInt("length")

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
	defer cl.Disconnect(ctx)

	data, err := cl.ReadMemory(ctx, 0, addr, length)
	if err != nil {
		return err
	}
	fmt.Print(hex.Dump(data))
	return nil
}
