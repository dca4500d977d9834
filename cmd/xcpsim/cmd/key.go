package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/roffe/goxcp/pkg/seedkey"
	"github.com/spf13/cobra"
)

// key is the external key calculator: paste a seed from a tool trace, get
// the unlock key back.
var keyCmd = &cobra.Command{
	Use:   "key <seed-hex>",
	Short: "Compute the unlock key for a seed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seed, err := hex.DecodeString(args[0])
		if err != nil {
			return fmt.Errorf("invalid seed %q: %v", args[0], err)
		}
		if len(seed) != seedkey.SeedLength {
			return fmt.Errorf("seed must be %d bytes", seedkey.SeedLength)
		}
		secret, err := cmd.Flags().GetUint32("secret")
		if err != nil {
			return err
		}
		fmt.Printf("%X\n", seedkey.ComputeKey(seed, secret))
		return nil
	},
}

func init() {
	keyCmd.Flags().Uint32("secret", 0xDEADBEEF, "gate secret")
	rootCmd.AddCommand(keyCmd)
}
