package cmd

import (
	"context"
	"errors"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/roffe/goxcp/adapter"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "xcpsim",
	Short:        "XCP slave simulator and flash tool",
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) {
	rootCmd.ExecuteContext(ctx)
}

const (
	flagPort     = "port"
	flagBaudrate = "baudrate"
	flagDebug    = "debug"
)

func init() {
	log.SetFlags(log.Lshortfile | log.LstdFlags)

	pf := rootCmd.PersistentFlags()
	pf.StringP(flagPort, "p", "*", "com-port, * = pick interactively")
	pf.IntP(flagBaudrate, "b", 115200, "baudrate")
	pf.BoolP(flagDebug, "d", false, "log frame traffic")
}

// selectPort resolves the --port flag, prompting when it is left at "*".
func selectPort(cmd *cobra.Command) (string, error) {
	port, err := cmd.Flags().GetString(flagPort)
	if err != nil {
		return "", err
	}
	if port != "*" {
		return port, nil
	}
	ports, err := adapter.ListPorts()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", errors.New("no serial ports found")
	}
	prompt := promptui.Select{
		Label: "Select port",
		Items: ports,
	}
	_, port, err = prompt.Run()
	return port, err
}

func openSerial(cmd *cobra.Command) (*adapter.Serial, error) {
	port, err := selectPort(cmd)
	if err != nil {
		return nil, err
	}
	baudrate, err := cmd.Flags().GetInt(flagBaudrate)
	if err != nil {
		return nil, err
	}
	debug, _ := cmd.Flags().GetBool(flagDebug)
	return adapter.NewSerial(cmd.Context(),
		adapter.OptComPort(port, baudrate),
		adapter.OptLogging(debug),
	)
}
