package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/CMihai998/wg-dynamic/cmd/gen"
)

var rootCmd = &cobra.Command{
	Use:   "wg-dynamic",
	Short: "Dynamic address lease daemon",
	Long: `wg-dynamic hands out dynamic address leases to peers over a
small newline-delimited key=value protocol.`,
}

func init() {
	rootCmd.AddCommand(StartCmd)
	rootCmd.AddCommand(VersionCmd)
	rootCmd.AddCommand(gen.RootCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
