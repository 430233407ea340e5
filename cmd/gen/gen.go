package gen

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generators for wg-dynamic support files",
	Long:  `Generators for wg-dynamic support files, such as man pages.`,
}

func init() {
	RootCmd.AddCommand(ManPagesCmd)
}
