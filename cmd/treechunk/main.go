package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dividuum/nbd-chunk-drive/version"
)

var showVersion bool

func init() {
	RootCmd.AddCommand(WriteCmd)
	RootCmd.AddCommand(ReadCmd)
	RootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "show the version and exit")
}

// RootCmd is the main command for the 'treechunk' binary.
var RootCmd = &cobra.Command{
	Use:   "treechunk",
	Short: "`treechunk` builds and reads tree-chunked, encrypted repositories",
	Long:  "`treechunk` builds and reads tree-chunked, encrypted repositories",
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			version.PrintVersion()
			return
		}
		// nolint:errcheck
		cmd.Usage()
	},
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
