package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information of sugar-pack",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout())
	},
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "sugar-pack version: %s\n", Version)
	fmt.Fprintf(w, "commit:             %s\n", Commit)
	fmt.Fprintf(w, "built at:           %s\n", Date)
	fmt.Fprintf(w, "go version:         %s\n", runtime.Version())
	fmt.Fprintf(w, "os/arch:            %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
