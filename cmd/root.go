package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/PraveenPrabhuT/sugar-pack/internal/ui"
)

var verbose bool

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "sugar-pack",
	Short: "Pack and publish SugarCRM module loadable packages",
	Long: `sugar-pack bumps a package's manifest version, compresses it into a module
loadable archive and installs it on a SugarCRM instance through the REST API.`,
	Version: Version, // This enables the 'sugar-pack --version' flag automatically
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("sugar-pack version %s (commit: %s, built: %s)\n", Version, Commit, Date))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
}

func newLogger() *log.Logger {
	return ui.NewLogger(os.Stderr, verbose)
}

func exitWithError(err error) {
	fmt.Printf("❌ %v\n", err)
	os.Exit(1)
}
