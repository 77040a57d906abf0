package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PraveenPrabhuT/sugar-pack/internal/config"
	"github.com/PraveenPrabhuT/sugar-pack/internal/pack"
)

var packOpts pack.Options

var upgradeTypes = []string{"PATCH", "MINOR", "MAJOR"}

var packCmd = &cobra.Command{
	Use:   "pack <package>",
	Short: "Compress a package into a module loadable archive",
	Long: `Pack bumps the version in the package's manifest.yaml, generates manifest.php
and writes a ZIP archive the SugarCRM module loader accepts. The output directory
and naming strategy come from pack.yaml in the sugar-pack config directory.`,
	Example: `  # Bump the patch version and pack into the configured output_dir
  sugar-pack pack ./MyPackage

  # Bump the minor version and write ./dist/release.zip
  sugar-pack pack ./MyPackage --upgrade-type MINOR --dir ./dist --output release

  # Pack without touching the manifest
  sugar-pack pack ./MyPackage -s`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completePackageDir,
	Run:               runPack,
}

func init() {
	addUpgradeFlags(packCmd, &packOpts.SkipUpgrade, &packOpts.UpgradeType, "u")
	packCmd.Flags().StringVarP(&packOpts.Dir, "dir", "d", "", "Directory to write the archive to (overrides output_dir)")
	packCmd.Flags().StringVarP(&packOpts.Output, "output", "o", "", "Archive file name (overrides package_naming)")

	rootCmd.AddCommand(packCmd)
}

// addUpgradeFlags registers --skip-upgrade and --upgrade-type. publish uses
// -u for the username, so the upgrade-type shorthand is per command.
func addUpgradeFlags(c *cobra.Command, skip *bool, upgradeType *string, typeShorthand string) {
	c.Flags().BoolVarP(skip, "skip-upgrade", "s", false, "Do not bump the manifest version")
	c.Flags().StringVarP(upgradeType, "upgrade-type", typeShorthand, "PATCH", "Version component to bump: PATCH, MINOR or MAJOR")
	c.RegisterFlagCompletionFunc("upgrade-type", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return upgradeTypes, cobra.ShellCompDirectiveNoFileComp
	})
}

func completePackageDir(c *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveFilterDirs
}

func runPack(c *cobra.Command, args []string) {
	logger := newLogger()

	dir, err := config.ConfigDir()
	if err != nil {
		exitWithError(err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		exitWithError(err)
	}

	opts := packOpts
	opts.PackageDir = args[0]

	res, err := pack.Run(c.Context(), opts, cfg, logger)
	if err != nil {
		exitWithError(err)
	}

	fmt.Printf("✅ Successfully packaged %s v%s to %s\n", res.Name, res.Version, res.Path)
	fmt.Printf("🔑 blake3: %s (%d files)\n", res.Digest, res.Files)
}
