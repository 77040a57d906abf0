package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/PraveenPrabhuT/sugar-pack/internal/archive"
	"github.com/PraveenPrabhuT/sugar-pack/internal/pack"
	"github.com/PraveenPrabhuT/sugar-pack/internal/profile"
	"github.com/PraveenPrabhuT/sugar-pack/internal/publish"
	"github.com/PraveenPrabhuT/sugar-pack/internal/sugar"
	"github.com/PraveenPrabhuT/sugar-pack/internal/tokencache"
	"github.com/PraveenPrabhuT/sugar-pack/internal/ui"
)

type publishFlags struct {
	profile       string
	username      string
	password      string
	instance      string
	skipUpgrade   bool
	upgradeType   string
	yes           bool
	selectProfile bool
	last          bool
}

var pubFlags publishFlags

var publishCmd = &cobra.Command{
	Use:   "publish <package>",
	Short: "Pack a package and install it on a SugarCRM instance",
	Long: `Publish bumps the manifest version, then replaces any installed or staged copy
of the package on the instance, uploads the new archive and installs it.

Connection details come from sugar_pack.publish.json, looked up in the package
directory and then its parent. Flags override the selected profile.`,
	Example: `  # Publish with the first profile in sugar_pack.publish.json
  sugar-pack publish ./MyPackage

  # Publish with a named profile and bump the minor version
  sugar-pack publish ./MyPackage --profile staging --upgrade-type MINOR

  # Pick the profile interactively and skip the overwrite prompt
  sugar-pack publish ./MyPackage --select -y

  # Reuse the profile this package was last published with
  sugar-pack publish ./MyPackage -l`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completePackageDir,
	Run:               runPublish,
}

func init() {
	f := publishCmd.Flags()
	f.StringVar(&pubFlags.profile, "profile", "", "Publish profile to use")
	f.StringVarP(&pubFlags.username, "username", "u", "", "SugarCRM username")
	f.StringVarP(&pubFlags.password, "password", "p", "", "SugarCRM password")
	f.StringVarP(&pubFlags.instance, "instance", "i", "", "SugarCRM instance URL")
	f.BoolVarP(&pubFlags.yes, "yes", "y", false, "Overwrite an installed package without asking")
	f.BoolVar(&pubFlags.selectProfile, "select", false, "Pick the publish profile interactively")
	f.BoolVarP(&pubFlags.last, "last", "l", false, "Use the profile this package was last published with")
	addUpgradeFlags(publishCmd, &pubFlags.skipUpgrade, &pubFlags.upgradeType, "")
	publishCmd.MarkFlagsMutuallyExclusive("profile", "select", "last")

	// Dynamic completion for the --profile flag
	publishCmd.RegisterFlagCompletionFunc("profile", completeProfiles)

	rootCmd.AddCommand(publishCmd)
}

func completeProfiles(c *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	path, ok := profile.Locate(dir)
	if !ok {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	profiles, err := profile.LoadFile(path)
	if errors.Is(err, profile.ErrNoProfiles) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var names []string
	for _, name := range profile.Names(profiles) {
		if strings.HasPrefix(name, toComplete) {
			p, _ := profile.ByName(profiles, name)
			names = append(names, fmt.Sprintf("%s\t%s", name, p.Instance))
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

func runPublish(c *cobra.Command, args []string) {
	ctx := c.Context()
	logger := newLogger()

	pkg, err := archive.Open(args[0])
	if err != nil {
		exitWithError(err)
	}

	conn, err := resolveConnection(ctx, pubFlags, pkg, logger)
	if err != nil {
		exitWithError(err)
	}

	cacheDir := tokencache.Dir()
	client, err := sugar.NewClient(conn.ClientConfig(), tokencache.New(cacheDir), sugar.WithLogger(logger))
	if err != nil {
		exitWithError(err)
	}

	if err := pack.Upgrade(pkg, pubFlags.skipUpgrade, pubFlags.upgradeType, logger); err != nil {
		exitWithError(err)
	}

	target := publish.Target{Name: pkg.Manifest.Name(), Version: pkg.Manifest.Version()}
	fmt.Printf("🚀 Publishing %s v%s to %s\n", target.Name, target.Version, conn.InstanceURL())

	wf := publish.New(client, pkg, &ui.PromptApprover{AutoApprove: pubFlags.yes},
		publish.WithObserver(ui.NewProgressObserver(os.Stdout, ui.IsTerminal(os.Stdout))),
		publish.WithLogger(logger),
	)
	out := wf.Run(ctx, target)

	if out.Status == publish.StatusInstalled && conn.Name() != "" {
		if err := profile.SaveLast(cacheDir, target.Name, conn.Name()); err != nil {
			logger.Debug("could not record last profile", "err", err)
		}
	}
	if err := reportOutcome(os.Stdout, out); err != nil {
		exitWithError(err)
	}
}

// resolveConnection loads the profiles next to pkg and merges the selected
// one with the connection flags.
func resolveConnection(ctx context.Context, flags publishFlags, pkg *archive.Package, logger *log.Logger) (profile.Connection, error) {
	var profiles []profile.Profile
	if path, ok := profile.Locate(pkg.Dir); ok {
		loaded, err := profile.LoadFile(path)
		switch {
		case errors.Is(err, profile.ErrNoProfiles):
			logger.Warn(fmt.Sprintf("%s defines no profiles, using command-line values only", path))
		case err != nil:
			return profile.Connection{}, err
		default:
			logger.Debug("loaded publish profiles", "path", path, "count", len(loaded))
			profiles = loaded
		}
	} else {
		logger.Warn(fmt.Sprintf("%s not found, using command-line values only", profile.FileName))
	}

	name := flags.profile
	switch {
	case flags.selectProfile && len(profiles) > 0:
		p, err := profile.Pick(profiles)
		if err != nil {
			return profile.Connection{}, fmt.Errorf("selection: %w", err)
		}
		name = p.Name
	case flags.last:
		p, err := profile.LoadLast(tokencache.Dir(), pkg.Manifest.Name(), profiles)
		if err != nil {
			logger.Warn(err.Error())
		} else {
			name = p.Name
		}
	}

	r := &profile.Resolver{
		Profiles: profiles,
		Secrets:  profile.SecretsManagerResolver{},
		Logger:   logger,
	}
	return r.Resolve(ctx, profile.Request{
		ProfileName: name,
		Overrides: profile.Profile{
			Instance: flags.instance,
			Username: flags.username,
			Password: flags.password,
		},
	})
}

// reportOutcome prints the result of a publish run. A failed run is
// returned as an error.
func reportOutcome(w io.Writer, out publish.Outcome) error {
	switch out.Status {
	case publish.StatusInstalled:
		fmt.Fprintf(w, "✅ Package %s v%s installed successfully\n", out.Name, out.Version)
		return nil
	case publish.StatusAborted:
		fmt.Fprintln(w, "Aborting publish.")
		return nil
	}
	if out.Err == nil {
		return fmt.Errorf("publish failed during %s", out.State)
	}
	return out.Err
}
