package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/smazurov/enctests/internal/updater"
)

// CreateUpdateCmd creates the self-update command.
func CreateUpdateCmd() *cobra.Command {
	var check, prerelease, rollback bool
	var repository string

	cmd := &cobra.Command{
		Use:   "self-update",
		Short: "Update enctests to the latest release",
		Long: `Downloads the latest GitHub release for this platform and replaces the running binary. ` +
			`The previous binary is kept so --rollback can restore it.`,
		RunE: func(c *cobra.Command, _ []string) error {
			u, err := updater.New(updater.Options{Repository: repository, Prerelease: prerelease})
			if err != nil {
				return err
			}
			out := c.OutOrStdout()

			if rollback {
				if err := u.Rollback(); err != nil {
					return err
				}
				fmt.Fprintf(out, "Restored %s\n", u.BackupVersion())
				return nil
			}

			if check {
				info, err := u.Check(c.Context())
				if err != nil {
					return err
				}
				if !info.UpdateAvailable {
					fmt.Fprintf(out, "enctests %s is up to date\n", info.CurrentVersion)
					return nil
				}
				fmt.Fprintf(out, "Update available: %s -> %s (%s, published %s)\n",
					info.CurrentVersion, info.LatestVersion,
					humanize.IBytes(uint64(info.AssetSize)), humanize.Time(info.PublishedAt))
				if info.ReleaseURL != "" {
					fmt.Fprintln(out, info.ReleaseURL)
				}
				return nil
			}

			info, err := u.Apply(c.Context())
			if updater.HasCode(err, updater.ErrCodeNoUpdate) {
				fmt.Fprintf(out, "enctests %s is up to date\n", info.CurrentVersion)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Updated %s -> %s\n", info.CurrentVersion, info.LatestVersion)
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Only report whether an update is available")
	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "Include prereleases")
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Restore the binary replaced by the last update")
	cmd.Flags().StringVar(&repository, "repository", updater.DefaultRepository, "GitHub repository to update from")
	cmd.MarkFlagsMutuallyExclusive("check", "rollback")
	return cmd
}
