package cli

import (
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/meetnotes/internal/output"
	"github.com/dgnsrekt/meetnotes/internal/prefs"
)

func NewPrefsCmd(deps *Dependencies) *cobra.Command {
	var detail, format string
	var autoUpload bool
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change the daemon's upload preferences",
		Long:  "Without flags, prints the current preferences. Flags that are given are changed; the rest are kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch prefs.Patch
			changed := false
			if cmd.Flags().Changed("detail") {
				patch.DetailLevel = &detail
				changed = true
			}
			if cmd.Flags().Changed("format") {
				patch.FormatType = &format
				changed = true
			}
			if cmd.Flags().Changed("auto-upload") {
				patch.AutoUpload = &autoUpload
				changed = true
			}

			var (
				p   prefs.Preferences
				err error
			)
			if changed {
				p, err = deps.Daemon.UpdatePreferences(cmd.Context(), patch)
			} else {
				p, err = deps.Daemon.GetPreferences(cmd.Context())
			}
			if err != nil {
				return err
			}
			output.NewFormatter(deps.out()).Preferences(p)
			return nil
		},
	}
	addOptionFlags(cmd, &detail, &format)
	cmd.Flags().BoolVar(&autoUpload, "auto-upload", true, "upload recordings when they stop instead of holding them for download")
	return cmd
}
