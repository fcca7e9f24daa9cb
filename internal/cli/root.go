package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/meetnotes/internal/config"
	"github.com/dgnsrekt/meetnotes/internal/notesapi"
	"github.com/dgnsrekt/meetnotes/internal/version"
)

type Dependencies struct {
	Config *config.ClientConfig
	Notes  *notesapi.Client
	Daemon *DaemonClient
	Out    io.Writer
}

func (d *Dependencies) out() io.Writer {
	if d.Out != nil {
		return d.Out
	}
	return os.Stdout
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "meetnotes",
		Short:         "Record meetings and turn them into notes",
		Long:          "A CLI for the meeting recorder daemon and the notes-generation backend: record tabs, upload audio, generate notes from videos and browse saved notes.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	rootCmd.AddCommand(NewNotesCmd(deps))
	rootCmd.AddCommand(NewUploadCmd(deps))
	rootCmd.AddCommand(NewYouTubeCmd(deps))
	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewPrefsCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))

	return rootCmd
}

// addOptionFlags registers the note-generation flags shared by upload and
// youtube.
func addOptionFlags(cmd *cobra.Command, detail, format *string) {
	cmd.Flags().StringVarP(detail, "detail", "d", "", "detail level: brief, medium or detailed")
	cmd.Flags().StringVarP(format, "format", "f", "", "format: bullet or paragraph")
}
