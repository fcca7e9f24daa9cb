package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/meetnotes/internal/output"
)

func NewRecordCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Control tab recordings on the recorder daemon",
	}
	cmd.AddCommand(newRecordStartCmd(deps))
	cmd.AddCommand(newRecordStopCmd(deps))
	cmd.AddCommand(newRecordStatusCmd(deps))
	cmd.AddCommand(newRecordDownloadCmd(deps))
	return cmd
}

func newRecordStartCmd(deps *Dependencies) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "start <tab-id>",
		Short: "Start recording a tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := deps.Daemon.StartRecording(cmd.Context(), args[0], source)
			if err != nil {
				return err
			}
			output.NewFormatter(deps.out()).RecordingStatus(st, time.Now())
			return nil
		},
	}
	cmd.Flags().StringVarP(&source, "source", "s", "", "audio source: stream or ffmpeg (daemon default when empty)")
	return cmd
}

func newRecordStopCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <tab-id>",
		Short: "Stop recording a tab and hand the audio to the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := deps.Daemon.StopRecording(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			output.NewFormatter(deps.out()).RecordingStopped(out.TabID, out.Artifact.Filename, out.Artifact.Size)
			return nil
		},
	}
}

func newRecordStatusCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "status [tab-id]",
		Short: "Show a tab's recorder state, or every known tab",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(deps.out())
			now := time.Now()

			if len(args) == 1 {
				st, err := deps.Daemon.RecordingStatus(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				formatter.RecordingStatus(st, now)
				return nil
			}

			tabs, err := deps.Daemon.ListTabs(cmd.Context())
			if err != nil {
				return err
			}
			if len(tabs) == 0 {
				formatter.Info("No tabs known to the daemon")
				return nil
			}
			for _, tab := range tabs {
				formatter.RecordingStatus(tab.Status, now)
			}
			return nil
		},
	}
}

func newRecordDownloadCmd(deps *Dependencies) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "download <tab-id>",
		Short: "Save a tab's last recording to disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := deps.Daemon.DownloadRecording(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			name := d.Filename
			if name == "" {
				name = fmt.Sprintf("meet-recording-%d.webm", time.Now().UnixMilli())
			}
			path := filepath.Join(dir, filepath.Base(name))
			if err := os.WriteFile(path, d.Data, 0o644); err != nil {
				return err
			}
			output.NewFormatter(deps.out()).Success("Recording saved: " + path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "output-dir", "o", ".", "directory to write the recording into")
	return cmd
}
