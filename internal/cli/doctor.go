package cli

import (
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/meetnotes/internal/output"
)

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the daemon and backend are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := output.NewFormatter(deps.out())
			ok := true

			if h, err := deps.Daemon.Health(cmd.Context()); err != nil {
				f.SetupCheck("Recorder daemon", false, err.Error())
				ok = false
			} else {
				f.SetupCheck("Recorder daemon", true, deps.Config.DaemonURL+" ("+h.Status+")")
				for _, name := range h.Sources {
					detail := "available"
					if name == h.DefaultSource {
						detail = "available (default)"
					}
					f.SetupCheck("Source "+name, true, detail)
				}
			}

			if err := deps.Notes.Health(cmd.Context()); err != nil {
				f.SetupCheck("Notes backend", false, err.Error())
				ok = false
			} else {
				f.SetupCheck("Notes backend", true, deps.Config.BackendURL)
			}

			if _, err := exec.LookPath("ffmpeg"); err != nil {
				f.SetupCheck("ffmpeg", false, "not found; only the stream source will work")
			} else {
				f.SetupCheck("ffmpeg", true, "installed")
			}

			if ok {
				f.Success("Ready to record")
			} else {
				f.Warning("Some services are unreachable")
			}
			return nil
		},
	}
}
