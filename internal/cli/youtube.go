package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/meetnotes/internal/notesapi"
	"github.com/dgnsrekt/meetnotes/internal/output"
)

func NewYouTubeCmd(deps *Dependencies) *cobra.Command {
	var detail, format string
	cmd := &cobra.Command{
		Use:     "youtube <url>",
		Aliases: []string{"video"},
		Short:   "Generate notes from a video URL",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(deps.out())

			opts, err := notesapi.ParseOptions(detail, format)
			if err != nil {
				return err
			}
			formatter.Generating(args[0])
			note, err := deps.Notes.GenerateFromVideo(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			formatter.Success(fmt.Sprintf("Notes generated: %s [%s]", note.Title, note.ID))
			return nil
		},
	}
	addOptionFlags(cmd, &detail, &format)
	return cmd
}
