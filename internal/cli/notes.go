package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/meetnotes/internal/output"
)

func NewNotesCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Browse generated notes",
	}
	cmd.AddCommand(newNotesListCmd(deps))
	cmd.AddCommand(newNotesShowCmd(deps))
	return cmd
}

func newNotesListCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(deps.out())

			notes, err := deps.Notes.ListNotes(cmd.Context())
			if err != nil {
				return err
			}
			if len(notes) == 0 {
				formatter.Info("No notes found")
				return nil
			}

			formatter.NoteListHeader()
			for _, n := range notes {
				formatter.NoteListItem(n)
			}
			return nil
		},
	}
}

func newNotesShowCmd(deps *Dependencies) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			note, err := deps.Notes.GetNote(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(deps.out())
				enc.SetIndent("", "  ")
				return enc.Encode(note)
			}
			output.NewFormatter(deps.out()).Note(note)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw note as JSON")
	return cmd
}
