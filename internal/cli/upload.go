package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/meetnotes/internal/notesapi"
	"github.com/dgnsrekt/meetnotes/internal/output"
)

func NewUploadCmd(deps *Dependencies) *cobra.Command {
	var detail, format string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an audio file and generate notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(deps.out())

			opts, err := notesapi.ParseOptions(detail, format)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if len(data) == 0 {
				return fmt.Errorf("%s is empty", args[0])
			}

			name := filepath.Base(args[0])
			formatter.Uploading(name, len(data))
			note, err := deps.Notes.UploadAudio(cmd.Context(), notesapi.AudioFile{
				Name:     name,
				MimeType: audioMimeType(name),
				Data:     data,
			}, opts)
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

// audioMimeType guesses the upload content type from the file extension.
func audioMimeType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".webm":
		return "audio/webm"
	case ".ogg", ".opus":
		return "audio/ogg"
	case ".mp4", ".m4a":
		return "audio/mp4"
	}
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
