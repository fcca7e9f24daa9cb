package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dgnsrekt/meetnotes/internal/notesapi"
	"github.com/dgnsrekt/meetnotes/internal/prefs"
	"github.com/dgnsrekt/meetnotes/internal/recording"
)

type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

func (f *Formatter) Uploading(name string, size int) {
	fmt.Fprintf(f.w, "📤 Uploading %s (%s)...\n", name, formatBytes(int64(size)))
}

func (f *Formatter) Generating(url string) {
	fmt.Fprintf(f.w, "🤖 Generating notes for %s...\n", url)
}

func (f *Formatter) NoteListHeader() {
	fmt.Fprintf(f.w, "📁 Notes:\n\n")
}

func (f *Formatter) NoteListItem(n notesapi.Note) {
	title := n.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(f.w, "  %s  %-7s %s  [%s]\n", formatTimestamp(n.Timestamp), n.Type, title, n.ID)
}

// Note prints a note's header followed by its content verbatim.
func (f *Formatter) Note(n notesapi.Note) {
	fmt.Fprintf(f.w, "📝 %s\n", n.Title)
	fmt.Fprintf(f.w, "   %s · %s · %s\n\n", n.Type, formatTimestamp(n.Timestamp), n.ID)
	content := strings.TrimRight(n.Content, "\n")
	if content != "" {
		fmt.Fprintf(f.w, "%s\n", content)
	}
}

func (f *Formatter) RecordingStatus(st recording.Status, now time.Time) {
	if !st.Recording() {
		line := fmt.Sprintf("⏸️  %s: idle", st.TabID)
		if st.LastSize > 0 {
			line += fmt.Sprintf(" (last recording %s)", formatBytes(st.LastSize))
		}
		fmt.Fprintln(f.w, line)
		return
	}
	fmt.Fprintf(f.w, "🔴 %s: recording via %s for %s, %d chunks, %s\n",
		st.TabID, st.Source, formatDuration(now.Sub(st.StartedAt)), st.Chunks, formatBytes(st.Bytes))
}

func (f *Formatter) RecordingStopped(tabID, filename string, size int64) {
	fmt.Fprintf(f.w, "⏹️  Recording stopped in %s: %s (%s)\n", tabID, filename, formatBytes(size))
}

func (f *Formatter) Preferences(p prefs.Preferences) {
	fmt.Fprintf(f.w, "  detail_level: %s\n", p.DetailLevel)
	fmt.Fprintf(f.w, "  format_type:  %s\n", p.FormatType)
	fmt.Fprintf(f.w, "  auto_upload:  %t\n", p.AutoUpload)
	if p.LastArtifactSize > 0 {
		fmt.Fprintf(f.w, "  last_artifact_size: %s\n", formatBytes(p.LastArtifactSize))
	}
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	if ok {
		fmt.Fprintf(f.w, "  ✅ %s: %s\n", name, detail)
	} else {
		fmt.Fprintf(f.w, "  ❌ %s: %s\n", name, detail)
	}
}

// formatTimestamp trims backend isoformat timestamps to minute precision.
func formatTimestamp(ts string) string {
	ts = strings.Replace(ts, "T", " ", 1)
	if len(ts) > 16 {
		return ts[:16]
	}
	return ts
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
