package notesapi

import (
	"fmt"
	"strings"
)

// DetailLevel controls how much the backend condenses the notes.
type DetailLevel string

const (
	DetailBrief    DetailLevel = "brief"
	DetailMedium   DetailLevel = "medium"
	DetailDetailed DetailLevel = "detailed"
)

// FormatType controls the layout of the generated notes.
type FormatType string

const (
	FormatBullet    FormatType = "bullet"
	FormatParagraph FormatType = "paragraph"
)

// Options are copied into each request; later changes do not affect
// uploads already in flight.
type Options struct {
	DetailLevel DetailLevel `json:"detail_level"`
	FormatType  FormatType  `json:"format_type"`
}

// DefaultOptions matches the backend's defaults.
func DefaultOptions() Options {
	return Options{DetailLevel: DetailMedium, FormatType: FormatBullet}
}

// ParseDetailLevel accepts the backend names plus low/high aliases.
func ParseDetailLevel(s string) (DetailLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "brief", "low":
		return DetailBrief, nil
	case "", "medium":
		return DetailMedium, nil
	case "detailed", "high":
		return DetailDetailed, nil
	}
	return "", fmt.Errorf("invalid detail level %q (want brief, medium or detailed)", s)
}

// ParseFormatType accepts the backend names plus the narrative alias.
func ParseFormatType(s string) (FormatType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bullet", "bullets":
		return FormatBullet, nil
	case "paragraph", "narrative":
		return FormatParagraph, nil
	}
	return "", fmt.Errorf("invalid format type %q (want bullet or paragraph)", s)
}

// ParseOptions validates both fields at once.
func ParseOptions(detail, format string) (Options, error) {
	d, err := ParseDetailLevel(detail)
	if err != nil {
		return Options{}, err
	}
	f, err := ParseFormatType(format)
	if err != nil {
		return Options{}, err
	}
	return Options{DetailLevel: d, FormatType: f}, nil
}

// normalized maps aliases and empty values to backend names. Unknown values
// are sent as given.
func (o Options) normalized() Options {
	if d, err := ParseDetailLevel(string(o.DetailLevel)); err == nil {
		o.DetailLevel = d
	}
	if f, err := ParseFormatType(string(o.FormatType)); err == nil {
		o.FormatType = f
	}
	return o
}
