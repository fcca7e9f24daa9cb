package capture

import (
	"context"
	"errors"
	"strings"
)

// Encoder mime types, in the order a browser recorder is probed.
const (
	MimeWebM     = "audio/webm"
	MimeWebMOpus = "audio/webm;codecs=opus"
	MimeOggOpus  = "audio/ogg;codecs=opus"
	MimeMP4      = "audio/mp4"
)

// ErrNotReady reports that the source has nothing to capture from yet,
// e.g. the page has not connected its audio stream.
var ErrNotReady = errors.New("capture source not ready")

// DeliverFunc receives one encoded chunk. The slice is owned by the callee.
type DeliverFunc func(chunk []byte)

// FailFunc receives an encoder or transport failure during capture.
type FailFunc func(err error)

// Capture is a live binding to one audio source plus its encoder.
type Capture interface {
	MimeType() string
	// Start begins emitting chunks. It must not block on the first chunk.
	Start(deliver DeliverFunc, fail FailFunc) error
	// Stop halts the capture. No chunk is delivered after Stop returns.
	Stop() error
}

// Source opens captures for a tab context.
type Source interface {
	Name() string
	Open(ctx context.Context, tabID string) (Capture, error)
}

// ExtensionFor maps a mime type to the file extension used for uploads
// and downloads.
func ExtensionFor(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "ogg"):
		return "ogg"
	case strings.Contains(mimeType, "mp4"):
		return "mp4"
	default:
		return "webm"
	}
}

// NormalizeMimeType returns mimeType when it is a supported encoder type,
// otherwise the default webm type.
func NormalizeMimeType(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case MimeWebM, MimeWebMOpus, MimeOggOpus, MimeMP4:
		return strings.ToLower(strings.TrimSpace(mimeType))
	default:
		return MimeWebM
	}
}
