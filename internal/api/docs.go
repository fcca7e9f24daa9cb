package api

import (
	"html/template"
	"io"

	"github.com/dgnsrekt/meetnotes/internal/events"
	"github.com/dgnsrekt/meetnotes/internal/messages"
	"github.com/dgnsrekt/meetnotes/internal/version"
)

// docsTemplate wraps the OpenAPI viewer with a panel for the message and
// event actions, which the generated schema only shows as bare enums.
var docsTemplate = template.Must(template.New("docs").Parse(`<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="referrer" content="same-origin" />
  <meta name="viewport" content="width=device-width, initial-scale=1, shrink-to-fit=no" />
  <title>Meet Notes Recorder API {{.Version}}</title>
  <link href="https://unpkg.com/@stoplight/elements@9.0.0/styles.min.css" rel="stylesheet" />
  <script src="https://unpkg.com/@stoplight/elements@9.0.0/web-components.min.js" crossorigin="anonymous"></script>
  <style>
    #actions {
      position: fixed;
      top: 12px;
      right: 16px;
      z-index: 9999;
      max-width: 260px;
      background: #161b22;
      border: 1px solid #30363d;
      border-radius: 6px;
      color: #c9d1d9;
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
      font-size: 12px;
      padding: 6px 12px;
    }
    #actions a { color: #58a6ff; text-decoration: none; font-weight: 500; }
    #actions summary { cursor: pointer; color: #e6edf3; }
    #actions code { font-size: 11px; }
    #actions ul { margin: 4px 0 8px; padding-left: 16px; }
  </style>
</head>
<body style="height: 100vh; margin: 0; position: relative;">
  <div id="actions">
    <a href="/docs/streams">Event &amp; Audio Stream Docs →</a>
    <details>
      <summary>Message actions</summary>
      <ul>{{range .Inbound}}<li><code>{{.}}</code></li>{{end}}</ul>
    </details>
    <details>
      <summary>Event actions</summary>
      <ul>{{range .Outbound}}<li><code>{{.}}</code></li>{{end}}</ul>
    </details>
  </div>
  <elements-api
    apiDescriptionUrl="/openapi.json"
    router="hash"
    layout="sidebar"
    tryItCredentialsPolicy="same-origin"
    darkMode
  />
</body>
</html>`))

var outboundActions = []string{
	events.ActionRecordingStarted,
	events.ActionRecordingStopped,
	events.ActionRecordingError,
	events.ActionRecordingComplete,
	events.ActionUploadStarted,
	events.ActionUploadComplete,
	events.ActionUploadError,
}

func writeDocs(w io.Writer) error {
	return docsTemplate.Execute(w, struct {
		Version  string
		Inbound  []string
		Outbound []string
	}{version.Version, messages.Actions, outboundActions})
}
