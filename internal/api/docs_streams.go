package api

const streamDocsHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Event &amp; Audio Streams - Meet Notes Recorder</title>
  <style>
    *, *::before, *::after { box-sizing: border-box; }

    body {
      margin: 0;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", sans-serif;
      font-size: 14px;
      line-height: 1.65;
      background: #0d1117;
      color: #c9d1d9;
    }

    a { color: #58a6ff; text-decoration: none; }
    a:hover { text-decoration: underline; }

    nav {
      background: #161b22;
      border-bottom: 1px solid #30363d;
      padding: 0 24px;
      height: 48px;
      display: flex;
      align-items: center;
      gap: 24px;
    }
    nav .brand { font-weight: 600; font-size: 15px; color: #e6edf3; }
    nav .sep { color: #484f58; }
    nav .current { color: #e6edf3; font-weight: 500; }

    main { max-width: 900px; margin: 0 auto; padding: 24px 16px 64px; }
    h1 { color: #e6edf3; font-size: 24px; margin-top: 8px; }
    h2 { color: #e6edf3; font-size: 18px; border-bottom: 1px solid #21262d; padding-bottom: 6px; margin-top: 36px; }
    code { background: #161b22; border: 1px solid #30363d; border-radius: 4px; padding: 1px 5px; font-size: 13px; }
    pre { background: #161b22; border: 1px solid #30363d; border-radius: 6px; padding: 12px 16px; overflow-x: auto; }
    pre code { border: none; padding: 0; }
    table { border-collapse: collapse; width: 100%; margin: 12px 0; }
    th, td { border: 1px solid #30363d; padding: 6px 10px; text-align: left; vertical-align: top; }
    th { background: #161b22; color: #e6edf3; }
  </style>
</head>
<body>
  <nav>
    <span class="brand">Meet Notes Recorder</span>
    <span class="sep">/</span>
    <span class="current">Event &amp; Audio Streams</span>
    <a href="/docs">← REST API</a>
  </nav>
  <main>
    <h1>Event &amp; Audio Streams</h1>
    <p>Two endpoints are not described by the OpenAPI document: the server-sent
    event feed of recorder notifications and the WebSocket a browser page uses to
    stream MediaRecorder chunks into the daemon.</p>

    <h2>GET /api/v1/events</h2>
    <p>Server-sent events. Each event name is the action; the data line is the
    JSON message. Delivery is best effort: a slow client has events dropped.</p>
    <table>
      <tr><th>Query</th><th>Meaning</th></tr>
      <tr><td><code>actions</code></td><td>Comma-separated action filter, e.g. <code>uploadComplete,uploadError</code></td></tr>
      <tr><td><code>tab_id</code></td><td>Only events for this tab</td></tr>
    </table>
    <table>
      <tr><th>Action</th><th>Payload</th></tr>
      <tr><td><code>recordingStarted</code></td><td><code>session_id</code>, <code>source</code></td></tr>
      <tr><td><code>recordingStopped</code></td><td><code>session_id</code>, <code>chunks</code></td></tr>
      <tr><td><code>recordingError</code></td><td><code>error</code></td></tr>
      <tr><td><code>recordingComplete</code></td><td><code>size</code>, <code>filename</code>, <code>artifact_id</code> (auto upload off)</td></tr>
      <tr><td><code>uploadStarted</code></td><td><code>size</code>, <code>artifact_id</code></td></tr>
      <tr><td><code>uploadComplete</code></td><td><code>note_id</code>, <code>title</code>, <code>note</code></td></tr>
      <tr><td><code>uploadError</code></td><td><code>error</code></td></tr>
    </table>
    <pre><code>curl -N 'http://127.0.0.1:8190/api/v1/events?actions=uploadComplete,uploadError'

event: uploadComplete
data: {"action":"uploadComplete","tab_id":"8F3A...","payload":{"note_id":"..."},"time":"..."}</code></pre>

    <h2>GET /api/v1/tabs/{tab_id}/stream</h2>
    <p>WebSocket ingest for the <code>stream</code> audio source. One connection
    per tab; a new connection replaces the old one.</p>
    <table>
      <tr><th>Direction</th><th>Frame</th><th>Meaning</th></tr>
      <tr><td>client → daemon</td><td>text <code>{"mime_type":"audio/webm;codecs=opus"}</code></td><td>Optional hello naming the encoded type</td></tr>
      <tr><td>daemon → client</td><td>text <code>{"action":"startRecording"}</code></td><td>Start the MediaRecorder</td></tr>
      <tr><td>client → daemon</td><td>binary</td><td>One encoded chunk; only kept while a recording is active</td></tr>
      <tr><td>daemon → client</td><td>text <code>{"action":"stopRecording"}</code></td><td>Stop the MediaRecorder; later chunks are discarded</td></tr>
    </table>
    <p>Starting a recording with source <code>stream</code> before the page has
    connected fails with 503; the tab watcher retries once after a second.</p>
  </main>
</body>
</html>`
