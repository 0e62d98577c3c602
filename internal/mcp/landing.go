package mcp

import "net/http"

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Voice Agent</title>
<style>
  body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; background: #111827; color: #e5e7eb; max-width: 640px; margin: 4rem auto; padding: 0 1rem; }
  h1 { font-size: 1.5rem; }
  code, .endpoint { font-family: Menlo, monospace; color: #a5b4fc; }
  li { margin: 0.4rem 0; }
</style>
</head>
<body>
<h1>Voice Agent</h1>
<p>Retrieval and tool routing for transcribed voice requests.</p>
<ul>
  <li><a href="/health" class="endpoint">/health</a> store health</li>
  <li><span class="endpoint">/mcp</span> MCP Streamable HTTP</li>
  <li><span class="endpoint">POST /api/v1/route</span> route text to a tool</li>
  <li><span class="endpoint">POST /api/v1/voice</span> transcribe audio and route it</li>
  <li><span class="endpoint">POST /api/v1/search</span> semantic search</li>
  <li><span class="endpoint">POST /api/v1/ingest</span> ingest a document</li>
  <li><span class="endpoint">/api/v1/documents</span> and <span class="endpoint">/api/v1/groups</span> administration</li>
</ul>
</body>
</html>`

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(landingHTML))
	}
}
