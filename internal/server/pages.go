package server

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"
)

// These pages are written directly against templ.Component rather than
// generated from .templ sources: each is a templ.ComponentFunc closure
// that writes its fragment of HTML straight to the response, escaping any
// user-supplied text along the way.

func homePage(sessionID string, queryText string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<!doctype html>
<html>
<head>
  <meta charset="utf-8">
  <title>geoql</title>
  <script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@main/bundles/datastar.js"></script>
  <style>
    body { font-family: monospace; margin: 2rem; }
    textarea { width: 100%%; height: 8rem; }
    #results { margin-top: 1rem; white-space: pre-wrap; }
  </style>
</head>
<body data-signals="{sql: %q}">
  <h1>geoql query console</h1>
  <form data-on-submit="@post('/api/query/execute')">
    <textarea data-bind-sql></textarea><br>
    <select data-bind-format>
      <option value="xml">xml</option>
      <option value="json">json</option>
      <option value="csv">csv</option>
      <option value="html">html</option>
    </select>
    <button type="submit">run</button>
  </form>
  <div id="results"></div>
  <div id="session" hidden>%s</div>
</body>
</html>
`, queryText, html.EscapeString(sessionID))
		return err
	})
}

// resultsFragment renders an already-formatted query result body as a
// <pre> block for the datastar PatchElementTempl target "#results". The
// caller has already run the evaluator and formatted its records via
// pkg/output; this fragment just escapes and frames that text for HTML.
func resultsFragment(rendered string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<pre id="results">%s</pre>`, html.EscapeString(rendered))
		return err
	})
}

// errorFragment renders a standalone error banner.
func errorFragment(msg string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div id="results" class="error">%s</div>`, html.EscapeString(msg))
		return err
	})
}
