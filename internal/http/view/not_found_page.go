package view

import (
	"bytes"
	"html/template"
)

// NotFoundPageData provides the dynamic fields for the qr-not-found template.
type NotFoundPageData struct {
	Token   string
	HomeURL string
}

var notFoundPageTmpl = template.Must(template.New("not_found_page").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<title>QR code not found</title>
	<style>
		:root {
			--bg: #090a0f;
			--card: rgba(255, 255, 255, 0.05);
			--border: rgba(255, 255, 255, 0.15);
			--text: #e7ecff;
			--muted: #a1acc5;
			--accent: #7dd3fc;
			font-family: "Inter", -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
		}
		* { box-sizing: border-box; }
		body {
			margin: 0;
			min-height: 100vh;
			display: flex;
			align-items: center;
			justify-content: center;
			background: radial-gradient(circle at 20% 20%, #111827, #030712 60%);
			color: var(--text);
		}
		.card {
			background: var(--card);
			border: 1px solid var(--border);
			border-radius: 18px;
			padding: 32px;
			width: min(520px, 92vw);
			box-shadow: 0 45px 100px rgba(0,0,0,0.35);
			backdrop-filter: blur(18px);
			text-align: center;
		}
		h1 {
			font-size: 1.5rem;
			margin-bottom: 6px;
		}
		p {
			color: var(--muted);
			margin-top: 0;
		}
		.token {
			margin: 24px 0;
			padding: 14px;
			border-radius: 14px;
			background: rgba(125, 211, 252, 0.07);
			border: 1px solid rgba(125, 211, 252, 0.25);
			font-family: monospace;
			word-break: break-all;
			color: var(--accent);
		}
		a.home {
			display: inline-block;
			margin-top: 8px;
			padding: 12px 22px;
			border-radius: 999px;
			background: var(--accent);
			color: #041321;
			font-weight: 600;
			text-decoration: none;
		}
	</style>
</head>
<body>
	<main class="card">
		<h1>This QR code leads nowhere</h1>
		<p>The code you scanned does not exist or has been deactivated by its owner.</p>
		{{if .Token}}<div class="token">{{.Token}}</div>{{end}}
		{{if .HomeURL}}<a class="home" href="{{.HomeURL}}">Go to homepage</a>{{end}}
	</main>
</body>
</html>
`))

// RenderNotFoundPage renders the public qr-not-found page.
func RenderNotFoundPage(data NotFoundPageData) (string, error) {
	var buf bytes.Buffer
	if err := notFoundPageTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
