// Package pages renders the public HTML shell: the landing page and the
// catch-all 404. Both are static apart from canonical-URL bits derived from
// the request, and are served with a long public cache lifetime.
package pages

import (
	"html/template"
	"log/slog"
	"net/http"
	"strings"
)

// cacheControl is the browser cache policy for page responses, 30 days.
const cacheControl = "public, max-age=2592000"

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="description" content="{{.MetaDescription}}">
<meta name="robots" content="{{.Robots}}">
<link rel="canonical" href="{{.CanonicalURL}}">
<title>{{.MetaTitle}}</title>
</head>
<body>
<main>
<h1>{{.Heading}}</h1>
<p>{{.Description}}</p>
</main>
</body>
</html>
`

// content carries everything the template needs for one render.
type content struct {
	MetaTitle       string
	MetaDescription string
	Robots          string
	Heading         string
	Description     template.HTML
	CanonicalURL    string
}

// Renderer serves the two public pages.
type Renderer struct {
	tmpl   *template.Template
	logger *slog.Logger
}

// NewRenderer parses the page template once, up front.
func NewRenderer(logger *slog.Logger) *Renderer {
	return &Renderer{
		tmpl:   template.Must(template.New("page").Parse(pageTemplate)),
		logger: logger.With("component", "pages"),
	}
}

// Home renders the landing page.
func (p *Renderer) Home(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusOK, content{
		MetaTitle:       "NotAPI",
		MetaDescription: "A simple multi-featured API",
		Robots:          "index,follow",
		Heading:         "NotAPI",
		Description: template.HTML(`A simple multi-featured API by ` +
			`<a href="https://github.com/notudope" title="GitHub @notudope">@notudope</a><br>` +
			`How to use <a href="https://github.com/notudope/NotAPI" title="GitHub NotAPI">&rarr; read here...</a>`),
	})
}

// NotFound renders the catch-all 404 page.
func (p *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusNotFound, content{
		MetaTitle:       "404 - NotAPI",
		MetaDescription: "Page not found",
		Robots:          "noindex",
		Heading:         "404",
		Description:     "Didn't find anything here!",
	})
}

func (p *Renderer) render(w http.ResponseWriter, r *http.Request, status int, c content) {
	c.CanonicalURL = canonicalURL(r)
	w.Header().Set("Content-Type", "text/html")
	w.Header().Set("Cache-Control", cacheControl)
	w.WriteHeader(status)
	if err := p.tmpl.Execute(w, c); err != nil {
		p.logger.Error("page render failed", "error", err)
	}
}

// canonicalURL rebuilds the request URL as published, always https and
// without trailing slashes.
func canonicalURL(r *http.Request) string {
	url := "https://" + r.Host + r.URL.Path
	return strings.ToLower(strings.TrimRight(url, "/"))
}
