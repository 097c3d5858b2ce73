package decks

import (
	"fmt"
	"html/template"
	"strings"

	"docpress/internal/domain"
)

// deckTemplate lays a deck out one slide per printed page. Pagination is
// driven by the page-break rule; the PDF printer supplies the page size.
var deckTemplate = template.Must(template.New("deck").Funcs(template.FuncMap{
	"lines": func(s string) []string {
		if s == "" {
			return nil
		}
		return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  html, body { margin: 0; padding: 0; font-family: Helvetica, Arial, sans-serif; color: #1a1a2e; }
  .slide { page-break-after: always; padding: 48px 64px; box-sizing: border-box; }
  .slide:last-child { page-break-after: auto; }
  .slide h1 { font-size: 34px; margin: 0 0 24px 0; border-bottom: 2px solid #1a1a2e; padding-bottom: 12px; }
  .slide.layout-title { text-align: center; padding-top: 160px; }
  .slide.layout-title h1 { font-size: 48px; border-bottom: none; }
  .slide.layout-section h1 { font-size: 42px; margin-top: 96px; }
  .content p { font-size: 20px; line-height: 1.5; margin: 0 0 10px 0; }
  .notes { margin-top: 36px; padding: 12px 16px; background: #f4f4f8; border-left: 4px solid #8888aa; }
  .notes h2 { font-size: 14px; text-transform: uppercase; letter-spacing: 1px; margin: 0 0 6px 0; color: #666688; }
  .notes p { font-size: 14px; margin: 0 0 4px 0; color: #444466; }
  .position { position: absolute; right: 24px; bottom: 16px; font-size: 12px; color: #9999aa; }
</style>
</head>
<body>
{{range .Slides}}<section class="slide{{if .Layout}} layout-{{.Layout}}{{end}}">
  {{if .Title}}<h1>{{.Title}}</h1>{{end}}
  <div class="content">
  {{range lines .Content}}<p>{{.}}</p>
  {{end}}</div>
  {{if and $.IncludeNotes .Notes}}<div class="notes">
    <h2>Speaker notes</h2>
    {{range lines .Notes}}<p>{{.}}</p>
    {{end}}</div>{{end}}
  <div class="position">{{.Position}}</div>
</section>
{{end}}</body>
</html>
`))

type deckView struct {
	Title        string
	Slides       []domain.Slide
	IncludeNotes bool
}

// RenderHTML produces the printable HTML for a deck. Slide text is escaped
// by the template, so deck content cannot inject markup into the page.
func RenderHTML(d *domain.Deck, includeNotes bool) (string, error) {
	var b strings.Builder
	view := deckView{Title: d.Title, Slides: d.Slides, IncludeNotes: includeNotes}
	if err := deckTemplate.Execute(&b, view); err != nil {
		return "", fmt.Errorf("render deck %s: %w", d.ID, err)
	}
	return b.String(), nil
}
