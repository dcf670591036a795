package dashboard

import (
	"html/template"
	"net/http"
	"time"

	"policyhub/internal/core"
)

var (
	pageTemplate  = template.Must(template.New("dashboard").Parse(dashboardHTML))
	errorTemplate = template.Must(template.New("error").Parse(errorHTML))
)

type facetOption struct {
	Value    string
	Label    string
	Selected bool
}

type pageRecord struct {
	Title      string
	Category   string
	Owner      string
	DriveLink  string
	Tags       []string
	NotesHTML  template.HTML
	Updated    string // card display form
	UpdatedRaw string // RFC3339 for the table
	SourceName string
}

type pageModel struct {
	Keyword     string
	Sort        string
	Categories  []facetOption
	Tags        []facetOption
	Sources     []facetOption
	Records     []pageRecord
	Filtered    int
	Total       int
	MultiSource bool
	Warnings    []core.SourceWarning
	FetchedAt   string
	QueryString string
}

type errorModel struct {
	Message string
}

// buildPage shapes a filtered view for the dashboard template. rawQuery is
// the caller's query string, carried so refresh and export keep the filters.
func buildPage(view *core.View, rawQuery string) pageModel {
	model := pageModel{
		Keyword:     view.Query.Keyword,
		Sort:        string(view.Query.Sort),
		Filtered:    view.Filtered,
		Total:       view.Total,
		MultiSource: view.MultiSource,
		Warnings:    view.Warnings,
		FetchedAt:   view.FetchedAt.UTC().Format("2006-01-02 15:04 MST"),
		QueryString: rawQuery,
	}

	selected := toLookup(view.Query.Categories)
	for _, c := range view.Facets.Categories {
		model.Categories = append(model.Categories, facetOption{Value: c, Label: c, Selected: selected[c]})
	}
	selected = toLookup(view.Query.Tags)
	for _, tag := range view.Facets.Tags {
		model.Tags = append(model.Tags, facetOption{Value: tag, Label: tag, Selected: selected[tag]})
	}
	selected = toLookup(view.Query.Sources)
	for _, src := range view.Facets.Sources {
		label := src.Name
		if label == "" {
			label = src.ID
		}
		model.Sources = append(model.Sources, facetOption{Value: label, Label: label, Selected: selected[label]})
	}

	for _, rec := range view.Records {
		model.Records = append(model.Records, pageRecord{
			Title:      rec.Title,
			Category:   rec.Category,
			Owner:      rec.Owner,
			DriveLink:  rec.DriveLink,
			Tags:       rec.Tags,
			NotesHTML:  renderNotes(rec.Notes),
			Updated:    displayDate(rec.UpdatedAt),
			UpdatedRaw: core.FormatTimestamp(rec.UpdatedAt),
			SourceName: rec.SourceName,
		})
	}
	return model
}

func toLookup(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}

func displayDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("Jan 2, 2006")
}

func renderIndex(w http.ResponseWriter, model pageModel) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = pageTemplate.Execute(w, model)
}

func renderErrorPage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = errorTemplate.Execute(w, errorModel{Message: message})
}

const dashboardHTML = `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Policy Hub</title>
    <link rel="stylesheet" href="/static/app.css" />
  </head>
  <body>
    <main class="layout">
      <aside class="sidebar">
        <h1 class="title">Policy Hub</h1>
        <form class="filters" method="get" action="/">
          <label class="label" for="q">Search</label>
          <input class="input" type="text" id="q" name="q" value="{{.Keyword}}" placeholder="keyword" />

          {{if .Categories}}
          <fieldset class="facet">
            <legend class="label">Category</legend>
            {{range .Categories}}
            <label class="check"><input type="checkbox" name="category" value="{{.Value}}"{{if .Selected}} checked{{end}} /> {{.Label}}</label>
            {{end}}
          </fieldset>
          {{end}}

          {{if .Tags}}
          <fieldset class="facet">
            <legend class="label">Tags</legend>
            {{range .Tags}}
            <label class="check"><input type="checkbox" name="tag" value="{{.Value}}"{{if .Selected}} checked{{end}} /> {{.Label}}</label>
            {{end}}
          </fieldset>
          {{end}}

          {{if .MultiSource}}
          <fieldset class="facet">
            <legend class="label">Source</legend>
            {{range .Sources}}
            <label class="check"><input type="checkbox" name="source" value="{{.Value}}"{{if .Selected}} checked{{end}} /> {{.Label}}</label>
            {{end}}
          </fieldset>
          {{end}}

          <label class="label" for="sort">Sort</label>
          <select class="input" id="sort" name="sort">
            <option value="updated_desc"{{if eq .Sort "updated_desc"}} selected{{end}}>Recently updated</option>
            <option value="title_asc"{{if eq .Sort "title_asc"}} selected{{end}}>Title A-Z</option>
          </select>

          <button class="button" type="submit">Apply</button>
        </form>

        <form method="post" action="/refresh{{if .QueryString}}?{{.QueryString}}{{end}}">
          <button class="button secondary" type="submit">Refresh data</button>
        </form>
        <a class="button secondary" href="/export.csv{{if .QueryString}}?{{.QueryString}}{{end}}">Download CSV</a>
        <div class="meta">Fetched {{.FetchedAt}}</div>
      </aside>

      <section class="content">
        {{if .Warnings}}
        <div class="banner">
          {{range .Warnings}}<div>Source {{if .Name}}{{.Name}}{{else}}{{.SourceID}}{{end}} was skipped: {{.Reason}}</div>{{end}}
        </div>
        {{end}}

        <h2 class="count">{{.Filtered}} of {{.Total}} items</h2>

        {{if .Records}}
        <ul class="cards">
          {{range .Records}}
          <li class="card">
            <div class="cardHead">
              {{if .DriveLink}}<a class="cardTitle" href="{{.DriveLink}}" target="_blank" rel="noopener noreferrer">{{if .Title}}{{.Title}}{{else}}(untitled){{end}}</a>
              {{else}}<span class="cardTitle">{{if .Title}}{{.Title}}{{else}}(untitled){{end}}</span>{{end}}
              {{if .Category}}<span class="badge">{{.Category}}</span>{{end}}
            </div>
            <div class="cardMeta">
              {{if .Owner}}<span>{{.Owner}}</span>{{end}}
              {{if .Updated}}<span>{{.Updated}}</span>{{end}}
              {{if .SourceName}}<span>{{.SourceName}}</span>{{end}}
            </div>
            {{if .Tags}}
            <div class="chips">{{range .Tags}}<span class="chip">{{.}}</span>{{end}}</div>
            {{end}}
            {{if .NotesHTML}}<div class="notes">{{.NotesHTML}}</div>{{end}}
          </li>
          {{end}}
        </ul>

        <h3 class="tableTitle">Table</h3>
        <table class="table">
          <thead>
            <tr>
              <th>Title</th><th>Category</th><th>Owner</th><th>Tags</th><th>Updated</th>{{if .MultiSource}}<th>Source</th>{{end}}
            </tr>
          </thead>
          <tbody>
            {{range .Records}}
            <tr>
              <td>{{.Title}}</td><td>{{.Category}}</td><td>{{.Owner}}</td>
              <td>{{range $i, $t := .Tags}}{{if $i}}; {{end}}{{$t}}{{end}}</td>
              <td class="mono">{{.UpdatedRaw}}</td>
              {{if $.MultiSource}}<td>{{.SourceName}}</td>{{end}}
            </tr>
            {{end}}
          </tbody>
        </table>
        {{else}}
        <div class="empty">No items match the current filters.</div>
        {{end}}
      </section>
    </main>
  </body>
</html>
`

const errorHTML = `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>Policy Hub</title>
    <link rel="stylesheet" href="/static/app.css" />
  </head>
  <body>
    <main class="layout">
      <section class="content">
        <h1 class="title">Policy Hub</h1>
        <div class="banner">{{.Message}}</div>
      </section>
    </main>
  </body>
</html>
`

const appCSS = `
:root{
  --bg: #f6f7f9;
  --panel: #ffffff;
  --text: #1f2430;
  --muted: #6b7280;
  --accent: #2563eb;
  --border: #e5e7eb;
  --warn-bg: #fef3c7;
  --warn-border: #f59e0b;
}
*{ box-sizing: border-box; }
body{ margin: 0; background: var(--bg); color: var(--text);
  font: 15px/1.5 system-ui, -apple-system, "Segoe UI", sans-serif; }
.layout{ display: flex; gap: 24px; max-width: 1200px; margin: 0 auto; padding: 24px; }
.sidebar{ flex: 0 0 260px; display: flex; flex-direction: column; gap: 12px; }
.content{ flex: 1; min-width: 0; }
.title{ font-size: 20px; margin: 0 0 8px; }
.label{ display: block; font-size: 12px; color: var(--muted);
  text-transform: uppercase; letter-spacing: 0.04em; margin-top: 10px; }
.input{ width: 100%; padding: 6px 8px; border: 1px solid var(--border);
  border-radius: 6px; background: var(--panel); }
.facet{ border: 1px solid var(--border); border-radius: 6px;
  padding: 8px; margin-top: 8px; max-height: 180px; overflow-y: auto; }
.check{ display: block; font-size: 14px; }
.button{ display: inline-block; margin-top: 12px; padding: 8px 12px;
  border: 0; border-radius: 6px; background: var(--accent); color: #fff;
  font-size: 14px; cursor: pointer; text-align: center; text-decoration: none; }
.button.secondary{ background: var(--panel); color: var(--text);
  border: 1px solid var(--border); }
.meta{ font-size: 12px; color: var(--muted); margin-top: 8px; }
.count{ font-size: 16px; margin: 0 0 12px; }
.banner{ background: var(--warn-bg); border: 1px solid var(--warn-border);
  border-radius: 6px; padding: 10px 12px; margin-bottom: 16px; font-size: 14px; }
.cards{ list-style: none; margin: 0; padding: 0; display: flex;
  flex-direction: column; gap: 12px; }
.card{ background: var(--panel); border: 1px solid var(--border);
  border-radius: 8px; padding: 14px 16px; }
.cardHead{ display: flex; align-items: baseline; gap: 8px; }
.cardTitle{ font-size: 16px; font-weight: 600; color: var(--accent);
  text-decoration: none; }
span.cardTitle{ color: var(--text); }
.cardMeta{ display: flex; gap: 12px; font-size: 13px; color: var(--muted);
  margin-top: 2px; }
.badge{ font-size: 12px; background: var(--bg); border: 1px solid var(--border);
  border-radius: 10px; padding: 1px 8px; color: var(--muted); }
.chips{ margin-top: 6px; display: flex; flex-wrap: wrap; gap: 6px; }
.chip{ font-size: 12px; background: #eef2ff; color: #3730a3;
  border-radius: 10px; padding: 1px 8px; }
.notes{ margin-top: 8px; font-size: 14px; }
.notes p{ margin: 4px 0; }
.tableTitle{ margin: 24px 0 8px; font-size: 15px; }
.table{ width: 100%; border-collapse: collapse; background: var(--panel);
  border: 1px solid var(--border); border-radius: 8px; font-size: 14px; }
.table th, .table td{ text-align: left; padding: 8px 10px;
  border-bottom: 1px solid var(--border); }
.table th{ font-size: 12px; color: var(--muted); text-transform: uppercase; }
.mono{ font-family: ui-monospace, SFMono-Regular, Menlo, monospace;
  font-size: 13px; }
.empty{ color: var(--muted); padding: 24px 0; }
`
