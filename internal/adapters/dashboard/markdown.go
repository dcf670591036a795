package dashboard

import (
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// notesRenderer converts record notes to HTML. Bare URLs become links and
// external links open in a new tab.
var notesRenderer = goldmark.New(
	goldmark.WithExtensions(extension.Linkify),
	goldmark.WithExtensions(&externalLinks{}),
)

// renderNotes renders a record's notes cell as markdown. A render failure
// falls back to the escaped raw text.
func renderNotes(notes string) template.HTML {
	if strings.TrimSpace(notes) == "" {
		return ""
	}
	var b strings.Builder
	if err := notesRenderer.Convert([]byte(notes), &b); err != nil {
		return template.HTML(template.HTMLEscapeString(notes))
	}
	return template.HTML(b.String())
}

type externalLinks struct{}

func (e *externalLinks) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(&externalLinkTransformer{}, 100),
	))
}

type externalLinkTransformer struct{}

func (t *externalLinkTransformer) Transform(node *ast.Document, reader text.Reader, _ parser.Context) {
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch link := n.(type) {
		case *ast.Link:
			if isExternalLink(link.Destination) {
				link.SetAttributeString("target", []byte("_blank"))
				link.SetAttributeString("rel", []byte("noopener noreferrer"))
			}
		case *ast.AutoLink:
			if link.AutoLinkType == ast.AutoLinkURL && isExternalLink(link.URL(reader.Source())) {
				link.SetAttributeString("target", []byte("_blank"))
				link.SetAttributeString("rel", []byte("noopener noreferrer"))
			}
		}
		return ast.WalkContinue, nil
	})
}

func isExternalLink(dest []byte) bool {
	s := strings.ToLower(strings.TrimSpace(string(dest)))
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "//")
}
