package loader

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/xxxsen/bagbot/internal/model"
)

const (
	defaultCategory = "general"
	faqPrefix       = "FAQ:"
)

// ParseMarkdown turns a markdown policy file into documents. Every level 2
// heading starts a document; the nearest level 1 heading is its category.
// Headings written as "FAQ: question" produce faq documents.
func ParseMarkdown(data []byte) []model.PolicyDocument {
	reader := text.NewReader(data)
	root := goldmark.New().Parser().Parse(reader)
	source := reader.Source()

	var (
		docs     []model.PolicyDocument
		category = defaultCategory
		current  *model.PolicyDocument
		parts    []string
	)
	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.Join(parts, "\n")
		if current.Text != "" {
			docs = append(docs, *current)
		}
		current = nil
		parts = nil
	}

	for node := root.FirstChild(); node != nil; node = node.NextSibling() {
		if h, ok := node.(*ast.Heading); ok && h.Level <= 2 {
			heading := strings.TrimSpace(string(h.Text(source)))
			flush()
			if h.Level == 1 {
				category = strings.ToLower(heading)
				continue
			}
			doc := model.PolicyDocument{Title: heading, Category: category, Type: model.PolicyTypePolicy}
			if q, ok := strings.CutPrefix(heading, faqPrefix); ok {
				doc.Title = strings.TrimSpace(q)
				doc.Type = model.PolicyTypeFAQ
			}
			doc.ID = slugify(category + " " + doc.Title)
			current = &doc
			continue
		}
		if current == nil {
			continue
		}
		if txt := blockText(node, source); txt != "" {
			parts = append(parts, txt)
		}
	}
	flush()
	return docs
}

func blockText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		switch v := node.(type) {
		case *ast.Text:
			if entering {
				sb.Write(v.Segment.Value(source))
				if v.SoftLineBreak() || v.HardLineBreak() {
					sb.WriteByte('\n')
				}
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := v.Lines()
				for i := 0; i < lines.Len(); i++ {
					line := lines.At(i)
					sb.Write(line.Value(source))
				}
				return ast.WalkSkipChildren, nil
			}
		case *ast.ListItem:
			if entering {
				sb.WriteString("- ")
			}
		case *ast.Heading:
			if !entering {
				sb.WriteByte('\n')
			}
		case *ast.Paragraph, *ast.TextBlock:
			if !entering {
				sb.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	lines := strings.Split(sb.String(), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimRight(line, " \t"); strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
