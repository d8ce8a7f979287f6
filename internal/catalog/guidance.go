package catalog

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/harrison/bshape/internal/models"
)

// Advice is the guidance shown alongside one risk level.
type Advice struct {
	Level       models.RiskLevel
	Title       string
	Subtitle    string
	Description string
	Actions     []string
}

// Guidance maps each risk level to its advice.
type Guidance map[models.RiskLevel]Advice

// For returns the advice for a level.
func (g Guidance) For(level models.RiskLevel) (Advice, bool) {
	a, ok := g[level]
	return a, ok
}

// ParseGuidance reads a guidance document.
//
// Each "## <level>" heading opens a level. Within it the first "###" heading is
// the title, the first paragraph is the subtitle, the second paragraph is the
// description, and list items are the recommended actions. Content before the
// first level heading is ignored.
func ParseGuidance(source []byte) (Guidance, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	g := make(Guidance)
	var current *Advice
	paragraphs := 0

	flush := func() error {
		if current == nil {
			return nil
		}
		if current.Title == "" {
			return fmt.Errorf("level %s has no title", current.Level)
		}
		g[current.Level] = *current
		return nil
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			heading := nodeText(node, source)
			switch node.Level {
			case 2:
				if err := flush(); err != nil {
					return nil, err
				}
				level := models.RiskLevel(strings.ToLower(heading))
				if !level.Valid() {
					return nil, fmt.Errorf("unknown risk level %q", heading)
				}
				if _, dup := g[level]; dup {
					return nil, fmt.Errorf("risk level %s defined twice", level)
				}
				current = &Advice{Level: level}
				paragraphs = 0
			case 3:
				if current != nil && current.Title == "" {
					current.Title = heading
				}
			}
		case *ast.Paragraph:
			if current == nil {
				continue
			}
			switch paragraphs {
			case 0:
				current.Subtitle = nodeText(node, source)
			case 1:
				current.Description = nodeText(node, source)
			}
			paragraphs++
		case *ast.List:
			if current == nil {
				continue
			}
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				if action := nodeText(item, source); action != "" {
					current.Actions = append(current.Actions, action)
				}
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return g, nil
}

// nodeText collects the plain text below a node, joining soft line breaks with a space.
func nodeText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}
