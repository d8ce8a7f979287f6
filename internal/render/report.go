package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/harrison/bshape/internal/catalog"
	"github.com/harrison/bshape/internal/models"
	"github.com/harrison/bshape/internal/scoring"
)

// ReportMeta identifies a stored submission in a report.
type ReportMeta struct {
	SubmissionID string
	SubmittedAt  time.Time
}

var pageTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; color: #222; line-height: 1.5; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.5rem; text-align: left; vertical-align: top; }
h2 { border-bottom: 2px solid #a47; padding-bottom: 0.2rem; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// Markdown renders a completed session as a Markdown report.
func Markdown(cat *catalog.Catalog, sess *models.Session, meta ReportMeta) []byte {
	var b bytes.Buffer
	engine := scoring.New(cat)

	b.WriteString("# BSHAPE Assessment Report\n\n")
	if meta.SubmissionID != "" {
		fmt.Fprintf(&b, "- Reference: `%s`\n", meta.SubmissionID)
	}
	fmt.Fprintf(&b, "- Started: %s\n", formatTime(sess.StartedAt))
	if sess.CompletedAt != nil {
		fmt.Fprintf(&b, "- Completed: %s\n", formatTime(*sess.CompletedAt))
	}
	if !meta.SubmittedAt.IsZero() {
		fmt.Fprintf(&b, "- Submitted: %s\n", formatTime(meta.SubmittedAt))
	}

	b.WriteString("\n## Your situation\n\n")
	concerns := make([]string, 0, len(sess.RelationshipConcerns))
	for _, c := range sess.RelationshipConcerns {
		concerns = append(concerns, escapeMarkdown(c))
	}
	fmt.Fprintf(&b, "- Relationships of concern: %s\n", orNone(strings.Join(concerns, "; ")))
	fmt.Fprintf(&b, "- Living with: %s\n", orNone(escapeMarkdown(sess.LivingWith)))
	fmt.Fprintf(&b, "- Living preference: %s\n", orNone(escapeMarkdown(sess.LivingPreference)))
	if sess.LivingChangeDesc != "" {
		fmt.Fprintf(&b, "- Requested change: %s\n", escapeMarkdown(sess.LivingChangeDesc))
	}

	assessed := 0
	for _, sec := range models.SectionOrder {
		level, ok := sess.Results.Get(sec)
		if !ok {
			continue
		}
		assessed++

		fmt.Fprintf(&b, "\n## %s: %s", sec.Title(), strings.ToUpper(string(level)))
		if points, ok := sess.Scores.PartnerPoints(); ok && sec == models.SectionPartner {
			fmt.Fprintf(&b, " (%d points)", points)
		}
		b.WriteString("\n\n")

		if advice, ok := cat.Guidance.For(level); ok {
			fmt.Fprintf(&b, "### %s\n\n", advice.Title)
			if advice.Subtitle != "" {
				fmt.Fprintf(&b, "%s\n\n", advice.Subtitle)
			}
			if advice.Description != "" {
				fmt.Fprintf(&b, "%s\n\n", advice.Description)
			}
			for _, action := range advice.Actions {
				fmt.Fprintf(&b, "- %s\n", action)
			}
			if len(advice.Actions) > 0 {
				b.WriteString("\n")
			}
		}

		writeBreakdown(&b, sec, engine.Breakdown(sec, sess.AnswersOf(sec)))
	}

	if assessed == 0 {
		b.WriteString("\nNo relationship sections were assessed.\n")
	}
	return b.Bytes()
}

func writeBreakdown(b *bytes.Buffer, sec models.Section, lines []scoring.Line) {
	if sec == models.SectionPartner {
		b.WriteString("| Question | Answer | Points |\n|---|---|---|\n")
	} else {
		b.WriteString("| Question | Answer | Critical |\n|---|---|---|\n")
	}

	for _, line := range lines {
		answer := line.Answer
		if !line.Answered {
			answer = "(not answered)"
		}
		label := line.QuestionID + ". " + escapeTableCell(line.Text)
		if line.Sub {
			label = "&nbsp;&nbsp;" + label
		}

		var last string
		if sec == models.SectionPartner {
			last = fmt.Sprintf("%d / %d", line.Points, line.Max)
		} else if line.Critical {
			last = "yes"
		}
		fmt.Fprintf(b, "| %s | %s | %s |\n", label, escapeTableCell(answer), last)
	}
}

// HTML renders a completed session as a standalone HTML page.
func HTML(cat *catalog.Catalog, sess *models.Session, meta ReportMeta) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert(Markdown(cat, sess, meta), &body); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	title := "BSHAPE Assessment Report"
	if meta.SubmissionID != "" {
		title += " " + meta.SubmissionID
	}

	var page bytes.Buffer
	err := pageTemplate.Execute(&page, struct {
		Title string
		Body  template.HTML
	}{
		Title: title,
		// goldmark omits raw HTML from its input, so the body is safe to embed
		Body: template.HTML(body.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render report page: %w", err)
	}
	return page.Bytes(), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04 MST")
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"#", `\#`,
	"|", `\|`,
)

// escapeMarkdown neutralises markup in free text typed by the respondent.
func escapeMarkdown(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return markdownEscaper.Replace(s)
}

func escapeTableCell(s string) string {
	return strings.ReplaceAll(strings.Join(strings.Fields(s), " "), "|", `\|`)
}
