package docs

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Flatten turns an HTML documentation page into markdown-like text that the
// document patterns understand: headings become # lines, code is wrapped in
// backticks and table rows become | rows.
func Flatten(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("script, style, noscript, svg, template").Remove()

	for level := 1; level <= 6; level++ {
		marks := strings.Repeat("#", level)
		doc.Find(fmt.Sprintf("h%d", level)).Each(func(_ int, s *goquery.Selection) {
			s.SetText("\n" + marks + " " + collapse(s.Text()) + "\n")
		})
	}
	doc.Find("pre").Each(func(_ int, s *goquery.Selection) {
		s.SetText("\n```\n" + strings.Trim(s.Text(), "\n") + "\n```\n")
	})
	doc.Find("code").Each(func(_ int, s *goquery.Selection) {
		s.SetText("`" + s.Text() + "`")
	})
	doc.Find("tr").Each(func(_ int, s *goquery.Selection) {
		var cells []string
		s.Find("th, td").Each(func(_ int, c *goquery.Selection) {
			cells = append(cells, collapse(c.Text()))
		})
		s.SetText("\n| " + strings.Join(cells, " | ") + " |")
	})
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("\n- ")
	})
	doc.Find("p, div, br, dt, dd, table, ul, ol, section, article").Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml("\n")
	})

	return tidy(doc.Text()), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// tidy trims every line and squeezes runs of blank lines, leaving fenced
// code untouched.
func tidy(s string) string {
	var (
		b      strings.Builder
		blank  bool
		fenced bool
	)
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "```" {
			fenced = !fenced
		}
		if !fenced {
			line = strings.TrimSpace(line)
			if line != "```" {
				line = collapse(line)
			}
		}
		if line == "" {
			if !blank && b.Len() > 0 {
				b.WriteByte('\n')
			}
			blank = true
			continue
		}
		blank = false
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
