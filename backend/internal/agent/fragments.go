package agent

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// annotateFragments wraps every paragraph of an answer in an addressable
// <span id="frag_N"> tag and returns the annotated answer together with
// the fragment list the UI uses for text-selection follow-ups.
func annotateFragments(answer string) (string, []Fragment) {
	paragraphs := strings.Split(answer, "\n\n")
	annotated := make([]string, 0, len(paragraphs))

	n := 0
	for _, p := range paragraphs {
		if strings.TrimSpace(p) == "" {
			annotated = append(annotated, p)
			continue
		}
		n++
		annotated = append(annotated, fmt.Sprintf(`<span id="frag_%d">%s</span>`, n, p))
	}

	html := strings.Join(annotated, "\n\n")
	return html, parseFragments(html)
}

// parseFragments reads the span markup back out of an annotated answer
func parseFragments(html string) []Fragment {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return []Fragment{}
	}

	fragments := []Fragment{}
	doc.Find("span[id]").Each(func(_ int, sel *goquery.Selection) {
		id, _ := sel.Attr("id")
		if !strings.HasPrefix(id, "frag_") {
			return
		}
		fragments = append(fragments, Fragment{
			ID:      id,
			Type:    "text",
			Content: sel.Text(),
		})
	})
	return fragments
}
