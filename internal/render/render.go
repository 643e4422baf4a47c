// Package render turns raw answer payloads into ordered display models.
//
// Rendering is a pure function of its input: the same payload always
// produces the same model, and the input is never mutated.
package render

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/docquery-ai/document-assistant/internal/model"
)

// Section titles recognized in structured answers. Anything else found
// in marker position lands in the Details catch-all.
const (
	SectionMainAnswer = "Main Answer"
	SectionKeyPoints  = "Key Points"
	SectionDetails    = "Details"
	SectionSummary    = "Summary"
)

var sectionOrder = []string{SectionMainAnswer, SectionKeyPoints, SectionDetails, SectionSummary}

// markerRe matches a bold section header like "**Key Points:**".
var markerRe = regexp.MustCompile(`\*\*([A-Za-z][A-Za-z ]*?):\*\*`)

// Section is one collapsible block of a structured answer.
type Section struct {
	Title string
	Body  string
}

// CitationView is a citation prepared for display: scores grouped and
// formatted, page numbers in retrieval order.
type CitationView struct {
	Source      string
	Pages       []int
	Scores      []string
	Keywords    []string
	Excerpt     string
	HasRelScore bool
	Relevance   float64
}

// Display is the fully prepared representation of one answer.
type Display struct {
	Structured bool
	Sections   []Section
	Paragraphs []string
	Citations  []CitationView
	FollowUps  []string
	Relevant   bool
}

// Render builds the display model for an answer payload.
func Render(resp model.QueryResponse) Display {
	d := Display{
		Relevant:  resp.HasRelevantInfo,
		FollowUps: append([]string(nil), resp.FollowUpQuestions...),
	}

	sections, ok := splitSections(resp.Answer)
	if ok {
		d.Structured = true
		d.Sections = sections
	} else {
		d.Paragraphs = splitParagraphs(resp.Answer)
	}

	d.Citations = renderCitations(resp.Citations)
	return d
}

// renderCitations sorts a copy of the citations stable-descending by
// relevance score, treating a missing score as 0, then formats each.
func renderCitations(citations []model.Citation) []CitationView {
	if len(citations) == 0 {
		return nil
	}

	sorted := append([]model.Citation(nil), citations...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RelevanceScore > sorted[j].RelevanceScore
	})

	views := make([]CitationView, len(sorted))
	for i, c := range sorted {
		views[i] = CitationView{
			Source:      c.SourcePDF,
			Pages:       pageNumbers(c),
			Scores:      formatScores(c),
			Keywords:    append([]string(nil), c.MatchedKeywords...),
			Excerpt:     c.ChunkText,
			HasRelScore: c.RelevanceScore > 0,
			Relevance:   c.RelevanceScore,
		}
	}
	return views
}

func pageNumbers(c model.Citation) []int {
	if len(c.PageNumbers) > 0 {
		return append([]int(nil), c.PageNumbers...)
	}
	if c.PageNo > 0 {
		return []int{c.PageNo}
	}
	return nil
}

// formatScores groups the independent score fields into percentage
// badges, skipping any the server did not send.
func formatScores(c model.Citation) []string {
	var scores []string
	if c.RelevanceScore > 0 {
		scores = append(scores, fmt.Sprintf("relevance %.0f%%", c.RelevanceScore*100))
	}
	if c.SimilarityScore > 0 {
		scores = append(scores, fmt.Sprintf("similarity %.0f%%", c.SimilarityScore*100))
	}
	if c.TFIDFScore > 0 {
		scores = append(scores, fmt.Sprintf("keyword %.0f%%", c.TFIDFScore*100))
	}
	if c.KeywordCount > 0 {
		scores = append(scores, fmt.Sprintf("%d keywords", c.KeywordCount))
	}
	return scores
}

// splitSections parses structured markers out of an answer. The second
// return is false when the answer carries no markers at all.
func splitSections(answer string) ([]Section, bool) {
	matches := markerRe.FindAllStringSubmatchIndex(answer, -1)
	if len(matches) == 0 {
		return nil, false
	}

	bodies := make(map[string][]string)
	appendBody := func(title, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		bodies[title] = append(bodies[title], text)
	}

	// Text before the first marker belongs to the main answer.
	appendBody(SectionMainAnswer, answer[:matches[0][0]])

	for i, m := range matches {
		title, known := canonicalTitle(answer[m[2]:m[3]])
		end := len(answer)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := answer[m[1]:end]
		if !known {
			// Keep the raw marker so its content stays labelled
			// inside the catch-all.
			body = answer[m[0]:m[1]] + "\n" + strings.TrimSpace(body)
		}
		appendBody(title, body)
	}

	var sections []Section
	for _, title := range sectionOrder {
		if parts, ok := bodies[title]; ok {
			sections = append(sections, Section{
				Title: title,
				Body:  strings.Join(parts, "\n\n"),
			})
		}
	}
	return sections, true
}

// canonicalTitle maps a marker to its section. Unrecognized markers go
// to the Details catch-all; the second return reports whether the
// marker was one of the known set.
func canonicalTitle(marker string) (string, bool) {
	marker = strings.TrimSpace(marker)
	for _, title := range sectionOrder {
		if strings.EqualFold(marker, title) {
			return title, true
		}
	}
	return SectionDetails, false
}

// splitParagraphs is the lighter pass for unstructured answers: split
// on blank lines, trim, drop empties.
func splitParagraphs(answer string) []string {
	var paragraphs []string
	for _, block := range strings.Split(answer, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			paragraphs = append(paragraphs, block)
		}
	}
	return paragraphs
}
