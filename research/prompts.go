package research

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/odr-dev/deepresearch/backend"
)

// Prompt templates and the parsers for their expected output shapes. The
// parsers are deliberately forgiving: model output that deviates from the
// requested shape degrades to fewer results, never to an error.

// PlanPrompt asks the model to decompose a query into at most n sub-queries,
// one per numbered line.
func PlanPrompt(query string, n int) string {
	return fmt.Sprintf(`You are a research planner. Decompose the research question below into at most %d focused search sub-queries that together cover the question.

Research question: %s

Respond with one sub-query per line, numbered like "1. ...". No other text.`, n, query)
}

var planLineRe = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*])\s*(.+)$`)

// ParsePlan extracts sub-queries from a numbered or bulleted list, keeping at
// most limit entries.
func ParsePlan(text string, limit int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		m := planLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		q := strings.TrimSpace(m[1])
		if q == "" {
			continue
		}
		out = append(out, q)
		if len(out) == limit {
			break
		}
	}
	return out
}

// ExtractPrompt asks the model to extract claims from retrieved documents,
// one bullet per claim with a relevance score.
func ExtractPrompt(subQuery string, docs []backend.SourceDocument) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `Extract the key factual claims from the sources below that answer: %s

Respond with one claim per line in this exact format:
- [source %%d] claim text (relevance: 0.0-1.0)

Sources:
`, subQuery)
	for i, d := range docs {
		fmt.Fprintf(&sb, "[source %d] %s — %s\n%s\n\n", i+1, d.Title, d.URL, d.Snippet)
	}
	return sb.String()
}

// ExtractedClaim is one parsed claim line.
type ExtractedClaim struct {
	// SourceIndex is the 1-based index into the document list, 0 if absent.
	SourceIndex int
	Claim       string
	Relevance   float64
}

var claimLineRe = regexp.MustCompile(`^\s*[-*]\s*(?:\[source\s+(\d+)\]\s*)?(.+?)\s*\(relevance:\s*([0-9.]+)\)\s*$`)

// ParseClaims extracts claims from bullet lines. Lines without a relevance
// score are skipped; scores are clamped to [0,1].
func ParseClaims(text string) []ExtractedClaim {
	var out []ExtractedClaim
	for _, line := range strings.Split(text, "\n") {
		m := claimLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		rel, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			continue
		}
		if rel < 0 {
			rel = 0
		}
		if rel > 1 {
			rel = 1
		}
		idx := 0
		if m[1] != "" {
			idx, _ = strconv.Atoi(m[1])
		}
		claim := strings.TrimSpace(m[2])
		if claim == "" {
			continue
		}
		out = append(out, ExtractedClaim{SourceIndex: idx, Claim: claim, Relevance: rel})
	}
	return out
}

// SectionPrompt asks the model to write one report section from a cluster of
// notes.
func SectionPrompt(query, heading string, notes []Note) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `Write one section of a research report answering: %s

Section heading: %s

Base the section strictly on these findings, citing nothing beyond them:
`, query, heading)
	for _, n := range notes {
		fmt.Fprintf(&sb, "- %s (%s)\n", n.Claim, n.Source.URL)
	}
	sb.WriteString("\nRespond with the section body only, two to four paragraphs of plain prose.")
	return sb.String()
}

// TitlePrompt asks the model for a short report title.
func TitlePrompt(query string) string {
	return fmt.Sprintf("Propose a concise report title (under 12 words) for a research report answering: %s\nRespond with the title only.", query)
}
