// Package report defines the final report model, its markdown and JSON
// codecs, and the synthesizer that builds a report from a frozen research
// session.
package report

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Citation attributes report content to a source.
type Citation struct {
	ID    int    `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	// NoteIDs are the session note ids backed by this source.
	NoteIDs []int `json:"note_ids,omitempty"`
}

// Section is one report section.
type Section struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
	// CitationIDs reference the report's citation list.
	CitationIDs []int `json:"citation_ids,omitempty"`
}

// Report is the final deliverable of a research session.
type Report struct {
	Title       string     `json:"title"`
	Query       string     `json:"query"`
	Sections    []Section  `json:"sections"`
	Citations   []Citation `json:"citations"`
	Caveats     []string   `json:"caveats,omitempty"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// ToJSON serializes the report losslessly.
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON deserializes a report produced by ToJSON.
func FromJSON(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("report: parse json: %w", err)
	}
	return &r, nil
}

// Markdown layout:
//
//	# Title
//	<sections as ## headings>
//	## References  (numbered "[n] [Title](URL)" lines)
//	## Caveats     (bullet lines)
const (
	referencesHeading = "References"
	caveatsHeading    = "Caveats"
)

// ToMarkdown renders the report. The markdown form drops note-level
// attribution; use JSON when lossless round-tripping matters.
func (r *Report) ToMarkdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", r.Title)

	for _, s := range r.Sections {
		fmt.Fprintf(&sb, "## %s\n\n%s\n\n", s.Heading, strings.TrimSpace(s.Body))
	}

	if len(r.Citations) > 0 {
		fmt.Fprintf(&sb, "## %s\n\n", referencesHeading)
		for _, c := range r.Citations {
			title := c.Title
			if title == "" {
				title = c.URL
			}
			fmt.Fprintf(&sb, "%d. [%s](%s)\n", c.ID, title, c.URL)
		}
		sb.WriteString("\n")
	}

	if len(r.Caveats) > 0 {
		fmt.Fprintf(&sb, "## %s\n\n", caveatsHeading)
		for _, c := range r.Caveats {
			fmt.Fprintf(&sb, "- %s\n", c)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

var citationLineRe = regexp.MustCompile(`^(\d+)\.\s+\[(.*)\]\((.*)\)\s*$`)

// ParseMarkdown reconstructs a report from its markdown rendering. Fields the
// markdown form does not carry (note attribution, timestamps) come back
// zero-valued.
func ParseMarkdown(text string) (*Report, error) {
	r := &Report{}
	lines := strings.Split(text, "\n")

	var (
		section *Section
		mode    string // "section", "references", "caveats"
		body    strings.Builder
	)

	flush := func() {
		if section != nil {
			section.Body = strings.TrimSpace(body.String())
			r.Sections = append(r.Sections, *section)
			section = nil
		}
		body.Reset()
	}

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "# "):
			r.Title = strings.TrimSpace(strings.TrimPrefix(line, "# "))

		case strings.HasPrefix(line, "## "):
			flush()
			heading := strings.TrimSpace(strings.TrimPrefix(line, "## "))
			switch heading {
			case referencesHeading:
				mode = "references"
			case caveatsHeading:
				mode = "caveats"
			default:
				mode = "section"
				section = &Section{Heading: heading}
			}

		case mode == "references":
			if m := citationLineRe.FindStringSubmatch(line); m != nil {
				id, _ := strconv.Atoi(m[1])
				title := m[2]
				if title == m[3] {
					title = ""
				}
				r.Citations = append(r.Citations, Citation{ID: id, URL: m[3], Title: title})
			}

		case mode == "caveats":
			if strings.HasPrefix(line, "- ") {
				r.Caveats = append(r.Caveats, strings.TrimSpace(strings.TrimPrefix(line, "- ")))
			}

		case mode == "section":
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	flush()

	if r.Title == "" && len(r.Sections) == 0 {
		return nil, fmt.Errorf("report: markdown has no title or sections")
	}
	return r, nil
}

// WordCount returns the total word count across section bodies.
func (r *Report) WordCount() int {
	n := 0
	for _, s := range r.Sections {
		n += len(strings.Fields(s.Body))
	}
	return n
}
