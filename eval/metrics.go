package eval

import (
	"fmt"
	"strings"

	"github.com/odr-dev/deepresearch/report"
	"github.com/odr-dev/deepresearch/research"
)

// Metric scores one quality dimension of a report in [0,1].
type Metric interface {
	Name() string
	// Score reads the frozen session and the report; it must not mutate
	// either.
	Score(sess *research.Session, rep *report.Report) float64
}

// Explainer is implemented by metrics that can justify their score with a
// free-text detail. Non-empty explanations are appended to the evaluation
// rationale.
type Explainer interface {
	Explain(sess *research.Session, rep *report.Report) string
}

// completenessMetric measures how much of the planned research surfaced in
// the report: sub-query coverage and evidence usage.
type completenessMetric struct{}

func (completenessMetric) Name() string { return MetricCompleteness }

func (completenessMetric) Score(sess *research.Session, rep *report.Report) float64 {
	if len(rep.Sections) == 0 {
		return 0
	}

	// Fraction of sub-queries lexically reflected in some section.
	coverage := 1.0
	if len(sess.SubQueries) > 0 {
		covered := 0
		for _, sq := range sess.SubQueries {
			if subQueryCovered(sq, rep) {
				covered++
			}
		}
		coverage = float64(covered) / float64(len(sess.SubQueries))
	}

	// Fraction of collected notes cited by the report.
	usage := 0.0
	if len(sess.Notes) > 0 {
		cited := make(map[int]bool)
		for _, c := range rep.Citations {
			for _, id := range c.NoteIDs {
				cited[id] = true
			}
		}
		usage = float64(len(cited)) / float64(len(sess.Notes))
	}

	return clampScore(0.6*coverage + 0.4*usage)
}

func subQueryCovered(sq string, rep *report.Report) bool {
	for _, sec := range rep.Sections {
		text := strings.ToLower(sec.Heading + " " + sec.Body)
		hits, total := 0, 0
		for _, w := range strings.Fields(strings.ToLower(sq)) {
			if len(w) <= 3 {
				continue
			}
			total++
			if strings.Contains(text, w) {
				hits++
			}
		}
		if total > 0 && float64(hits)/float64(total) >= 0.5 {
			return true
		}
	}
	return false
}

// coherenceMetric measures structural soundness: a title, substantive
// section bodies, and distinct headings.
type coherenceMetric struct{}

func (coherenceMetric) Name() string { return MetricCoherence }

func (coherenceMetric) Score(_ *research.Session, rep *report.Report) float64 {
	if len(rep.Sections) == 0 {
		return 0
	}

	score := 0.0
	if strings.TrimSpace(rep.Title) != "" {
		score += 0.2
	}

	substantive := 0
	headings := make(map[string]bool)
	for _, sec := range rep.Sections {
		if len(strings.Fields(sec.Body)) >= 20 {
			substantive++
		}
		headings[strings.ToLower(strings.TrimSpace(sec.Heading))] = true
	}
	score += 0.5 * float64(substantive) / float64(len(rep.Sections))
	score += 0.3 * float64(len(headings)) / float64(len(rep.Sections))

	return clampScore(score)
}

// citationDensityMetric rewards citation coverage: every section should cite
// sources, at a reasonable rate per word of prose.
type citationDensityMetric struct{}

func (citationDensityMetric) Name() string { return MetricCitationDensity }

// targetCitationsPer100Words saturates the density component; denser
// citation than this earns no extra credit.
const targetCitationsPer100Words = 1.0

func (citationDensityMetric) Score(_ *research.Session, rep *report.Report) float64 {
	if len(rep.Sections) == 0 || len(rep.Citations) == 0 {
		return 0
	}

	cited := 0
	refs := 0
	for _, sec := range rep.Sections {
		if len(sec.CitationIDs) > 0 {
			cited++
		}
		refs += len(sec.CitationIDs)
	}
	sectionCoverage := float64(cited) / float64(len(rep.Sections))

	density := 1.0
	if words := rep.WordCount(); words > 0 {
		per100 := float64(refs) / float64(words) * 100
		density = clampScore(per100 / targetCitationsPer100Words)
	}

	return clampScore(0.6*sectionCoverage + 0.4*density)
}

// factualGroundingMetric measures how well citations trace back to collected
// evidence: citations with note attribution, over sources actually seen
// during gathering.
type factualGroundingMetric struct{}

func (factualGroundingMetric) Name() string { return MetricFactualGrounding }

func (factualGroundingMetric) Score(sess *research.Session, rep *report.Report) float64 {
	if len(rep.Citations) == 0 {
		return 0
	}
	grounded := len(rep.Citations) - len(ungroundedCitations(sess, rep))
	return clampScore(float64(grounded) / float64(len(rep.Citations)))
}

// Explain names every citation that cannot be traced back to collected
// evidence, so unverifiable claims surface in the rationale instead of only
// lowering the score.
func (factualGroundingMetric) Explain(sess *research.Session, rep *report.Report) string {
	un := ungroundedCitations(sess, rep)
	if len(un) == 0 {
		return ""
	}
	parts := make([]string, 0, len(un))
	for _, c := range un {
		parts = append(parts, fmt.Sprintf("[%d] %s", c.ID, c.URL))
	}
	return "unverifiable citations, no supporting note: " + strings.Join(parts, ", ")
}

// ungroundedCitations returns the citations with no note attribution or whose
// URL was never seen in the session's evidence.
func ungroundedCitations(sess *research.Session, rep *report.Report) []report.Citation {
	noteSources := make(map[string]bool)
	for _, n := range sess.Notes {
		if n.Source.URL != "" {
			noteSources[n.Source.URL] = true
		}
	}

	var out []report.Citation
	for _, c := range rep.Citations {
		if len(c.NoteIDs) == 0 || !noteSources[c.URL] {
			out = append(out, c)
		}
	}
	return out
}
