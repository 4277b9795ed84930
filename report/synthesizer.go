package report

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/odr-dev/deepresearch/backend"
	"github.com/odr-dev/deepresearch/research"
	"github.com/odr-dev/deepresearch/types"
)

// jaccardThreshold is the minimum lexical overlap for a note to join an
// existing cluster.
const jaccardThreshold = 0.2

// Synthesizer builds a report from a frozen session. It reads the session
// and never mutates it; one generate call is issued per section plus one for
// the title.
type Synthesizer struct {
	gen    backend.Generator
	opts   backend.GenerateOptions
	logger *zap.Logger
}

// NewSynthesizer creates a synthesizer. A nil logger falls back to a no-op
// logger.
func NewSynthesizer(gen backend.Generator, opts backend.GenerateOptions, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{gen: gen, opts: opts, logger: logger}
}

// Synthesize clusters the session's notes into at most maxSections themes,
// generates one section per cluster, and assembles citations and caveats.
// A session with zero notes yields an EMPTY_EVIDENCE error.
func (s *Synthesizer) Synthesize(ctx context.Context, sess *research.Session, maxSections int) (*Report, error) {
	notes := sess.NotesOrdered()
	if len(notes) == 0 {
		return nil, types.NewError(types.ErrEmptyEvidence,
			"no evidence collected for query "+sess.Query)
	}
	if maxSections <= 0 {
		maxSections = 5
	}

	clusters := clusterNotes(notes, maxSections)

	title, err := s.gen.Generate(ctx, research.TitlePrompt(sess.Query), s.opts)
	if err != nil {
		if types.IsCode(err, types.ErrCancelled) || types.IsCode(err, types.ErrFatalBackend) {
			return nil, err
		}
		// A failed title is cosmetic; fall back to the query.
		s.logger.Warn("title generation failed, using query", zap.Error(err))
		title = "Research Report: " + sess.Query
	}
	title = strings.TrimSpace(strings.Trim(strings.TrimSpace(title), `"`))

	rep := &Report{
		Title:       title,
		Query:       sess.Query,
		GeneratedAt: time.Now(),
	}

	citationID := make(map[string]int)
	for _, cluster := range clusters {
		heading := headingFor(cluster, sess)
		body, err := s.gen.Generate(ctx, research.SectionPrompt(sess.Query, heading, cluster), s.opts)
		if err != nil {
			return nil, fmt.Errorf("synthesize section %q: %w", heading, err)
		}

		section := Section{Heading: heading, Body: strings.TrimSpace(body)}
		for _, n := range cluster {
			if n.Source.URL == "" {
				continue
			}
			id, ok := citationID[n.Source.URL]
			if !ok {
				id = len(rep.Citations) + 1
				citationID[n.Source.URL] = id
				rep.Citations = append(rep.Citations, Citation{
					ID:    id,
					URL:   n.Source.URL,
					Title: n.Source.Title,
				})
			}
			rep.Citations[id-1].NoteIDs = append(rep.Citations[id-1].NoteIDs, n.ID)
			if !containsInt(section.CitationIDs, id) {
				section.CitationIDs = append(section.CitationIDs, id)
			}
		}
		rep.Sections = append(rep.Sections, section)
	}

	for _, step := range sess.Steps {
		if step.Degraded {
			rep.Caveats = append(rep.Caveats, fmt.Sprintf(
				"Research step %d (%q) was degraded: %s.", step.Index+1, step.SubQuery, step.DegradedReason))
		}
	}
	if sess.DistinctSources() < 3 {
		rep.Caveats = append(rep.Caveats, fmt.Sprintf(
			"Findings rest on only %d distinct sources; coverage may be narrow.", sess.DistinctSources()))
	}

	return rep, nil
}

// clusterNotes groups notes greedily by lexical overlap. Input order is the
// session's total note order, so clustering is deterministic. Overflow notes
// beyond maxSections join their best-matching cluster regardless of
// threshold.
func clusterNotes(notes []research.Note, maxSections int) [][]research.Note {
	var clusters [][]research.Note
	tokenSets := make([]map[string]bool, 0, maxSections)

	for _, n := range notes {
		tokens := tokenize(n.Claim)

		best, bestScore := -1, 0.0
		for i, set := range tokenSets {
			score := jaccard(tokens, set)
			if score > bestScore {
				best, bestScore = i, score
			}
		}

		switch {
		case best >= 0 && bestScore >= jaccardThreshold:
			clusters[best] = append(clusters[best], n)
			for t := range tokens {
				tokenSets[best][t] = true
			}
		case len(clusters) < maxSections:
			clusters = append(clusters, []research.Note{n})
			tokenSets = append(tokenSets, tokens)
		case best >= 0:
			clusters[best] = append(clusters[best], n)
		default:
			clusters[0] = append(clusters[0], n)
		}
	}
	return clusters
}

// headingFor derives a deterministic section heading from the sub-query of
// the cluster's leading note.
func headingFor(cluster []research.Note, sess *research.Session) string {
	lead := cluster[0]
	if lead.Step >= 0 && lead.Step < len(sess.SubQueries) {
		return titleCase(sess.SubQueries[lead.Step])
	}
	return titleCase(truncateWords(lead.Claim, 8))
}

func tokenize(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?()[]\"'")
		if len(w) > 2 {
			out[w] = true
		}
	}
	return out
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 3 || i == 0 {
			r, size := utf8.DecodeRuneInString(w)
			words[i] = string(unicode.ToUpper(r)) + w[size:]
		}
	}
	return strings.Join(words, " ")
}

func truncateWords(s string, max int) string {
	words := strings.Fields(s)
	if len(words) <= max {
		return s
	}
	return strings.Join(words[:max], " ")
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
