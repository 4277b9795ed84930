// Package research holds the research session data model: notes, sources,
// steps, and the mutable session that accumulates them, plus the prompt
// templates and parsers shared by the pipeline stages.
package research

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusPlanning     Status = "planning"
	StatusGathering    Status = "gathering"
	StatusSynthesizing Status = "synthesizing"
	StatusReporting    Status = "reporting"
	StatusCompleted    Status = "completed"
	// StatusPartial is the terminal status of a session that produced
	// evidence but degraded along the way: a gather step exhausted its
	// retries, or synthesis failed after notes were collected.
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Terminal reports whether the status ends the session lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusPartial || s == StatusFailed
}

// SourceRef identifies a source consulted during gathering.
type SourceRef struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Note is one extracted finding: a claim attributed to a source with a
// relevance score in [0,1].
type Note struct {
	// ID is monotonically increasing within a session.
	ID        int       `json:"id"`
	Step      int       `json:"step"`
	Source    SourceRef `json:"source"`
	Claim     string    `json:"claim"`
	Relevance float64   `json:"relevance"`
	CreatedAt time.Time `json:"created_at"`
}

// Step records the outcome of one research step.
type Step struct {
	Index    int    `json:"index"`
	SubQuery string `json:"sub_query"`
	// Degraded marks a step whose backend calls exhausted retries; its
	// partial results are kept.
	Degraded       bool   `json:"degraded"`
	DegradedReason string `json:"degraded_reason,omitempty"`
	NoteIDs        []int  `json:"note_ids"`
	NewSources     int    `json:"new_sources"`
}

// Session accumulates the state of one research run. Not safe for concurrent
// use; a session is owned by exactly one executor.
type Session struct {
	ID         string    `json:"id"`
	Query      string    `json:"query"`
	Status     Status    `json:"status"`
	SubQueries []string  `json:"sub_queries"`
	Steps      []Step    `json:"steps"`
	Notes      []Note    `json:"notes"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at,omitempty"`

	nextNoteID int
	seenURLs   map[string]bool
	frozen     bool
}

// NewSession creates a session in the planning state.
func NewSession(query string) *Session {
	return &Session{
		ID:         uuid.NewString(),
		Query:      query,
		Status:     StatusPlanning,
		StartedAt:  time.Now(),
		nextNoteID: 1,
		seenURLs:   make(map[string]bool),
	}
}

// SetStatus transitions the session lifecycle state. Lifecycle transitions
// stay legal after Freeze; only evidence is frozen.
func (s *Session) SetStatus(status Status) {
	s.Status = status
	if status.Terminal() {
		s.EndedAt = time.Now()
	}
}

// AddNote appends a note, assigning the next monotonic id.
func (s *Session) AddNote(step int, src SourceRef, claim string, relevance float64) Note {
	if s.frozen {
		panic("research: session mutated after freeze")
	}
	n := Note{
		ID:        s.nextNoteID,
		Step:      step,
		Source:    src,
		Claim:     claim,
		Relevance: relevance,
		CreatedAt: time.Now(),
	}
	s.nextNoteID++
	s.Notes = append(s.Notes, n)
	return n
}

// RecordStep appends a completed step, counting sources not seen before.
func (s *Session) RecordStep(step Step, sources []SourceRef) {
	if s.frozen {
		panic("research: session mutated after freeze")
	}
	for _, src := range sources {
		if src.URL == "" || s.seenURLs[src.URL] {
			continue
		}
		s.seenURLs[src.URL] = true
		step.NewSources++
	}
	s.Steps = append(s.Steps, step)
}

// DistinctSources returns the number of distinct source URLs seen so far.
func (s *Session) DistinctSources() int {
	return len(s.seenURLs)
}

// Freeze marks the session's evidence immutable. Called before synthesis so
// downstream stages can only read notes and steps; lifecycle status may
// still change.
func (s *Session) Freeze() {
	s.frozen = true
}

// Frozen reports whether the session has been frozen.
func (s *Session) Frozen() bool {
	return s.frozen
}

// NotesOrdered returns notes sorted by (relevance desc, step asc, id asc).
// The ordering is total, so downstream clustering is deterministic.
func (s *Session) NotesOrdered() []Note {
	out := make([]Note, len(s.Notes))
	copy(out, s.Notes)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		if out[i].Step != out[j].Step {
			return out[i].Step < out[j].Step
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Summary returns a one-line description for logs.
func (s *Session) Summary() string {
	return fmt.Sprintf("session %s: %d steps, %d notes, %d sources, status=%s",
		s.ID, len(s.Steps), len(s.Notes), s.DistinctSources(), s.Status)
}
