package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSession_Lifecycle(t *testing.T) {
	s := NewSession("what is solid state battery energy density")
	require.NotEmpty(t, s.ID)
	assert.Equal(t, StatusPlanning, s.Status)
	assert.True(t, s.EndedAt.IsZero())

	s.SetStatus(StatusGathering)
	s.SetStatus(StatusCompleted)
	assert.False(t, s.EndedAt.IsZero())
}

func TestStatus_Terminal(t *testing.T) {
	for _, st := range []Status{StatusCompleted, StatusPartial, StatusFailed} {
		assert.True(t, st.Terminal(), st)
	}
	for _, st := range []Status{StatusPlanning, StatusGathering, StatusSynthesizing, StatusReporting} {
		assert.False(t, st.Terminal(), st)
	}
}

func TestSession_PartialIsTerminal(t *testing.T) {
	s := NewSession("q")
	s.SetStatus(StatusPartial)
	assert.False(t, s.EndedAt.IsZero())
}

func TestSession_NewSourceCounting(t *testing.T) {
	s := NewSession("q")
	a := SourceRef{URL: "https://a.example", Title: "A"}
	b := SourceRef{URL: "https://b.example", Title: "B"}

	s.RecordStep(Step{Index: 0, SubQuery: "one"}, []SourceRef{a, b})
	s.RecordStep(Step{Index: 1, SubQuery: "two"}, []SourceRef{a})
	s.RecordStep(Step{Index: 2, SubQuery: "three"}, []SourceRef{b, {URL: "https://c.example"}})

	require.Len(t, s.Steps, 3)
	assert.Equal(t, 2, s.Steps[0].NewSources)
	assert.Equal(t, 0, s.Steps[1].NewSources)
	assert.Equal(t, 1, s.Steps[2].NewSources)
	assert.Equal(t, 3, s.DistinctSources())
}

func TestSession_FreezePanicsOnMutation(t *testing.T) {
	s := NewSession("q")
	s.AddNote(0, SourceRef{URL: "https://a.example"}, "claim", 0.5)
	s.Freeze()

	assert.True(t, s.Frozen())
	assert.Panics(t, func() { s.AddNote(1, SourceRef{}, "late", 0.1) })
	assert.Panics(t, func() { s.RecordStep(Step{}, nil) })
	// Lifecycle transitions stay legal.
	assert.NotPanics(t, func() { s.SetStatus(StatusFailed) })
}

func TestSession_NotesOrdered(t *testing.T) {
	s := NewSession("q")
	s.AddNote(0, SourceRef{URL: "u1"}, "low", 0.2)
	s.AddNote(0, SourceRef{URL: "u2"}, "high", 0.9)
	s.AddNote(1, SourceRef{URL: "u3"}, "also high", 0.9)
	s.AddNote(1, SourceRef{URL: "u4"}, "mid", 0.5)

	ordered := s.NotesOrdered()
	require.Len(t, ordered, 4)
	assert.Equal(t, "high", ordered[0].Claim)
	assert.Equal(t, "also high", ordered[1].Claim)
	assert.Equal(t, "mid", ordered[2].Claim)
	assert.Equal(t, "low", ordered[3].Claim)
	// Original order untouched.
	assert.Equal(t, "low", s.Notes[0].Claim)
}

func TestSession_NoteIDsMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewSession("q")
		n := rapid.IntRange(1, 50).Draw(t, "n")
		prev := 0
		for i := 0; i < n; i++ {
			step := rapid.IntRange(0, 5).Draw(t, "step")
			rel := rapid.Float64Range(0, 1).Draw(t, "rel")
			note := s.AddNote(step, SourceRef{URL: "https://x.example"}, "c", rel)
			if note.ID <= prev {
				t.Fatalf("note id %d not greater than previous %d", note.ID, prev)
			}
			prev = note.ID
		}
		if len(s.Notes) != n {
			t.Fatalf("expected %d notes, got %d", n, len(s.Notes))
		}
	})
}
