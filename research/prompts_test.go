package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odr-dev/deepresearch/backend"
)

func TestParsePlan(t *testing.T) {
	text := `Here are the sub-queries:
1. current energy density of solid state batteries
2) manufacturing cost comparison vs lithium ion
- safety record of solid electrolytes

3. commercialization timelines`

	got := ParsePlan(text, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "current energy density of solid state batteries", got[0])
	assert.Equal(t, "manufacturing cost comparison vs lithium ion", got[1])
	assert.Equal(t, "safety record of solid electrolytes", got[2])
}

func TestParsePlan_Empty(t *testing.T) {
	assert.Empty(t, ParsePlan("no list here, just prose", 5))
	assert.Empty(t, ParsePlan("", 5))
}

func TestParseClaims(t *testing.T) {
	text := `- [source 1] QuantumScape reported 844 Wh/L cells (relevance: 0.9)
- [source 2] Toyota targets 2027 for production (relevance: 0.75)
- a claim with no score at all
- [source 3] relevance out of range claim (relevance: 1.7)
* unattributed claim works too (relevance: 0.4)`

	claims := ParseClaims(text)
	require.Len(t, claims, 4)

	assert.Equal(t, 1, claims[0].SourceIndex)
	assert.Equal(t, "QuantumScape reported 844 Wh/L cells", claims[0].Claim)
	assert.InDelta(t, 0.9, claims[0].Relevance, 1e-9)

	assert.Equal(t, 2, claims[1].SourceIndex)

	// Out-of-range scores clamp to [0,1].
	assert.Equal(t, 1.0, claims[2].Relevance)

	// Missing source index defaults to 0.
	assert.Equal(t, 0, claims[3].SourceIndex)
	assert.Equal(t, "unattributed claim works too", claims[3].Claim)
}

func TestPrompts_ContainInputs(t *testing.T) {
	p := PlanPrompt("battery research", 4)
	assert.Contains(t, p, "battery research")
	assert.Contains(t, p, "4")

	docs := []backend.SourceDocument{{URL: "https://a.example", Title: "A", Snippet: "snippet text"}}
	e := ExtractPrompt("sub query", docs)
	assert.Contains(t, e, "sub query")
	assert.Contains(t, e, "https://a.example")
	assert.Contains(t, e, "snippet text")

	s := SectionPrompt("q", "Findings", []Note{{Claim: "the claim", Source: SourceRef{URL: "https://a.example"}}})
	assert.Contains(t, s, "Findings")
	assert.Contains(t, s, "the claim")
}
