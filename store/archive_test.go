package store

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odr-dev/deepresearch/compare"
	"github.com/odr-dev/deepresearch/eval"
	"github.com/odr-dev/deepresearch/report"
	"github.com/odr-dev/deepresearch/research"
)

func memArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(":memory:", nil)
	require.NoError(t, err)
	return a
}

func sampleComparison() *compare.Comparison {
	sess := research.NewSession("battery outlook")
	sess.AddNote(0, research.SourceRef{URL: "https://a.example"}, "claim", 0.8)
	sess.SetStatus(research.StatusCompleted)

	return &compare.Comparison{
		Query: "battery outlook",
		Results: []compare.ConfigResult{
			{
				Index:   0,
				Name:    "baseline",
				Session: sess,
				Report: &report.Report{
					Title:    "T",
					Sections: []report.Section{{Heading: "H", Body: "body"}},
				},
				Evaluation: &eval.Result{Aggregate: 0.72},
				Duration:   1500 * time.Millisecond,
			},
			{
				Index:        1,
				Name:         "broken",
				Err:          errors.New("boom"),
				ErrorMessage: "boom",
				Duration:     200 * time.Millisecond,
			},
		},
	}
}

func TestArchive_SaveAndList(t *testing.T) {
	a := memArchive(t)
	require.NoError(t, a.SaveComparison(sampleComparison()))

	runs, err := a.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byName := map[string]RunRecord{}
	for _, r := range runs {
		byName[r.ConfigName] = r
	}

	ok := byName["baseline"]
	assert.Equal(t, "completed", ok.Status)
	assert.InDelta(t, 0.72, ok.Aggregate, 1e-9)
	assert.Equal(t, 1, ok.Notes)
	assert.Equal(t, int64(1500), ok.DurationMs)
	assert.NotEmpty(t, ok.ReportJSON)

	rep, err := report.FromJSON([]byte(ok.ReportJSON))
	require.NoError(t, err)
	assert.Equal(t, "T", rep.Title)

	bad := byName["broken"]
	assert.Equal(t, "boom", bad.Error)
	assert.Empty(t, bad.ReportJSON)
}

func TestArchive_RunsForConfig(t *testing.T) {
	a := memArchive(t)
	require.NoError(t, a.SaveComparison(sampleComparison()))
	require.NoError(t, a.SaveComparison(sampleComparison()))

	runs, err := a.RunsForConfig("baseline", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	for _, r := range runs {
		assert.Equal(t, "baseline", r.ConfigName)
	}
}

func TestArchive_ListLimit(t *testing.T) {
	a := memArchive(t)
	require.NoError(t, a.SaveComparison(sampleComparison()))
	require.NoError(t, a.SaveComparison(sampleComparison()))

	runs, err := a.ListRuns(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
