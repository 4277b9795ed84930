package compare

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// ExportJSON writes the full comparison, ranked, as indented JSON.
func (c *Comparison) ExportJSON(w io.Writer) error {
	doc := struct {
		Query     string         `json:"query"`
		StartedAt time.Time      `json:"started_at"`
		Duration  string         `json:"duration"`
		Stats     Stats          `json:"stats"`
		Results   []ConfigResult `json:"results"`
	}{
		Query:     c.Query,
		StartedAt: c.StartedAt,
		Duration:  c.Duration.String(),
		Stats:     c.Stats(),
		Results:   c.Ranked(),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ExportMarkdown writes a human-readable comparison summary: a ranking
// table, per-metric scores, and the winner's report.
func (c *Comparison) ExportMarkdown(w io.Writer) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Configuration Comparison\n\n")
	fmt.Fprintf(&sb, "**Query:** %s\n\n", c.Query)
	fmt.Fprintf(&sb, "**Run:** %s, total duration %s\n\n",
		c.StartedAt.Format(time.RFC3339), c.Duration.Round(time.Millisecond))

	metricNames := c.metricNames()

	sb.WriteString("| Rank | Configuration | Score |")
	for _, m := range metricNames {
		fmt.Fprintf(&sb, " %s |", m)
	}
	sb.WriteString(" Duration | Status |\n")
	sb.WriteString("|---|---|---|")
	for range metricNames {
		sb.WriteString("---|")
	}
	sb.WriteString("---|---|\n")

	for rank, r := range c.Ranked() {
		if r.Succeeded() {
			fmt.Fprintf(&sb, "| %d | %s | %.3f |", rank+1, r.Name, r.Evaluation.Aggregate)
			for _, m := range metricNames {
				if score, ok := r.Evaluation.Scores[m]; ok {
					fmt.Fprintf(&sb, " %.3f |", score)
				} else {
					sb.WriteString(" - |")
				}
			}
			fmt.Fprintf(&sb, " %s | ok |\n", r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(&sb, "| %d | %s | - |", rank+1, r.Name)
			for range metricNames {
				sb.WriteString(" - |")
			}
			fmt.Fprintf(&sb, " %s | failed: %s |\n", r.Duration.Round(time.Millisecond), r.ErrorMessage)
		}
	}
	sb.WriteString("\n")

	stats := c.Stats()
	fmt.Fprintf(&sb, "**Scores:** mean %.3f, variance %.4f, range [%.3f, %.3f]. %d succeeded, %d failed.\n\n",
		stats.Mean, stats.Variance, stats.Min, stats.Max, stats.Succeeded, stats.Failed)

	if len(stats.Metrics) > 0 {
		sb.WriteString("**Per metric:** ")
		first := true
		for _, m := range metricNames {
			ms, ok := stats.Metrics[m]
			if !ok {
				continue
			}
			if !first {
				sb.WriteString("; ")
			}
			first = false
			fmt.Fprintf(&sb, "%s mean %.3f, variance %.4f", m, ms.Mean, ms.Variance)
		}
		sb.WriteString(".\n\n")
	}

	if winner := c.Winner(); winner != nil {
		fmt.Fprintf(&sb, "## Winning Report (%s)\n\n", winner.Name)
		sb.WriteString(winner.Report.ToMarkdown())
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// metricNames collects the union of metric names across results, sorted.
func (c *Comparison) metricNames() []string {
	seen := make(map[string]bool)
	for _, r := range c.Results {
		if r.Evaluation == nil {
			continue
		}
		for name := range r.Evaluation.Scores {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
