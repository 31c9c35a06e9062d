package signalgate

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders GateResult as Markdown string.
func RenderMarkdown(result *GateResult) string {
	var sb strings.Builder

	// Decision header
	sb.WriteString("# Signal Gate Report\n\n")
	sb.WriteString(fmt.Sprintf("## Decision: %s\n\n", result.Decision))
	sb.WriteString(fmt.Sprintf("- Signal: %s\n", result.SignalID))
	if result.UserID != "" {
		sb.WriteString(fmt.Sprintf("- User: %s\n", result.UserID))
	}
	sb.WriteString(fmt.Sprintf("- Evaluated: %s\n\n", result.EvaluatedAt.UTC().Format("2006-01-02 15:04:05 UTC")))

	// Risk assessment
	sb.WriteString("## Risk Assessment\n\n")
	sb.WriteString(fmt.Sprintf("- Valid: %t\n", result.Risk.Valid))
	sb.WriteString(fmt.Sprintf("- Risk score: %.2f\n", result.Risk.RiskScore))
	if adj := result.Risk.AdjustedSignal; adj != nil {
		sb.WriteString(fmt.Sprintf("- Adjusted size: %s\n", adj.Size))
	}
	for _, e := range result.Risk.Errors {
		sb.WriteString(fmt.Sprintf("- Error: %s\n", e))
	}
	for _, w := range result.Risk.Warnings {
		sb.WriteString(fmt.Sprintf("- Warning: %s\n", w))
	}
	sb.WriteString("\n")

	if result.Reason != "" {
		sb.WriteString("## Summary\n\n")
		sb.WriteString(fmt.Sprintf("Decision is NO-GO: %s\n", result.Reason))
		return sb.String()
	}

	// GO Criteria table
	sb.WriteString("## GO Criteria\n\n")
	sb.WriteString("| # | Criterion | Threshold | Actual | Pass |\n")
	sb.WriteString("|---|-----------|-----------|--------|------|\n")
	goPassed := 0
	for i, c := range result.GOCriteria {
		passStr := "PASS"
		if c.Pass {
			goPassed++
		} else {
			passStr = "FAIL"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, c.Name, c.Threshold, c.Actual, passStr))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("GO Criteria: %d/%d passed\n\n", goPassed, len(result.GOCriteria)))

	// NO-GO Triggers table
	sb.WriteString("## NO-GO Triggers\n\n")
	sb.WriteString("| # | Trigger | Condition | Actual | Status |\n")
	sb.WriteString("|---|---------|-----------|--------|--------|\n")
	nogoTriggered := 0
	for i, c := range result.NOGOChecks {
		statusStr := "NOT TRIGGERED"
		if !c.Pass { // Pass=false means triggered
			statusStr = "TRIGGERED"
			nogoTriggered++
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, c.Name, c.Threshold, c.Actual, statusStr))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("NO-GO Triggers: %d/%d triggered\n\n", nogoTriggered, len(result.NOGOChecks)))

	// Summary
	sb.WriteString("## Summary\n\n")
	if result.Decision == DecisionGO {
		sb.WriteString("All GO criteria passed and no NO-GO triggers fired.\n")
	} else {
		sb.WriteString("Decision is NO-GO due to:\n")
		for _, c := range result.GOCriteria {
			if !c.Pass {
				sb.WriteString(fmt.Sprintf("- GO criterion failed: %s (actual: %s)\n", c.Name, c.Actual))
			}
		}
		for _, c := range result.NOGOChecks {
			if !c.Pass {
				sb.WriteString(fmt.Sprintf("- NO-GO trigger fired: %s (actual: %s)\n", c.Name, c.Actual))
			}
		}
	}

	return sb.String()
}
