package app

import (
	"fmt"
	"strings"

	"assetdesk/models"
)

// RenderReport writes a human-readable Markdown summary of an import batch
func RenderReport(batch *models.ImportBatch) string {
	var b strings.Builder
	r := batch.Report

	fmt.Fprintf(&b, "# Import %s\n\n", batch.FileName)
	fmt.Fprintf(&b, "- **Profile:** %s\n", batch.Profile)
	if batch.SheetName != "" {
		fmt.Fprintf(&b, "- **Sheet:** %s\n", batch.SheetName)
	}
	fmt.Fprintf(&b, "- **Status:** %s\n", batch.Status)
	fmt.Fprintf(&b, "- **Rows:** %d imported, %d skipped, %d with warnings", batch.Imported, batch.Skipped, batch.Warned)
	if r.SkippedBlankRows > 0 {
		fmt.Fprintf(&b, " (%d blank rows ignored)", r.SkippedBlankRows)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- **Sheet confidence:** %.2f\n\n", batch.Confidence)

	b.WriteString("## Column mapping\n\n")
	b.WriteString("| Column | Header | Field | Confidence | Strategy |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, m := range r.Mapping.Matches {
		fmt.Fprintf(&b, "| %d | %s | %s | %.2f | %s |\n", m.Column+1, cell(m.Header), m.Field, m.Confidence, m.Strategy)
	}
	if len(r.Mapping.Unmatched) > 0 {
		b.WriteString("\nUnmatched columns:\n\n")
		for _, u := range r.Mapping.Unmatched {
			if u.BestField != "" {
				fmt.Fprintf(&b, "- %s (closest: %s at %.2f)\n", cell(u.Header), u.BestField, u.BestScore)
			} else {
				fmt.Fprintf(&b, "- %s\n", cell(u.Header))
			}
		}
	}
	if len(r.Mapping.Conflicts) > 0 {
		b.WriteString("\nIgnored duplicate columns:\n\n")
		for _, c := range r.Mapping.Conflicts {
			fmt.Fprintf(&b, "- %s also matched %s, kept column %d\n", cell(c.Header), c.Field, c.WinnerColumn+1)
		}
	}

	p := r.Profile
	if p.Count > 0 {
		b.WriteString("\n## Record confidence\n\n")
		fmt.Fprintf(&b, "Mean %.2f, median %.2f, std dev %.2f, min %.2f, max %.2f, 10th percentile %.2f. ",
			p.Mean, p.Median, p.StdDev, p.Min, p.Max, p.P10)
		fmt.Fprintf(&b, "%d of %d records are low confidence.\n", p.Low, p.Count)
	}

	var flagged []models.RowOutcome
	for _, row := range r.Rows {
		if row.Status != models.RowImported || len(row.Warnings) > 0 {
			flagged = append(flagged, row)
		}
	}
	if len(flagged) > 0 {
		b.WriteString("\n## Rows needing attention\n\n")
		b.WriteString("| Row | Status | Details |\n")
		b.WriteString("|---|---|---|\n")
		for _, row := range flagged {
			details := append([]string{}, row.Warnings...)
			if row.Reason != "" {
				details = append([]string{row.Reason}, details...)
			}
			fmt.Fprintf(&b, "| %d | %s | %s |\n", row.RowIndex+1, row.Status, cell(strings.Join(details, "; ")))
		}
	}
	return b.String()
}

// cell escapes text for a Markdown table cell
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
