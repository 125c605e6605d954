package app

import (
	"testing"

	"assetdesk/domain/importing/mapping"
	"assetdesk/internal/profiling"
	"assetdesk/models"

	"github.com/stretchr/testify/assert"
)

func TestRenderReport(t *testing.T) {
	batch := &models.ImportBatch{
		FileName:   "parc.xlsx",
		SheetName:  "Feuil1",
		Profile:    "it",
		Status:     models.ImportPartial,
		Imported:   1,
		Skipped:    1,
		Warned:     1,
		Confidence: 0.83,
		Report: models.ImportReport{
			SkippedBlankRows: 2,
			Mapping: mapping.ColumnMapping{
				Matches: []mapping.ColumnMatch{
					{Column: 0, Header: "Marque", Field: "marque", Confidence: 1, Strategy: mapping.StrategyExact},
					{Column: 1, Header: "Propriét", Field: "proprietaire", Confidence: 0.75, Strategy: mapping.StrategyTruncated},
				},
				Unmatched: []mapping.UnmatchedColumn{{Column: 2, Header: "Couleur|teinte"}},
				Conflicts: []mapping.ColumnConflict{{
					ColumnMatch:  mapping.ColumnMatch{Column: 3, Header: "Fabricant", Field: "marque"},
					WinnerColumn: 0,
				}},
			},
			Profile: profiling.ConfidenceProfile{Count: 2, Mean: 0.8, Median: 0.8, Min: 0.7, Max: 0.9, Low: 0},
			Rows: []models.RowOutcome{
				{RowIndex: 0, Status: models.RowImported},
				{RowIndex: 1, Status: models.RowDuplicate, Reason: "duplicate identifier", Warnings: []string{"marque is unknown (left as \"Inconnu\")"}},
			},
		},
	}

	md := RenderReport(batch)

	assert.Contains(t, md, "# Import parc.xlsx")
	assert.Contains(t, md, "1 imported, 1 skipped, 1 with warnings (2 blank rows ignored)")
	assert.Contains(t, md, "| 2 | Propriét | proprietaire | 0.75 | truncated |")
	assert.Contains(t, md, `- Couleur\|teinte`)
	assert.Contains(t, md, "- Fabricant also matched marque, kept column 1")
	assert.Contains(t, md, "0 of 2 records are low confidence")
	assert.Contains(t, md, "| 2 | duplicate | duplicate identifier; marque is unknown")
	assert.NotContains(t, md, "| 1 | imported |")
}
