package ports

import (
	"context"
	"io"

	"assetdesk/domain/importing/sheet"
)

// SheetReader parses an uploaded spreadsheet into a raw sheet. Readers only
// decode cells; they never interpret headers.
type SheetReader interface {
	// Supports reports whether the reader handles the given file name
	Supports(filename string) bool
	Read(ctx context.Context, filename string, r io.Reader) (*sheet.RawSheet, error)
}
