package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"chitieu/internal/core"
	"chitieu/internal/log"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// SheetsConfig selects the target sheet and the service account.
type SheetsConfig struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// SheetsExporter replaces the contents of one sheet with the exported rows.
type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *log.Logger
}

// NewSheetsExporter builds a client authenticated with a service account.
func NewSheetsExporter(ctx context.Context, cfg SheetsConfig, logger *log.Logger) (*SheetsExporter, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case cfg.CredentialsFile != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
	return NewSheetsExporterWithOptions(ctx, cfg, logger,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// NewSheetsExporterWithOptions builds the client from explicit client options.
func NewSheetsExporterWithOptions(ctx context.Context, cfg SheetsConfig, logger *log.Logger, opts ...goption.ClientOption) (*SheetsExporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(cfg.SheetName) == "" {
		return nil, errors.New("missing sheet name")
	}
	if logger == nil {
		logger = log.Discard()
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &SheetsExporter{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheet:         cfg.SheetName,
		logger:        logger.WithComponent(log.ComponentExport),
	}, nil
}

// sheetRange quotes the sheet name as A1 notation requires.
func (e *SheetsExporter) sheetRange(cells string) string {
	name := strings.ReplaceAll(e.sheet, "'", "''")
	return fmt.Sprintf("'%s'!%s", name, cells)
}

// Values converts rows to sheet cells; the amount column becomes a number.
func Values(records []core.Record, opts Options) [][]interface{} {
	rows := Rows(records, opts)
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		if i > 0 {
			cells[colAmount] = records[i-1].Amount.InexactFloat64()
		}
		out[i] = cells
	}
	return out
}

// Export clears the sheet and writes the header plus one row per record.
// It returns the range reported as updated.
func (e *SheetsExporter) Export(ctx context.Context, records []core.Record, opts Options) (string, error) {
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, e.sheetRange("A:H"),
		&gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear sheet %s: %w", e.sheet, err)
	}

	vr := &gsheet.ValueRange{Values: Values(records, opts)}
	resp, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, e.sheetRange("A1"), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write sheet %s: %w", e.sheet, err)
	}

	e.logger.InfoContext(ctx, "Exported records to sheet",
		log.FieldOperation, log.OpExport, log.FieldCount, len(records), "range", resp.UpdatedRange)
	return resp.UpdatedRange, nil
}
