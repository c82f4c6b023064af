package sheetstore

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// GoogleStore backs the row store with one Google spreadsheet; each sheet
// tab is one table. Authentication uses a service-account credentials file.
type GoogleStore struct {
	service       *sheets.Service
	spreadsheetID string
}

// NewGoogleStore builds a Sheets API client from the service-account
// credentials at credentialsFile and binds it to spreadsheetID.
func NewGoogleStore(ctx context.Context, spreadsheetID, credentialsFile string) (*GoogleStore, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required for google storage")
	}

	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	conf, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	service, err := sheets.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &GoogleStore{service: service, spreadsheetID: spreadsheetID}, nil
}

func (g *GoogleStore) GetSheetMetadata(ctx context.Context) ([]SheetInfo, error) {
	resp, err := g.service.Spreadsheets.Get(g.spreadsheetID).
		Fields("sheets.properties.sheetId,sheets.properties.title").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet metadata: %w", err)
	}

	infos := make([]SheetInfo, 0, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties == nil {
			continue
		}
		infos = append(infos, SheetInfo{SheetID: sh.Properties.SheetId, Title: sh.Properties.Title})
	}
	return infos, nil
}

func (g *GoogleStore) GetHeaderRow(ctx context.Context, sheet string) ([]string, error) {
	return g.getSingleRow(ctx, sheet, 1)
}

func (g *GoogleStore) GetTypeRow(ctx context.Context, sheet string) ([]string, error) {
	return g.getSingleRow(ctx, sheet, 2)
}

func (g *GoogleStore) getSingleRow(ctx context.Context, sheet string, rowIndex int) ([]string, error) {
	rng := fmt.Sprintf("'%s'!%d:%d", sheet, rowIndex, rowIndex)
	resp, err := g.service.Spreadsheets.Values.Get(g.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get row %d of %s: %w", rowIndex, sheet, err)
	}
	if len(resp.Values) == 0 {
		return []string{}, nil
	}
	return cellsToStrings(resp.Values[0]), nil
}

func (g *GoogleStore) GetAllRows(ctx context.Context, sheet string) ([][]string, error) {
	rng := fmt.Sprintf("'%s'!3:%d", sheet, maxSheetRows)
	resp, err := g.service.Spreadsheets.Values.Get(g.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get rows of %s: %w", sheet, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		rows = append(rows, cellsToStrings(row))
	}
	return rows, nil
}

// maxSheetRows bounds the data range read per sheet. The Sheets API trims
// trailing empty rows, so over-asking is cheap.
const maxSheetRows = 100000

func (g *GoogleStore) AppendRow(ctx context.Context, sheet string, values []string) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{stringsToCells(values)}}
	_, err := g.service.Spreadsheets.Values.Append(g.spreadsheetID, fmt.Sprintf("'%s'!A1", sheet), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row to %s: %w", sheet, err)
	}
	return nil
}

func (g *GoogleStore) OverwriteRow(ctx context.Context, sheet string, rowIndex int, values []string) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{stringsToCells(values)}}
	rng := fmt.Sprintf("'%s'!A%d", sheet, rowIndex)
	_, err := g.service.Spreadsheets.Values.Update(g.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("overwrite row %d of %s: %w", rowIndex, sheet, err)
	}
	return nil
}

func (g *GoogleStore) UpdateCell(ctx context.Context, sheet string, rowIndex, colIndex int, value string) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{{value}}}
	rng := fmt.Sprintf("'%s'!%s%d", sheet, columnLetter(colIndex), rowIndex)
	_, err := g.service.Spreadsheets.Values.Update(g.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update cell %s of %s: %w", rng, sheet, err)
	}
	return nil
}

func (g *GoogleStore) AddSheet(ctx context.Context, title string, headers, types []string) (SheetInfo, error) {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: title},
			},
		}},
	}
	resp, err := g.service.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return SheetInfo{}, fmt.Errorf("add sheet %s: %w", title, err)
	}

	var info SheetInfo
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		info = SheetInfo{
			SheetID: resp.Replies[0].AddSheet.Properties.SheetId,
			Title:   resp.Replies[0].AddSheet.Properties.Title,
		}
	}

	vr := &sheets.ValueRange{Values: [][]interface{}{
		stringsToCells(headers),
		stringsToCells(types),
	}}
	_, err = g.service.Spreadsheets.Values.Update(g.spreadsheetID, fmt.Sprintf("'%s'!A1", title), vr).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return SheetInfo{}, fmt.Errorf("write header rows of %s: %w", title, err)
	}
	return info, nil
}

func (g *GoogleStore) RenameSheet(ctx context.Context, sheetID int64, title string) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{SheetId: sheetID, Title: title},
				Fields:     "title",
			},
		}},
	}
	_, err := g.service.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("rename sheet %d: %w", sheetID, err)
	}
	return nil
}

func (g *GoogleStore) HealthCheck(ctx context.Context) error {
	_, err := g.service.Spreadsheets.Get(g.spreadsheetID).
		Fields("spreadsheetId").
		Context(ctx).Do()
	return err
}

// columnLetter converts a zero-based column index to its A1-notation
// letters (0 -> A, 25 -> Z, 26 -> AA).
func columnLetter(colIndex int) string {
	letters := ""
	n := colIndex
	for {
		letters = string(rune('A'+n%26)) + letters
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	return letters
}

func cellsToStrings(cells []interface{}) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if c == nil {
			continue
		}
		out[i] = fmt.Sprint(c)
	}
	return out
}

func stringsToCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
