package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"easybudget/internal/backup"
	"easybudget/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client writes expense backup rows to a Google spreadsheet. Each expense
// lands on a year-suffixed sheet ("Expenses 2026") so the spreadsheet stays
// navigable across years. Columns: A date, B title, C amount in units,
// D expense ID. The ID column is what RemoveExpense matches on.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
}

var _ backup.Backend = (*Client)(nil)

// New creates a Sheets-backed backup client. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, sheetBase string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheetBase = strings.TrimSpace(sheetBase)
	if sheetBase == "" {
		sheetBase = "Expenses"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     sheetBase,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// AppendExpense implements backup.RowAppender.
func (c *Client) AppendExpense(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheetName := yearSheetName(c.sheetBase, e.Day.Year())

	// Find the next empty row from the ID column.
	rng := fmt.Sprintf("%s!D:D", sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get dimensions for %s: %w", sheetName, err)
	}
	nextRow := len(resp.Values) + 1

	dataRange := fmt.Sprintf("%s!A%d:D%d", sheetName, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{{
		e.Day.Format("2006-01-02"),
		e.Title,
		e.Amount.Units(),
		strconv.FormatInt(e.ID, 10),
	}}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", dataRange, err)
	}

	slog.InfoContext(ctx, "Appended expense backup row",
		"expense_id", e.ID, "sheet", sheetName, "row", nextRow)
	return dataRange, nil
}

// RemoveExpense implements backup.RowRemover. It scans the ID column of every
// year sheet and deletes the first matching row.
func (c *Client) RemoveExpense(ctx context.Context, expenseID int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet metadata: %w", err)
	}

	want := strconv.FormatInt(expenseID, 10)
	for _, sheet := range meta.Sheets {
		if sheet.Properties == nil || !strings.HasPrefix(sheet.Properties.Title, c.sheetBase) {
			continue
		}
		rng := fmt.Sprintf("%s!D:D", sheet.Properties.Title)
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("read %s: %w", rng, err)
		}
		rowIdx := matchRow(resp.Values, want)
		if rowIdx < 0 {
			continue
		}
		req := &gsheet.BatchUpdateSpreadsheetRequest{
			Requests: []*gsheet.Request{{
				DeleteDimension: &gsheet.DeleteDimensionRequest{
					Range: &gsheet.DimensionRange{
						SheetId:    sheet.Properties.SheetId,
						Dimension:  "ROWS",
						StartIndex: int64(rowIdx),
						EndIndex:   int64(rowIdx + 1),
					},
				},
			}},
		}
		if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("delete row %d from %s: %w", rowIdx+1, sheet.Properties.Title, err)
		}
		slog.InfoContext(ctx, "Removed expense backup row",
			"expense_id", expenseID, "sheet", sheet.Properties.Title, "row", rowIdx+1)
		return nil
	}

	// Never backed up, nothing to remove.
	slog.DebugContext(ctx, "No backup row found for expense", "expense_id", expenseID)
	return nil
}

// matchRow returns the zero-based row index whose first cell equals want,
// or -1 when no row matches.
func matchRow(rows [][]any, want string) int {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i
		}
	}
	return -1
}

// yearSheetName returns "<base> <year>" unless base already ends with a 4-digit year.
func yearSheetName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		tail := base[len(base)-4:]
		if y, err := strconv.Atoi(tail); err == nil && base[len(base)-5] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%s %d", base, year)
}
