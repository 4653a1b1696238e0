package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// CredentialsEnv holds an inline service account key. It takes precedence
// over a credentials file so the service can run where no file can be mounted.
const CredentialsEnv = "GOOGLE_CREDS_JSON"

// unformattedValues asks the API for raw cell values, so "1.440,00 €" in the
// sheet arrives as the number 1440 regardless of the sheet's locale.
const unformattedValues = "UNFORMATTED_VALUE"

var errNoCredentials = errors.New("no service account credentials configured")

// GoogleSheets reads a whole worksheet through the Sheets API using a
// service account.
type GoogleSheets struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	// CredentialsJSON overrides CredentialsFile and the environment.
	CredentialsJSON []byte
}

func (g GoogleSheets) Name() string {
	return "sheets:" + g.SpreadsheetID + "/" + g.SheetName
}

func (g GoogleSheets) Values(ctx context.Context) ([][]string, error) {
	if g.SpreadsheetID == "" || g.SheetName == "" {
		return nil, unavailable(g.Name(), errors.New("spreadsheet id and sheet name are required"))
	}
	creds, err := g.credentials()
	if err != nil {
		return nil, unavailable(g.Name(), err)
	}

	srv, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(creds),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, unavailable(g.Name(), fmt.Errorf("create sheets client: %w", err))
	}

	resp, err := srv.Spreadsheets.Values.Get(g.SpreadsheetID, g.SheetName).
		ValueRenderOption(unformattedValues).
		Context(ctx).
		Do()
	if err != nil {
		return nil, unavailable(g.Name(), fmt.Errorf("read values: %w", err))
	}

	grid := stringify(resp.Values)
	if len(grid) == 0 {
		return nil, unavailable(g.Name(), errors.New("worksheet is empty"))
	}
	return grid, nil
}

func (g GoogleSheets) credentials() ([]byte, error) {
	raw := g.CredentialsJSON
	if len(raw) == 0 {
		if env := strings.TrimSpace(os.Getenv(CredentialsEnv)); env != "" {
			raw = []byte(env)
		}
	}
	if len(raw) == 0 && g.CredentialsFile != "" {
		data, err := os.ReadFile(g.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials: %w", err)
		}
		raw = data
	}
	if len(raw) == 0 {
		return nil, errNoCredentials
	}
	return normalizeCredentials(raw)
}

// normalizeCredentials restores newlines in a private key that was stored
// with escaped "\n" sequences, as happens with keys pasted into env vars.
func normalizeCredentials(raw []byte) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	key, ok := doc["private_key"].(string)
	if !ok || !strings.Contains(key, `\n`) {
		return raw, nil
	}
	doc["private_key"] = strings.ReplaceAll(key, `\n`, "\n")
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode credentials: %w", err)
	}
	return out, nil
}

func stringify(values [][]interface{}) [][]string {
	grid := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		grid[i] = cells
	}
	return grid
}
