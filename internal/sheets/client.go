// Package sheets exports orders to a Google Sheets spreadsheet used as the
// merchant's bookkeeping view.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/tajerapp/tajer/internal/observability"
)

// Client appends rows to one spreadsheet. It talks to the Sheets REST API
// directly; the append endpoint is the only call this application needs.
type Client struct {
	spreadsheetID string
	sheetRange    string
	httpClient    *http.Client
}

type Config struct {
	SpreadsheetID   string
	SheetRange      string // e.g. "Commandes!A:L"
	CredentialsJSON string // service account key
}

func NewClient(ctx context.Context, config Config) (*Client, error) {
	if config.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if config.SheetRange == "" {
		config.SheetRange = "Sheet1!A:L"
	}

	creds, err := google.CredentialsFromJSON(ctx, []byte(config.CredentialsJSON),
		"https://www.googleapis.com/auth/spreadsheets")
	if err != nil {
		return nil, fmt.Errorf("failed to parse google credentials: %w", err)
	}

	httpClient := oauth2.NewClient(ctx, creds.TokenSource)
	httpClient.Transport = observability.WrapRoundTripper(httpClient.Transport)
	httpClient.Timeout = 15 * time.Second

	return &Client{
		spreadsheetID: config.SpreadsheetID,
		sheetRange:    config.SheetRange,
		httpClient:    httpClient,
	}, nil
}

type appendRequest struct {
	Values [][]any `json:"values"`
}

type appendResponse struct {
	Updates struct {
		UpdatedRows int `json:"updatedRows"`
	} `json:"updates"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// AppendRows appends the given rows after the last row of the configured
// range.
func (c *Client) AppendRows(ctx context.Context, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	payload, err := json.Marshal(appendRequest{Values: rows})
	if err != nil {
		return fmt.Errorf("failed to encode sheet rows: %w", err)
	}

	endpoint := fmt.Sprintf(
		"https://sheets.googleapis.com/v4/spreadsheets/%s/values/%s:append?valueInputOption=USER_ENTERED&insertDataOption=INSERT_ROWS",
		url.PathEscape(c.spreadsheetID), url.PathEscape(c.sheetRange))

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to append to sheet: %w", err)
	}
	body, readErr := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("failed to read sheets response: %w", readErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close sheets response body: %w", closeErr)
	}

	var decoded appendResponse
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(body, &decoded) == nil && decoded.Error.Message != "" {
			return fmt.Errorf("sheets error: %s", decoded.Error.Message)
		}
		return fmt.Errorf("sheets API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
