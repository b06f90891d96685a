package sheet

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/fishing-exam-alert/backend/internal/domain"
)

const exportURL = "https://docs.google.com/spreadsheets/d/%s/export?format=csv"

// CSVSource downloads the public CSV export of a shared spreadsheet.
type CSVSource struct {
	client *http.Client
	url    string
	logger *slog.Logger
}

// NewCSVSource builds a CSVSource for spreadsheetID.
func NewCSVSource(spreadsheetID string, logger *slog.Logger) *CSVSource {
	return &CSVSource{
		client: &http.Client{Timeout: 30 * time.Second},
		url:    fmt.Sprintf(exportURL, url.PathEscape(spreadsheetID)),
		logger: logger,
	}
}

// Rows downloads and decodes the sheet.
func (s *CSVSource) Rows(ctx context.Context) ([]domain.SubscriptionRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("sheet.CSVSource.Rows: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheet.CSVSource.Rows: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("sheet.CSVSource.Rows: export returned status %d", resp.StatusCode)
	}

	rows, err := decodeRows(csv.NewReader(resp.Body), s.logger)
	if err != nil {
		return nil, fmt.Errorf("sheet.CSVSource.Rows: %w", err)
	}
	return rows, nil
}

// Len returns the number of subscription rows.
func (s *CSVSource) Len(ctx context.Context) (int, error) {
	rows, err := s.Rows(ctx)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
