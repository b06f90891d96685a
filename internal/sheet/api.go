package sheet

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/fishing-exam-alert/backend/internal/domain"
)

// APISource reads the sheet through the Google Sheets API.
type APISource struct {
	svc           *sheets.Service
	spreadsheetID string
	readRange     string
	logger        *slog.Logger
}

// NewAPISource builds an APISource. Credentials and endpoints are passed as
// client options, e.g. option.WithCredentialsFile.
func NewAPISource(ctx context.Context, spreadsheetID, readRange string, logger *slog.Logger, opts ...option.ClientOption) (*APISource, error) {
	opts = append([]option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}, opts...)
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheet.NewAPISource: %w", err)
	}
	return &APISource{svc: svc, spreadsheetID: spreadsheetID, readRange: readRange, logger: logger}, nil
}

// Rows fetches the configured range and decodes it.
func (s *APISource) Rows(ctx context.Context) ([]domain.SubscriptionRow, error) {
	vr, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheet.APISource.Rows: %w", err)
	}

	rows, err := decodeRows(newValueReader(vr.Values), s.logger)
	if err != nil {
		return nil, fmt.Errorf("sheet.APISource.Rows: %w", err)
	}
	return rows, nil
}

// Len returns the number of subscription rows.
func (s *APISource) Len(ctx context.Context) (int, error) {
	rows, err := s.Rows(ctx)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
