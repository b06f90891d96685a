// Package sheet reads the subscription form responses from a Google
// spreadsheet, either through the Sheets API or the public CSV export.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jszwec/csvutil"

	"github.com/fishing-exam-alert/backend/internal/domain"
)

// Source yields the subscription rows of the spreadsheet in sheet order.
type Source interface {
	Rows(ctx context.Context) ([]domain.SubscriptionRow, error)
	Len(ctx context.Context) (int, error)
}

// Form answers for the subscription action.
const (
	actionSubscribe   = "Anmeldung / Aktualisierung"
	actionUnsubscribe = "Abmeldung"
)

var timestampLayouts = []string{"02.01.2006 15:04:05", "02.01.2006 15:04"}

// formRow maps the form's column headers. Column order does not matter.
type formRow struct {
	Timestamp        string `csv:"Zeitstempel"`
	Email            string `csv:"E-Mail-Adresse"`
	Action           string `csv:"An- oder Abmeldung?"`
	Districts        string `csv:"Welche Bezirke kommen für dich in Frage?"`
	PostalCode       string `csv:"Deine PLZ"`
	MaxTravelMinutes string `csv:"Maximale Fahrzeit zur Prüfung (in Minuten)?"`
	Equipment        string `csv:"Welche Ausstattung soll der Prüfungsort erfüllen?"`
}

// decodeRows decodes header-first records. Rows without an email are
// dropped; rows with an unreadable timestamp are skipped with a warning.
func decodeRows(r csvutil.Reader, logger *slog.Logger) ([]domain.SubscriptionRow, error) {
	dec, err := csvutil.NewDecoder(r)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	dec.DisallowMissingColumns = true

	var rows []domain.SubscriptionRow
	for line := 2; ; line++ {
		var fr formRow
		if err := dec.Decode(&fr); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("decode row %d: %w", line, err)
		}

		if strings.TrimSpace(fr.Email) == "" {
			continue
		}
		ts, err := parseTimestamp(fr.Timestamp)
		if err != nil {
			logger.Warn("skipping subscription row", "row", line, "email", fr.Email, "error", err)
			continue
		}

		rows = append(rows, domain.SubscriptionRow{
			Timestamp:        ts,
			Email:            fr.Email,
			Action:           parseAction(fr.Action),
			RawAction:        fr.Action,
			Districts:        fr.Districts,
			PostalCode:       fr.PostalCode,
			MaxTravelMinutes: fr.MaxTravelMinutes,
			Equipment:        fr.Equipment,
		})
	}
	return rows, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, domain.Berlin); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func parseAction(s string) domain.SubscriptionAction {
	switch strings.TrimSpace(s) {
	case actionSubscribe:
		return domain.ActionSubscribe
	case actionUnsubscribe:
		return domain.ActionUnsubscribe
	default:
		return domain.ActionUnknown
	}
}
