package repo_test

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fishing-exam-alert/backend/internal/domain"
	"github.com/fishing-exam-alert/backend/testutil"
)

func newTestTx(t *testing.T) pgx.Tx {
	t.Helper()
	return testutil.NewTx(t)
}

func subscriberFixture(email string) domain.Subscriber {
	maxTravel := 45
	return domain.Subscriber{
		Email:              email,
		Active:             true,
		PostalCode:         "80331",
		Districts:          []domain.District{domain.Oberbayern, domain.Schwaben},
		MaxTravelMinutes:   &maxTravel,
		NeedDisabledAccess: true,
	}
}

func examFixture(examID string) domain.Exam {
	return domain.Exam{
		ExamID:              examID,
		Name:                "Gasthof Post",
		Street:              "Hauptstraße",
		StreetNumber:        "1",
		City:                "Augsburg",
		PostalCode:          "86150",
		District:            domain.Schwaben,
		Start:               time.Date(2099, 3, 14, 9, 0, 0, 0, time.UTC),
		MinParticipants:     10,
		MaxParticipants:     40,
		CurrentParticipants: 12,
		Status:              domain.StatusOpen,
		DisabledAccess:      true,
	}
}
