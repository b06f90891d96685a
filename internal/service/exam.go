package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fishing-exam-alert/backend/internal/domain"
	"github.com/fishing-exam-alert/backend/internal/metrics"
	"github.com/fishing-exam-alert/backend/internal/repo"
)

// ExamSource fetches the current exam listing. Implementations return
// domain.ErrStructure when the listing cannot be read consistently.
type ExamSource interface {
	Fetch(ctx context.Context) ([]domain.Exam, error)
}

// ExamService ingests scraped exams into the exam store.
type ExamService struct {
	repo    repo.ExamRepo
	source  ExamSource
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewExamService constructs an ExamService.
func NewExamService(r repo.ExamRepo, src ExamSource, logger *slog.Logger, m *metrics.Metrics) *ExamService {
	return &ExamService{repo: r, source: src, logger: logger, metrics: m}
}

// Sync scrapes the exam site and ingests the result. A scrape failure aborts
// before the store is touched.
func (s *ExamService) Sync(ctx context.Context) (int, error) {
	exams, err := s.source.Fetch(ctx)
	if err != nil {
		return 0, fmt.Errorf("service.ExamService.Sync: %w", err)
	}
	return s.Ingest(ctx, exams)
}

// Ingest validates the batch and upserts it atomically, replacing every
// field of existing exams. An unknown district or a missing exam id is fatal
// and nothing is written. An exam with an unknown status is stored as
// StatusUnknown so a previously open row stops matching.
func (s *ExamService) Ingest(ctx context.Context, exams []domain.Exam) (int, error) {
	valid := make([]domain.Exam, 0, len(exams))
	for _, e := range exams {
		e.ExamID = strings.TrimSpace(e.ExamID)
		if e.ExamID == "" {
			return 0, fmt.Errorf("service.ExamService.Ingest: %w: exam without id", domain.ErrStructure)
		}

		district, err := domain.ParseDistrict(string(e.District))
		if err != nil {
			return 0, fmt.Errorf("service.ExamService.Ingest: exam %s: %w", e.ExamID, err)
		}
		e.District = district

		status, err := domain.ParseExamStatus(string(e.Status))
		if err != nil {
			if errors.Is(err, domain.ErrUnknownStatus) {
				s.logger.WarnContext(ctx, "exam has unknown status",
					"exam_id", e.ExamID, "status", string(e.Status))
				status = domain.StatusUnknown
			} else {
				return 0, fmt.Errorf("service.ExamService.Ingest: exam %s: %w", e.ExamID, err)
			}
		}
		e.Status = status

		valid = append(valid, e)
	}

	n, err := s.repo.UpsertMany(ctx, valid)
	if err != nil {
		return 0, fmt.Errorf("service.ExamService.Ingest: %w", err)
	}
	s.metrics.ExamsIngested.Add(float64(n))
	s.logger.InfoContext(ctx, "exams ingested", "scraped", len(exams), "written", n)
	return n, nil
}
