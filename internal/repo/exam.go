package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fishing-exam-alert/backend/internal/domain"
)

// ExamRepo defines the persistence operations for exams.
type ExamRepo interface {
	// Upsert inserts an exam or replaces every attribute of the existing row
	// with the same exam_id.
	Upsert(ctx context.Context, exam domain.Exam) (domain.Exam, error)

	// UpsertMany upserts all exams in one transaction: either every exam is
	// written or none is. Returns the number of rows written.
	UpsertMany(ctx context.Context, exams []domain.Exam) (int, error)

	// GetByExamID returns the exam with the site-assigned identifier.
	// Returns domain.ErrNotFound if there is none.
	GetByExamID(ctx context.Context, examID string) (domain.Exam, error)

	// List returns all exams matching the filter ordered by start time, then
	// exam_id. The order is stable between calls with unchanged data.
	List(ctx context.Context, f domain.ExamFilter) ([]domain.Exam, error)
}

// pgExamRepo is the Postgres implementation of ExamRepo.
type pgExamRepo struct {
	db db
}

// NewExamRepo constructs an ExamRepo backed by the provided db connection.
func NewExamRepo(db db) ExamRepo {
	return &pgExamRepo{db: db}
}

const examColumns = `id, exam_id, name, street, street_number, city, postal_code, district,
	exam_start, min_participants, max_participants, current_participants, status,
	disabled_access, headphones, created_at, updated_at`

const upsertExamSQL = `
	INSERT INTO exams (exam_id, name, street, street_number, city, postal_code, district,
	                   exam_start, min_participants, max_participants, current_participants,
	                   status, disabled_access, headphones)
	VALUES (@exam_id, @name, @street, @street_number, @city, @postal_code, @district,
	        @exam_start, @min_participants, @max_participants, @current_participants,
	        @status, @disabled_access, @headphones)
	ON CONFLICT (exam_id) DO UPDATE
	SET name                 = EXCLUDED.name,
	    street               = EXCLUDED.street,
	    street_number        = EXCLUDED.street_number,
	    city                 = EXCLUDED.city,
	    postal_code          = EXCLUDED.postal_code,
	    district             = EXCLUDED.district,
	    exam_start           = EXCLUDED.exam_start,
	    min_participants     = EXCLUDED.min_participants,
	    max_participants     = EXCLUDED.max_participants,
	    current_participants = EXCLUDED.current_participants,
	    status               = EXCLUDED.status,
	    disabled_access      = EXCLUDED.disabled_access,
	    headphones           = EXCLUDED.headphones,
	    updated_at           = now()
	RETURNING ` + examColumns

func examArgs(e domain.Exam) pgx.NamedArgs {
	return pgx.NamedArgs{
		"exam_id":              e.ExamID,
		"name":                 e.Name,
		"street":               e.Street,
		"street_number":        e.StreetNumber,
		"city":                 e.City,
		"postal_code":          e.PostalCode,
		"district":             string(e.District),
		"exam_start":           e.Start,
		"min_participants":     e.MinParticipants,
		"max_participants":     e.MaxParticipants,
		"current_participants": e.CurrentParticipants,
		"status":               string(e.Status),
		"disabled_access":      e.DisabledAccess,
		"headphones":           e.Headphones,
	}
}

// Upsert writes a single exam.
func (r *pgExamRepo) Upsert(ctx context.Context, exam domain.Exam) (domain.Exam, error) {
	result, err := scanExam(r.db.QueryRow(ctx, upsertExamSQL, examArgs(exam)))
	if err != nil {
		return domain.Exam{}, fmt.Errorf("repo.ExamRepo.Upsert: %w", err)
	}
	return result, nil
}

// UpsertMany writes all exams inside one transaction.
func (r *pgExamRepo) UpsertMany(ctx context.Context, exams []domain.Exam) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("repo.ExamRepo.UpsertMany: begin: %w", err)
	}
	// Rollback after Commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	for _, e := range exams {
		if _, err := tx.Exec(ctx, upsertExamSQL, examArgs(e)); err != nil {
			return 0, fmt.Errorf("repo.ExamRepo.UpsertMany: exam %s: %w", e.ExamID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("repo.ExamRepo.UpsertMany: commit: %w", err)
	}
	return len(exams), nil
}

// GetByExamID retrieves an exam by its natural key.
func (r *pgExamRepo) GetByExamID(ctx context.Context, examID string) (domain.Exam, error) {
	q := `SELECT ` + examColumns + ` FROM exams WHERE exam_id = @exam_id`

	result, err := scanExam(r.db.QueryRow(ctx, q, pgx.NamedArgs{"exam_id": examID}))
	if err != nil {
		return domain.Exam{}, fmt.Errorf("repo.ExamRepo.GetByExamID: %w", err)
	}
	return result, nil
}

// List applies every filter predicate in SQL. Empty status and an empty
// district list disable the respective predicate; the accessibility flags
// only ever add a constraint.
func (r *pgExamRepo) List(ctx context.Context, f domain.ExamFilter) ([]domain.Exam, error) {
	q := `
		SELECT ` + examColumns + `
		FROM exams
		WHERE (@status = '' OR status = @status)
		  AND exam_start > @start_after
		  AND (cardinality(@districts::text[]) = 0 OR district = ANY(@districts::text[]))
		  AND (NOT @require_disabled_access OR disabled_access)
		  AND (NOT @require_headphones OR headphones)
		ORDER BY exam_start, exam_id`

	args := pgx.NamedArgs{
		"status":                  string(f.Status),
		"start_after":             f.StartAfter,
		"districts":               districtStrings(f.Districts),
		"require_disabled_access": f.RequireDisabledAccess,
		"require_headphones":      f.RequireHeadphones,
	}

	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("repo.ExamRepo.List: %w", err)
	}
	defer rows.Close()

	var exams []domain.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.ExamRepo.List: scan: %w", err)
		}
		exams = append(exams, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ExamRepo.List: rows: %w", err)
	}
	return exams, nil
}

// scanExam maps a single database row into a domain.Exam.
func scanExam(s scanner) (domain.Exam, error) {
	var (
		e        domain.Exam
		id       pgtype.UUID
		district string
		status   string
	)

	err := s.Scan(&id, &e.ExamID, &e.Name, &e.Street, &e.StreetNumber, &e.City, &e.PostalCode,
		&district, &e.Start, &e.MinParticipants, &e.MaxParticipants, &e.CurrentParticipants,
		&status, &e.DisabledAccess, &e.Headphones, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Exam{}, domain.ErrNotFound
		}
		return domain.Exam{}, err
	}

	e.ID = uuid.UUID(id.Bytes)
	e.District = domain.District(district)
	e.Status = domain.ExamStatus(status)
	return e, nil
}
