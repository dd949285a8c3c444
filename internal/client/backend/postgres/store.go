// Package postgres is a backend.ProgressStore over a Postgres database the
// operator runs directly, without the REST gateway in front. It carries the
// same natural-key upsert and the get_course_progress aggregate.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tutorly/internal/client/backend"
	"github.com/dmitrijs2005/tutorly/internal/client/backend/postgres/migrations"
	"github.com/dmitrijs2005/tutorly/internal/client/models"
	"github.com/dmitrijs2005/tutorly/internal/dbx"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Store implements backend.ProgressStore over a dbx.DBTX (*sql.DB or *sql.Tx).
type Store struct {
	db    dbx.DBTX
	newID func() string
}

var _ backend.ProgressStore = (*Store)(nil)

func NewStore(db dbx.DBTX) *Store {
	return &Store{db: db, newID: uuid.NewString}
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return gooseUpContext(ctx, db, ".")
}

// Open connects through the pgx stdlib driver and migrates the schema.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return db, nil
}

func checkUserID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: malformed user id %q", backend.ErrUnauthorized, id)
	}
	return nil
}

const selectProgress = `SELECT id, user_id, course_slug, unit_order, lesson_slug, completed_at,
	quiz_score, quiz_total, created_at, updated_at FROM user_progress`

func (s *Store) ListProgress(ctx context.Context, userID, courseSlug string) ([]models.ProgressRecord, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}

	query := selectProgress + ` WHERE user_id = $1 ORDER BY completed_at`
	args := []any{userID}
	if courseSlug != "" {
		query = selectProgress + ` WHERE user_id = $1 AND course_slug = $2 ORDER BY completed_at`
		args = append(args, courseSlug)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select progress: %w", err)
	}
	defer rows.Close()

	result := make([]models.ProgressRecord, 0)
	for rows.Next() {
		var (
			rec          models.ProgressRecord
			score, total sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.CourseSlug, &rec.UnitOrder, &rec.LessonSlug,
			&rec.CompletedAt, &score, &total, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.QuizScore = nullableInt(score)
		rec.QuizTotal = nullableInt(total)
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

// UpsertProgress inserts or, on the (user, course, lesson) key, updates the
// record in one statement. The row id and created_at survive an update.
func (s *Store) UpsertProgress(ctx context.Context, rec models.ProgressRecord) error {
	if err := checkUserID(rec.UserID); err != nil {
		return err
	}
	query := `
		INSERT INTO user_progress (id, user_id, course_slug, unit_order, lesson_slug, completed_at, quiz_score, quiz_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, course_slug, lesson_slug)
		DO UPDATE SET
			unit_order = EXCLUDED.unit_order,
			completed_at = EXCLUDED.completed_at,
			quiz_score = EXCLUDED.quiz_score,
			quiz_total = EXCLUDED.quiz_total,
			updated_at = now();
	`
	res, err := s.db.ExecContext(ctx, query, s.newID(), rec.UserID, rec.CourseSlug, rec.UnitOrder,
		rec.LessonSlug, rec.CompletedAt, rec.QuizScore, rec.QuizTotal)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

func (s *Store) GetCourseProgress(ctx context.Context, userID, courseSlug string) (models.CourseProgress, error) {
	if err := checkUserID(userID); err != nil {
		return models.EmptyCourseProgress(), err
	}

	var (
		p      models.CourseProgress
		lesson sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT total_lessons, completed_lessons, current_unit, current_lesson, completion_percentage
		 FROM get_course_progress($1, $2)`, userID, courseSlug,
	).Scan(&p.TotalLessons, &p.CompletedLessons, &p.CurrentUnit, &lesson, &p.CompletionPercentage)
	if errors.Is(err, sql.ErrNoRows) {
		return models.EmptyCourseProgress(), nil
	}
	if err != nil {
		return models.EmptyCourseProgress(), fmt.Errorf("failed to get course progress: %w", err)
	}
	if lesson.Valid {
		p.CurrentLesson = &lesson.String
	}
	return p, nil
}

// LessonRef places one lesson of a course outline.
type LessonRef struct {
	UnitOrder  int
	LessonSlug string
}

// RegisterCourse replaces the outline of courseSlug used by the aggregate.
func RegisterCourse(ctx context.Context, db *sql.DB, courseSlug string, lessons []LessonRef) error {
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM course_lessons WHERE course_slug = $1`, courseSlug); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		for _, l := range lessons {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO course_lessons (course_slug, unit_order, lesson_slug) VALUES ($1, $2, $3)`,
				courseSlug, l.UnitOrder, l.LessonSlug); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
		}
		return nil
	})
}
