package rest

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/tutorly/internal/client/models"
	"github.com/dmitrijs2005/tutorly/internal/common"
)

const progressConflictKey = "user_id,course_slug,lesson_slug"

func (c *Client) ListProgress(ctx context.Context, userID, courseSlug string) ([]models.ProgressRecord, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	q := url.Values{
		"select":  {"*"},
		"user_id": {"eq." + userID},
		"order":   {"completed_at.asc"},
	}
	if courseSlug != "" {
		q.Set("course_slug", "eq."+courseSlug)
	}

	records := make([]models.ProgressRecord, 0)
	err = c.do(ctx, request{method: http.MethodGet, path: "/rest/v1/user_progress", query: q, bearer: token}, &records)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// upsertRow leaves out server-managed columns so the merge keeps them.
type upsertRow struct {
	UserID      string `json:"user_id"`
	CourseSlug  string `json:"course_slug"`
	UnitOrder   int    `json:"unit_order"`
	LessonSlug  string `json:"lesson_slug"`
	CompletedAt string `json:"completed_at"`
	QuizScore   *int   `json:"quiz_score"`
	QuizTotal   *int   `json:"quiz_total"`
}

// UpsertProgress relies on the unique (user_id, course_slug, lesson_slug)
// constraint: PostgREST turns the insert into ON CONFLICT DO UPDATE.
func (c *Client) UpsertProgress(ctx context.Context, rec models.ProgressRecord) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	row := upsertRow{
		UserID:      rec.UserID,
		CourseSlug:  rec.CourseSlug,
		UnitOrder:   rec.UnitOrder,
		LessonSlug:  rec.LessonSlug,
		CompletedAt: rec.CompletedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		QuizScore:   rec.QuizScore,
		QuizTotal:   rec.QuizTotal,
	}
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/user_progress",
		query:  url.Values{"on_conflict": {progressConflictKey}},
		body:   []upsertRow{row},
		bearer: token,
		header: http.Header{common.PreferHeaderName: {"resolution=merge-duplicates,return=minimal"}},
	}, nil)
}

func (c *Client) GetCourseProgress(ctx context.Context, userID, courseSlug string) (models.CourseProgress, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return models.EmptyCourseProgress(), err
	}
	var rows []models.CourseProgress
	err = c.do(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/rpc/get_course_progress",
		body:   map[string]string{"p_user_id": userID, "p_course_slug": courseSlug},
		bearer: token,
	}, &rows)
	if err != nil {
		return models.EmptyCourseProgress(), err
	}
	if len(rows) == 0 {
		return models.EmptyCourseProgress(), nil
	}
	return rows[0], nil
}
