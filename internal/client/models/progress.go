package models

import "time"

// ProgressRecord is durable evidence that a user completed a lesson.
// At most one exists per (UserID, CourseSlug, LessonSlug).
type ProgressRecord struct {
	ID          string    `json:"id,omitempty"`
	UserID      string    `json:"user_id"`
	CourseSlug  string    `json:"course_slug"`
	UnitOrder   int       `json:"unit_order"`
	LessonSlug  string    `json:"lesson_slug"`
	CompletedAt time.Time `json:"completed_at"`
	QuizScore   *int      `json:"quiz_score,omitempty"`
	QuizTotal   *int      `json:"quiz_total,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// CourseProgress is the server-computed aggregate for one course.
type CourseProgress struct {
	TotalLessons         int     `json:"total_lessons"`
	CompletedLessons     int     `json:"completed_lessons"`
	CurrentUnit          int     `json:"current_unit"`
	CurrentLesson        *string `json:"current_lesson"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

// EmptyCourseProgress is what callers see when no aggregate is available.
func EmptyCourseProgress() CourseProgress {
	return CourseProgress{CurrentUnit: 1}
}
