package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/tutorly/internal/client/content"
	"github.com/dmitrijs2005/tutorly/internal/client/quiz"
	"github.com/dmitrijs2005/tutorly/internal/logging"
)

var ErrNoQuiz = errors.New("lesson has no quiz")

// Completer records lesson completions; progress.Tracker implements it.
type Completer interface {
	MarkLessonComplete(ctx context.Context, course string, unit int, lesson string, score, total *int) error
	IsLessonCompleted(course, lesson string) bool
}

// Submission is the outcome of a quiz attempt. Recorded is true when the
// attempt passed and the completion was saved.
type Submission struct {
	Result   quiz.Result
	Recorded bool
}

// LessonService defines the learning operations for the CLI.
type LessonService interface {
	Course(ctx context.Context, slug string) (*content.Course, error)
	Lesson(ctx context.Context, course, lesson string) (*content.Lesson, error)
	// SubmitQuiz grades answers and, on a pass, marks the lesson complete.
	// The graded result is returned even when saving fails.
	SubmitQuiz(ctx context.Context, course, lesson string, answers []int) (Submission, error)
	Completed(course, lesson string) bool
}

// OutlineRegistrar publishes the lesson outline of a course to the store
// that computes course progress.
type OutlineRegistrar interface {
	RegisterOutline(ctx context.Context, c *content.Course) error
}

type lessonService struct {
	source  content.Source
	tracker Completer

	outlines   OutlineRegistrar
	logger     logging.Logger
	mu         sync.Mutex
	registered map[string]bool
}

type LessonOption func(*lessonService)

// WithOutlineRegistrar publishes each course outline once, the first time
// the course loads. A failed publish is logged and retried on the next
// load.
func WithOutlineRegistrar(r OutlineRegistrar, logger logging.Logger) LessonOption {
	return func(s *lessonService) {
		s.outlines = r
		s.logger = logger
	}
}

func NewLessonService(source content.Source, tracker Completer, opts ...LessonOption) LessonService {
	s := &lessonService{source: source, tracker: tracker, registered: map[string]bool{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *lessonService) Course(ctx context.Context, slug string) (*content.Course, error) {
	c, err := s.source.Course(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("load course %s: %w", slug, err)
	}
	s.registerOutline(ctx, c)
	return c, nil
}

func (s *lessonService) registerOutline(ctx context.Context, c *content.Course) {
	if s.outlines == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registered[c.Slug] {
		return
	}
	if err := s.outlines.RegisterOutline(ctx, c); err != nil {
		if s.logger != nil {
			s.logger.Warn(ctx, "publishing course outline failed", "course", c.Slug, "err", err)
		}
		return
	}
	s.registered[c.Slug] = true
}

func (s *lessonService) Lesson(ctx context.Context, course, lesson string) (*content.Lesson, error) {
	l, err := s.source.Lesson(ctx, course, lesson)
	if err != nil {
		return nil, fmt.Errorf("load lesson %s/%s: %w", course, lesson, err)
	}
	return l, nil
}

func (s *lessonService) SubmitQuiz(ctx context.Context, course, lesson string, answers []int) (Submission, error) {
	unit, err := quiz.UnitOrderFromSlug(lesson)
	if err != nil {
		return Submission{}, err
	}
	l, err := s.Lesson(ctx, course, lesson)
	if err != nil {
		return Submission{}, err
	}
	if l.Quiz == nil || len(l.Quiz.Questions) == 0 {
		return Submission{}, ErrNoQuiz
	}

	sub := Submission{Result: quiz.Grade(l.Quiz.Questions, answers)}
	if !sub.Result.Passed() {
		return sub, nil
	}

	score, total := sub.Result.Score, sub.Result.Total
	if err := s.tracker.MarkLessonComplete(ctx, course, unit, lesson, &score, &total); err != nil {
		return sub, fmt.Errorf("failed to save progress: %w", err)
	}
	sub.Recorded = true
	return sub, nil
}

func (s *lessonService) Completed(course, lesson string) bool {
	return s.tracker.IsLessonCompleted(course, lesson)
}
