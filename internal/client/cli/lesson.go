package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/tutorly/internal/client/content"
	"github.com/dmitrijs2005/tutorly/internal/client/progress"
	"github.com/dmitrijs2005/tutorly/internal/client/quiz"
)

// getChoice is a test seam for GetChoice.
var getChoice = GetChoice

// Course prints the outline of a course with a check mark next to every
// completed lesson.
func (a *App) Course(ctx context.Context, slug string) error {
	c, err := a.lessonService.Course(ctx, slug)
	if err != nil {
		return err
	}

	printlnFn(c.Title)
	if c.Description != "" {
		printlnFn(c.Description)
	}
	for _, u := range c.Units {
		printlnFn(fmt.Sprintf("Unit %d: %s", u.Order, u.Title))
		for _, l := range u.Lessons {
			mark := " "
			if a.lessonService.Completed(slug, l.Slug) {
				mark = "x"
			}
			printlnFn(fmt.Sprintf("  [%s] %s (%s)", mark, l.Title, l.Slug))
		}
	}

	if a.isLoggedIn() {
		done, total, pct := c.Completion(func(lesson string) bool {
			return a.lessonService.Completed(slug, lesson)
		})
		printlnFn(fmt.Sprintf("Completed %d of %d lessons (%d%%)", done, total, pct))
	}
	return nil
}

// Lesson prints the sections of a lesson.
func (a *App) Lesson(ctx context.Context, course, lesson string) error {
	l, err := a.lessonService.Lesson(ctx, course, lesson)
	if err != nil {
		return err
	}

	printlnFn("== " + l.Title + " ==")
	if a.lessonService.Completed(course, lesson) {
		printlnFn("(completed)")
	}
	for _, s := range l.Sections {
		printSection(s)
	}
	if l.Quiz != nil && len(l.Quiz.Questions) > 0 {
		printlnFn(fmt.Sprintf("This lesson has a %d question quiz: quiz %s %s", len(l.Quiz.Questions), course, lesson))
	}
	return nil
}

func printSection(s content.Section) {
	if s.Heading != "" {
		printlnFn("-- " + s.Heading + " --")
	}
	switch s.Type {
	case content.SectionTable:
		if len(s.Headers) > 0 {
			printlnFn(strings.Join(s.Headers, " | "))
		}
		for _, r := range s.Rows {
			printlnFn(strings.Join(r, " | "))
		}
	case content.SectionFunFact:
		printlnFn("Fun fact: " + s.Text)
	default:
		if s.Text != "" {
			printlnFn(s.Text)
		}
	}
	for _, p := range s.Paragraphs {
		printlnFn(p)
	}
	for _, it := range s.Items {
		printlnFn("  * " + it)
	}
	for _, b := range s.Bullets {
		printlnFn("  - " + b)
	}
	if s.Next != nil {
		printlnFn("Next: " + s.Next.Label + " (" + s.Next.Href + ")")
	}
}

// Quiz asks every question of a lesson's quiz and submits the answers. A
// pass at 70% or better marks the lesson complete for a signed-in user.
func (a *App) Quiz(ctx context.Context, course, lesson string) error {
	l, err := a.lessonService.Lesson(ctx, course, lesson)
	if err != nil {
		return err
	}
	if l.Quiz == nil || len(l.Quiz.Questions) == 0 {
		printlnFn("This lesson has no quiz.")
		return nil
	}

	answers := make([]int, len(l.Quiz.Questions))
	for i, q := range l.Quiz.Questions {
		prompt := fmt.Sprintf("Q%d. %s", i+1, q.Prompt)
		answers[i], err = getChoice(a.reader, prompt, q.Choices, a.out)
		if err != nil {
			return err
		}
	}

	sub, err := a.lessonService.SubmitQuiz(ctx, course, lesson, answers)
	r := sub.Result
	if r.Total > 0 {
		printlnFn(fmt.Sprintf("Score: %d/%d (%d%%)", r.Score, r.Total, r.Percent()))
		for _, m := range r.Mistakes {
			q := l.Quiz.Questions[m]
			if q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Choices) {
				printlnFn(fmt.Sprintf("  Q%d: correct answer is %q", m+1, q.Choices[q.CorrectIndex]))
			}
		}
	}
	if err != nil {
		if errors.Is(err, progress.ErrNoIdentity) {
			printlnFn("Passed! Log in to save your progress.")
			return nil
		}
		return err
	}

	switch {
	case sub.Recorded:
		printlnFn("Passed! Lesson marked complete.")
	case !r.Passed():
		printlnFn(fmt.Sprintf("Not quite: %d%% is needed to pass. Try again.", quiz.PassPercent))
	}
	return nil
}

// Progress prints the server-side aggregate for course, or a per-course
// count of completed lessons when course is empty.
func (a *App) Progress(ctx context.Context, course string) error {
	if !a.isLoggedIn() {
		printlnFn("Log in to see your progress.")
		return nil
	}
	if a.progress.Loading() {
		printlnFn("Progress is still loading...")
	}

	if course == "" {
		counts := map[string]int{}
		for _, r := range a.progress.Records() {
			counts[r.CourseSlug]++
		}
		if len(counts) == 0 {
			printlnFn("No lessons completed yet.")
			return nil
		}
		slugs := make([]string, 0, len(counts))
		for s := range counts {
			slugs = append(slugs, s)
		}
		sort.Strings(slugs)
		for _, s := range slugs {
			printlnFn(fmt.Sprintf("%s: %d lessons completed", s, counts[s]))
		}
		return nil
	}

	p := a.progress.GetCourseProgress(ctx, course)
	printlnFn(fmt.Sprintf("%s: %d/%d lessons (%.0f%%)", course, p.CompletedLessons, p.TotalLessons, p.CompletionPercentage))
	if p.CurrentLesson != nil {
		printlnFn(fmt.Sprintf("Continue with unit %d, lesson %s", p.CurrentUnit, *p.CurrentLesson))
	} else {
		printlnFn(fmt.Sprintf("Continue with unit %d", p.CurrentUnit))
	}
	return nil
}
