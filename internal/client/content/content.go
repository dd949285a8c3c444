// Package content loads course outlines and lesson documents.
//
// Documents are JSON files laid out as
//
//	{course}/index.json
//	{course}/lessons/{lesson}.json
//
// under a root that can be an HTTP base URL, an S3 bucket prefix or a local
// directory.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrNotFound = errors.New("content not found")

type Course struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Units       []Unit `json:"units"`
}

type Unit struct {
	Order   int         `json:"order"`
	Title   string      `json:"title"`
	Lessons []LessonRef `json:"lessons"`
}

type LessonRef struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// LessonCount is the number of lessons over all units.
func (c *Course) LessonCount() int {
	n := 0
	for _, u := range c.Units {
		n += len(u.Lessons)
	}
	return n
}

// Completion counts the lessons done reports as completed and the rounded
// percentage they make of the course.
func (c *Course) Completion(done func(lesson string) bool) (completed, total, percent int) {
	for _, u := range c.Units {
		for _, l := range u.Lessons {
			total++
			if done(l.Slug) {
				completed++
			}
		}
	}
	if total > 0 {
		percent = int(math.Round(float64(completed) * 100 / float64(total)))
	}
	return completed, total, percent
}

// UnitOf returns the unit order a lesson belongs to, or 0.
func (c *Course) UnitOf(lesson string) int {
	for _, u := range c.Units {
		for _, l := range u.Lessons {
			if l.Slug == lesson {
				return u.Order
			}
		}
	}
	return 0
}

type Lesson struct {
	Title     string    `json:"title"`
	UnitOrder int       `json:"unit_order,omitempty"`
	Meta      Meta      `json:"meta"`
	Sections  []Section `json:"sections"`
	Quiz      *Quiz     `json:"quiz,omitempty"`
}

type Meta struct {
	NoCoding bool `json:"noCoding"`
}

// Section kinds.
const (
	SectionObjectives  = "objectives"
	SectionExplanation = "explanation"
	SectionTable       = "table"
	SectionFunFact     = "funfact"
	SectionSummary     = "summary"
)

// Section is one block of a lesson; which fields are set depends on Type.
type Section struct {
	Type       string     `json:"type"`
	Heading    string     `json:"heading,omitempty"`
	Items      []string   `json:"items,omitempty"`
	Paragraphs []string   `json:"paragraphs,omitempty"`
	Bullets    []string   `json:"bullets,omitempty"`
	Headers    []string   `json:"headers,omitempty"`
	Rows       [][]string `json:"rows,omitempty"`
	Text       string     `json:"text,omitempty"`
	Next       *Link      `json:"next,omitempty"`
}

type Link struct {
	Href  string `json:"href"`
	Label string `json:"label"`
}

type Quiz struct {
	Questions []Question `json:"questions"`
}

type Question struct {
	ID           string   `json:"id"`
	Prompt       string   `json:"prompt"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correctIndex"`
}

// Source fetches content documents.
type Source interface {
	Course(ctx context.Context, slug string) (*Course, error)
	Lesson(ctx context.Context, course, lesson string) (*Lesson, error)
}

func checkSlug(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\?#`) {
		return fmt.Errorf("invalid slug %q", s)
	}
	return nil
}

func coursePath(slug string) (string, error) {
	if err := checkSlug(slug); err != nil {
		return "", err
	}
	return slug + "/index.json", nil
}

func lessonPath(course, lesson string) (string, error) {
	if err := checkSlug(course); err != nil {
		return "", err
	}
	if err := checkSlug(lesson); err != nil {
		return "", err
	}
	return course + "/lessons/" + lesson + ".json", nil
}

// fetcher reads one document by its relative path.
type fetcher func(ctx context.Context, path string) ([]byte, error)

func loadCourse(ctx context.Context, fetch fetcher, slug string) (*Course, error) {
	p, err := coursePath(slug)
	if err != nil {
		return nil, err
	}
	var c Course
	if err := decode(ctx, fetch, p, &c); err != nil {
		return nil, err
	}
	if c.Slug == "" {
		c.Slug = slug
	}
	return &c, nil
}

func loadLesson(ctx context.Context, fetch fetcher, course, lesson string) (*Lesson, error) {
	p, err := lessonPath(course, lesson)
	if err != nil {
		return nil, err
	}
	var l Lesson
	if err := decode(ctx, fetch, p, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func decode(ctx context.Context, fetch fetcher, path string, v any) error {
	data, err := fetch(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
