// Package quiz grades lesson quizzes. A quiz is passed at 70% or better.
package quiz

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/dmitrijs2005/tutorly/internal/client/content"
)

// PassPercent is the minimum score, in percent, that completes a lesson.
const PassPercent = 70

// Unanswered marks a question without a chosen answer.
const Unanswered = -1

var ErrBadSlug = errors.New("lesson slug has no unit prefix")

type Result struct {
	Score int
	Total int
	// Mistakes holds the indexes of questions answered wrongly or not at all.
	Mistakes []int
}

// Grade scores answers against questions. answers[i] is the chosen choice
// index for questions[i]; missing entries count as Unanswered.
func Grade(questions []content.Question, answers []int) Result {
	r := Result{Total: len(questions)}
	for i, q := range questions {
		a := Unanswered
		if i < len(answers) {
			a = answers[i]
		}
		if a == q.CorrectIndex {
			r.Score++
		} else {
			r.Mistakes = append(r.Mistakes, i)
		}
	}
	return r
}

// Passed reports Score/Total >= 70%. An empty quiz never passes.
func (r Result) Passed() bool {
	return r.Total > 0 && r.Score*100 >= PassPercent*r.Total
}

// Percent is the score as a rounded percentage.
func (r Result) Percent() int {
	if r.Total == 0 {
		return 0
	}
	return int(math.Round(float64(r.Score) * 100 / float64(r.Total)))
}

// UnitOrderFromSlug reads the leading number of a lesson slug:
// "02-comparison-operators" is in unit 2.
func UnitOrderFromSlug(slug string) (int, error) {
	end := 0
	for end < len(slug) && slug[end] >= '0' && slug[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadSlug, slug)
	}
	n, err := strconv.Atoi(slug[:end])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadSlug, slug)
	}
	return n, nil
}
