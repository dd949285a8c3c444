// Package progress keeps a local mirror of the signed-in user's lesson
// completion records and writes new completions through to the backend.
package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/tutorly/internal/client/backend"
	"github.com/dmitrijs2005/tutorly/internal/client/models"
	"github.com/dmitrijs2005/tutorly/internal/client/session"
	"github.com/dmitrijs2005/tutorly/internal/logging"
)

var ErrNoIdentity = errors.New("no signed-in user")

// Tracker is safe for concurrent use.
type Tracker struct {
	store  backend.ProgressStore
	logger logging.Logger
	now    func() time.Time

	mu       sync.Mutex
	identity *models.Identity
	gen      uint64
	records  []models.ProgressRecord
	loading  bool
	written  map[string]bool // courses re-read since the identity switch

	keys keyLock
	wg   sync.WaitGroup
}

type Option func(*Tracker)

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func New(store backend.ProgressStore, logger logging.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		logger: logger.With("component", "progress"),
		now:    time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// switchIdentity records the new identity and reports whether its records
// need loading, with the generation the load must match.
func (t *Tracker) switchIdentity(identity *models.Identity) (gen uint64, load bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if sameIdentity(t.identity, identity) {
		return t.gen, false
	}
	t.gen++
	t.identity = identity
	t.records = nil
	t.written = nil
	t.loading = identity != nil
	return t.gen, identity != nil
}

func sameIdentity(a, b *models.Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}

func (t *Tracker) load(ctx context.Context, gen uint64, userID string) {
	recs, err := t.store.ListProgress(ctx, userID, "")

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		return
	}
	t.loading = false
	if err != nil {
		t.logger.Warn(ctx, "loading progress failed", "user", userID, "err", err)
		return
	}
	if len(t.written) == 0 {
		t.records = recs
		return
	}
	merged := make([]models.ProgressRecord, 0, len(t.records)+len(recs))
	for _, r := range t.records {
		if t.written[r.CourseSlug] {
			merged = append(merged, r)
		}
	}
	for _, r := range recs {
		if !t.written[r.CourseSlug] {
			merged = append(merged, r)
		}
	}
	t.records = merged
}

// OnIdentityChange reloads every record of identity, or empties the cache
// when identity is nil. A load that finishes after a newer identity change
// is dropped. Courses written while the load was in flight keep their
// cached records.
func (t *Tracker) OnIdentityChange(ctx context.Context, identity *models.Identity) {
	gen, load := t.switchIdentity(identity)
	if load {
		t.load(ctx, gen, identity.ID)
	}
}

// Attach follows the identity of a session store. Loads run in the
// background.
func (t *Tracker) Attach(ctx context.Context, store interface {
	Subscribe(fn func(session.State)) (unsubscribe func())
}) (detach func()) {
	return store.Subscribe(func(st session.State) {
		gen, load := t.switchIdentity(st.Identity)
		if !load {
			return
		}
		id := st.Identity.ID
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.load(ctx, gen, id)
		}()
	})
}

// Wait blocks until background loads started by Attach finish.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// MarkLessonComplete upserts the completion of lesson and then re-reads the
// course's records into the cache. Calls for the same lesson are serialised.
// score and total may be nil for lessons without a quiz.
func (t *Tracker) MarkLessonComplete(ctx context.Context, course string, unit int, lesson string, score, total *int) error {
	t.mu.Lock()
	identity := t.identity
	t.mu.Unlock()
	if identity == nil {
		return ErrNoIdentity
	}

	unlock := t.keys.Lock(identity.ID + "\x00" + course + "\x00" + lesson)
	defer unlock()

	rec := models.ProgressRecord{
		UserID:      identity.ID,
		CourseSlug:  course,
		UnitOrder:   unit,
		LessonSlug:  lesson,
		CompletedAt: t.now().UTC(),
		QuizScore:   score,
		QuizTotal:   total,
	}
	if err := t.store.UpsertProgress(ctx, rec); err != nil {
		return fmt.Errorf("save progress for %s/%s: %w", course, lesson, err)
	}

	recs, err := t.store.ListProgress(ctx, identity.ID, course)
	if err != nil {
		return fmt.Errorf("reload progress for %s: %w", course, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !sameIdentity(t.identity, identity) {
		return nil
	}
	merged := make([]models.ProgressRecord, 0, len(t.records)+len(recs))
	for _, r := range t.records {
		if r.CourseSlug != course {
			merged = append(merged, r)
		}
	}
	t.records = append(merged, recs...)
	if t.written == nil {
		t.written = map[string]bool{}
	}
	t.written[course] = true
	return nil
}

// GetCourseProgress asks the backend for the course aggregate. It never
// fails: without an identity, or on a backend error, it returns
// models.EmptyCourseProgress.
func (t *Tracker) GetCourseProgress(ctx context.Context, course string) models.CourseProgress {
	t.mu.Lock()
	identity := t.identity
	t.mu.Unlock()
	if identity == nil {
		return models.EmptyCourseProgress()
	}

	p, err := t.store.GetCourseProgress(ctx, identity.ID, course)
	if err != nil {
		t.logger.Warn(ctx, "course progress unavailable", "course", course, "err", err)
		return models.EmptyCourseProgress()
	}
	return p
}

// IsLessonCompleted looks at the cache only. It is false while the cache
// is still loading; check Loading to tell the two apart.
func (t *Tracker) IsLessonCompleted(course, lesson string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.records {
		if r.CourseSlug == course && r.LessonSlug == lesson {
			return true
		}
	}
	return false
}

func (t *Tracker) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

// Records returns a copy of the cache.
func (t *Tracker) Records() []models.ProgressRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.ProgressRecord(nil), t.records...)
}
