package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// FSSource reads documents from a file system, e.g. a checkout of the
// content repository.
type FSSource struct {
	fsys fs.FS
}

func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// NewDirSource is an FSSource rooted at dir.
func NewDirSource(dir string) *FSSource {
	return NewFSSource(os.DirFS(dir))
}

func (s *FSSource) Course(ctx context.Context, slug string) (*Course, error) {
	return loadCourse(ctx, s.fetch, slug)
}

func (s *FSSource) Lesson(ctx context.Context, course, lesson string) (*Lesson, error) {
	return loadLesson(ctx, s.fetch, course, lesson)
}

func (s *FSSource) fetch(_ context.Context, path string) ([]byte, error) {
	data, err := fs.ReadFile(s.fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return data, err
}
