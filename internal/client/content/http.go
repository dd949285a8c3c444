package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPSource serves documents from a static file host.
type HTTPSource struct {
	base   string
	client *http.Client
}

func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{base: strings.TrimRight(baseURL, "/"), client: client}
}

func (s *HTTPSource) Course(ctx context.Context, slug string) (*Course, error) {
	return loadCourse(ctx, s.fetch, slug)
}

func (s *HTTPSource) Lesson(ctx context.Context, course, lesson string) (*Lesson, error) {
	return loadLesson(ctx, s.fetch, course, lesson)
}

func (s *HTTPSource) fetch(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/"+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s: status %d", path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
