// Package nav models the client's current location and history stack, the
// terminal counterpart of a browser's location bar.
package nav

import (
	"net/url"
	"strings"
	"sync"
)

// Location is a parsed in-app URL. Fragment excludes the leading '#'.
type Location struct {
	Path     string
	Query    string
	Fragment string
}

// Parse accepts an absolute URL or a bare path such as
// "/login?next=/courses#type=recovery".
func Parse(raw string) (Location, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Location{}, err
	}
	loc := Location{Path: u.Path, Query: u.RawQuery, Fragment: u.EscapedFragment()}
	if loc.Path == "" {
		loc.Path = "/"
	}
	return loc, nil
}

func (l Location) String() string {
	s := l.Path
	if l.Query != "" {
		s += "?" + l.Query
	}
	if l.Fragment != "" {
		s += "#" + l.Fragment
	}
	return s
}

// WithoutFragment is l with the fragment stripped.
func (l Location) WithoutFragment() Location {
	l.Fragment = ""
	return l
}

// History is safe for concurrent use. Listeners run after every change,
// outside the lock.
type History struct {
	mu        sync.Mutex
	entries   []Location
	reloads   int
	listeners map[int]func(Location)
	nextID    int
}

func NewHistory(start Location) *History {
	if start.Path == "" {
		start.Path = "/"
	}
	return &History{entries: []Location{start}, listeners: make(map[int]func(Location))}
}

func (h *History) Current() Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[len(h.entries)-1]
}

// Entries returns the stack, oldest first.
func (h *History) Entries() []Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Location(nil), h.entries...)
}

// Reloads counts full navigations made with Assign.
func (h *History) Reloads() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reloads
}

// ReplaceURL rewrites the current entry without notifying listeners, like
// history.replaceState.
func (h *History) ReplaceURL(loc Location) {
	h.mu.Lock()
	h.entries[len(h.entries)-1] = loc
	h.mu.Unlock()
}

// Navigate performs an in-app route change to path, which may carry a query
// and fragment. replace overwrites the current entry instead of pushing.
func (h *History) Navigate(path string, replace bool) {
	loc, err := Parse(path)
	if err != nil {
		loc = Location{Path: path}
	}

	h.mu.Lock()
	if replace {
		h.entries[len(h.entries)-1] = loc
	} else {
		h.entries = append(h.entries, loc)
	}
	h.mu.Unlock()
	h.emit(loc)
}

// Assign is a full navigation: the stack restarts at path and the reload
// counter moves, so anything holding in-memory state must rebuild it.
func (h *History) Assign(path string) {
	loc, err := Parse(path)
	if err != nil {
		loc = Location{Path: path}
	}

	h.mu.Lock()
	h.entries = []Location{loc}
	h.reloads++
	h.mu.Unlock()
	h.emit(loc)
}

// OnChange registers fn for every Navigate and Assign.
func (h *History) OnChange(fn func(Location)) (remove func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

func (h *History) emit(loc Location) {
	h.mu.Lock()
	fns := make([]func(Location), 0, len(h.listeners))
	for i := 0; i < h.nextID; i++ {
		if fn, ok := h.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn(loc)
	}
}
