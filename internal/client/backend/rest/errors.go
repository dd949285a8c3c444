package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/tutorly/internal/client/backend"
)

// apiError covers both GoTrue and PostgREST error bodies.
type apiError struct {
	Code             any    `json:"code"`
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Hint             string `json:"hint"`
}

func (e apiError) text() string {
	for _, s := range []string{e.Message, e.Msg, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// mapStatus translates an HTTP error response to a backend sentinel.
// PostgREST reports an expired JWT as 401 PGRST301, which lands on
// ErrUnauthorized like any other auth failure.
func mapStatus(status int, body []byte) error {
	var e apiError
	_ = json.Unmarshal(body, &e)
	msg := e.text()
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", backend.ErrUnauthorized, msg)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", backend.ErrNotFound, msg)
	case status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", backend.ErrUnavailable, msg)
	default:
		return fmt.Errorf("backend error %d: %s", status, msg)
	}
}
