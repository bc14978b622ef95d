package handler

import (
	"encoding/json"
	"net/http"
)

type jsonResponse struct {
	status int
	body   any
}

func (j jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	buf, err := json.Marshal(j.body)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	_, err = w.Write(append(buf, '\n'))
	return err
}

// JSONOption configures a JSON response.
type JSONOption func(*jsonResponse)

// WithStatus overrides the default 200 status.
func WithStatus(status int) JSONOption {
	return func(r *jsonResponse) {
		if status > 0 {
			r.status = status
		}
	}
}

// JSON renders v as the response body. The body is encoded before any
// header is written, so encoding failures still reach the error handler.
func JSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusOK, body: v}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type errorResponse struct {
	err error
}

func (e errorResponse) Render(http.ResponseWriter, *http.Request) error {
	return e.err
}

// Error defers err to the configured ErrorHandler.
func Error(err error) Response {
	if err == nil {
		err = ErrInternalServerError
	}
	return errorResponse{err: err}
}
