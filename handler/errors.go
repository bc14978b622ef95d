package handler

import (
	"errors"
	"net/http"
)

var ErrNilResponse = errors.New("handler returned nil response")

// HTTPError carries a status code to the error handler.
type HTTPError struct {
	Code    int
	Message string
}

func (e HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Code)
}

var (
	ErrBadRequest            = HTTPError{Code: http.StatusBadRequest}
	ErrNotFound              = HTTPError{Code: http.StatusNotFound}
	ErrMethodNotAllowed      = HTTPError{Code: http.StatusMethodNotAllowed}
	ErrRequestEntityTooLarge = HTTPError{Code: http.StatusRequestEntityTooLarge}
	ErrUnsupportedMediaType  = HTTPError{Code: http.StatusUnsupportedMediaType}
	ErrBadGateway            = HTTPError{Code: http.StatusBadGateway}
	ErrInternalServerError   = HTTPError{Code: http.StatusInternalServerError}
)

// StatusOf returns the code of the first HTTPError in err's tree, or 500.
func StatusOf(err error) int {
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr.Code != 0 {
		return httpErr.Code
	}
	return http.StatusInternalServerError
}
