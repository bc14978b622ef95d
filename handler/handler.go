package handler

import (
	"net/http"
)

// HandlerFunc handles a request whose input has already been bound into req.
type HandlerFunc[R any] func(r *http.Request, req R) Response

// Response renders itself to an http.ResponseWriter. A Render error is
// passed to the ErrorHandler when nothing has been written yet.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Bind parses an HTTP request into v.
type Bind func(r *http.Request, v any) error

// ErrorHandler writes the response for a failed request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Option configures Wrap.
type Option func(*wrapConfig)

type wrapConfig struct {
	binders      []Bind
	errorHandler ErrorHandler
}

// WithBinders applies binders in order before the handler runs.
func WithBinders(binders ...Bind) Option {
	return func(c *wrapConfig) {
		for _, b := range binders {
			if b != nil {
				c.binders = append(c.binders, b)
			}
		}
	}
}

// WithErrorHandler replaces the default plain-text error handler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *wrapConfig) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// Wrap converts a typed HandlerFunc into an http.HandlerFunc.
//
//	r.Post("/cancel-subscription", handler.Wrap(h.cancel,
//	    handler.WithBinders(binder.JSON()),
//	    handler.WithErrorHandler(errs),
//	))
func Wrap[R any](h HandlerFunc[R], opts ...Option) http.HandlerFunc {
	cfg := &wrapConfig{errorHandler: defaultErrorHandler}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req R
		for _, bind := range cfg.binders {
			if err := bind(r, &req); err != nil {
				cfg.errorHandler(w, r, err)
				return
			}
		}

		resp := h(r, req)
		if resp == nil {
			cfg.errorHandler(w, r, ErrNilResponse)
			return
		}
		if err := resp.Render(w, r); err != nil {
			cfg.errorHandler(w, r, err)
		}
	}
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status := StatusOf(err)
	http.Error(w, http.StatusText(status), status)
}
