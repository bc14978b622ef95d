package binder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strings"
)

type jsonOptions struct {
	maxBytes int64
	strict   bool
}

// JSONOption configures the JSON binder.
type JSONOption func(*jsonOptions)

// WithMaxBytes overrides DefaultMaxBodySize.
func WithMaxBytes(n int64) JSONOption {
	return func(o *jsonOptions) {
		if n > 0 {
			o.maxBytes = n
		}
	}
}

// WithStrict rejects unknown fields.
func WithStrict() JSONOption {
	return func(o *jsonOptions) { o.strict = true }
}

// JSON returns a binder that decodes an application/json body into v and
// trims surrounding whitespace from every string field. Trailing data after
// the first JSON value is rejected.
func JSON(opts ...JSONOption) func(r *http.Request, v any) error {
	o := &jsonOptions{maxBytes: DefaultMaxBodySize}
	for _, opt := range opts {
		opt(o)
	}

	return func(r *http.Request, v any) error {
		if err := requireJSON(r); err != nil {
			return err
		}

		body, err := RawBody(r, o.maxBytes)
		if err != nil {
			return err
		}

		dec := json.NewDecoder(bytes.NewReader(body))
		if o.strict {
			dec.DisallowUnknownFields()
		}
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("%w: %s", ErrFailedToParseJSON, describeJSONError(err))
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: unexpected data after JSON value", ErrFailedToParseJSON)
		}

		trimStrings(reflect.ValueOf(v))
		return nil
	}
}

func requireJSON(r *http.Request) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return fmt.Errorf("%w: expected application/json", ErrMissingContentType)
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("%w: got %q, expected application/json", ErrUnsupportedMediaType, ct)
	}
	return nil
}

// describeJSONError keeps decoder messages short and free of Go type names.
func describeJSONError(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		if typeErr.Field != "" {
			return fmt.Sprintf("field %q has the wrong type", typeErr.Field)
		}
		return "unexpected JSON type"
	case errors.Is(err, io.ErrUnexpectedEOF):
		return "truncated JSON"
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		return strings.TrimPrefix(err.Error(), "json: ")
	default:
		return err.Error()
	}
}

func trimStrings(rv reflect.Value) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if !rv.IsNil() {
			trimStrings(rv.Elem())
		}
	case reflect.String:
		if rv.CanSet() {
			rv.SetString(strings.TrimSpace(rv.String()))
		}
	case reflect.Struct:
		for i := range rv.NumField() {
			if f := rv.Field(i); f.CanSet() {
				trimStrings(f)
			}
		}
	case reflect.Slice, reflect.Array:
		for i := range rv.Len() {
			trimStrings(rv.Index(i))
		}
	}
}
