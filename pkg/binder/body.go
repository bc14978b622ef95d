package binder

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultMaxBodySize bounds request bodies (1 MB).
const DefaultMaxBodySize = 1 << 20

// RawBody reads the whole request body, failing with ErrBodyTooLarge when it
// exceeds limit bytes. A non-positive limit uses DefaultMaxBodySize. The
// bytes are returned untouched, which signature verification relies on.
func RawBody(r *http.Request, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}
	if r.Body == nil {
		return nil, ErrEmptyBody
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, errors.Join(ErrFailedToParseJSON, fmt.Errorf("read body: %w", err))
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, limit)
	}
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	return body, nil
}
