package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcoach/billing/pkg/logger"
)

type traceKey struct{}

func traceExtractor(ctx context.Context) (slog.Attr, bool) {
	v, ok := ctx.Value(traceKey{}).(string)
	if !ok {
		return slog.Attr{}, false
	}
	return slog.String("trace", v), true
}

func TestContextHandler(t *testing.T) {
	t.Parallel()

	t.Run("extractors survive With and WithGroup", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		h := logger.NewContextHandler(slog.NewJSONHandler(buf, nil), nil, traceExtractor)
		log := slog.New(h).With(logger.Component("reconciler"))

		ctx := context.WithValue(context.Background(), traceKey{}, "t-1")
		log.InfoContext(ctx, "reconciled")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "t-1", entry["trace"])
		assert.Equal(t, "reconciler", entry["component"])
	})

	t.Run("missing value adds nothing", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(buf, nil), traceExtractor))
		log.Info("no context")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.NotContains(t, entry, "trace")
	})

	t.Run("no extractors returns next", func(t *testing.T) {
		t.Parallel()
		next := slog.NewTextHandler(&bytes.Buffer{}, nil)
		assert.Same(t, next, logger.NewContextHandler(next, nil))
	})
}
