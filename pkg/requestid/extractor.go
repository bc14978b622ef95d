package requestid

import (
	"context"
	"log/slog"

	"github.com/agentcoach/billing/pkg/logger"
)

// LogExtractor adds request_id to every log record written with a request context.
func LogExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		id := FromContext(ctx)
		if id == "" {
			return slog.Attr{}, false
		}
		return logger.RequestID(id), true
	}
}
