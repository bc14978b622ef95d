// Package logger builds the service's *slog.Logger.
//
// New takes functional options selecting format, level, static attributes
// and ContextExtractor callbacks. Extractors run on every record, which is
// how request IDs set by the HTTP middleware end up in log lines emitted deep
// inside the reconciler.
//
// Config carries the APP_ENV, LOG_LEVEL and LOG_FORMAT settings; FromConfig
// turns it into an Option:
//
//	log := logger.New(
//	    logger.FromConfig(cfg.Log, "billingd"),
//	    logger.WithContextExtractors(requestid.LogExtractor()),
//	)
//
// Attribute helpers (SubscriptionID, EventID, Email, Error, ...) keep key
// names consistent. Helpers return an empty slog.Attr for empty input so
// they can be passed unconditionally.
package logger
