package handler

import (
	"log/slog"
	"net/http"

	"github.com/agentcoach/billing/pkg/logger"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// Classifier maps an error to a status code and a client-safe message.
type Classifier func(err error) (status int, message string)

// JSONErrorHandler renders {"error": message} using classify. Server errors
// are logged at error level, client errors at warn.
func JSONErrorHandler(log *slog.Logger, classify Classifier) ErrorHandler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if classify == nil {
		classify = DefaultClassifier
	}

	return func(w http.ResponseWriter, r *http.Request, err error) {
		status, message := classify(err)

		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.Log(r.Context(), level, "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			logger.Error(err),
		)

		_ = JSON(ErrorBody{Error: message}, WithStatus(status)).Render(w, r)
	}
}

// DefaultClassifier uses HTTPError codes and hides the message of server errors.
func DefaultClassifier(err error) (int, string) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		return status, http.StatusText(status)
	}
	return status, err.Error()
}
