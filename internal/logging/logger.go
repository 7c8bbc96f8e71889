// Package logging sets up the slog logger shared by the import server.
//
// Every record logged while handling a request carries chi's request_id, so
// the lines of one import (decode, build, merge, remote transform) can be
// pulled out of a busy log together.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup installs the default logger from the logging section of the config.
// level is one of debug, info, warn or error; format is text or json.
// Unknown values fall back to info and text.
func Setup(level, format string) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FromContext returns the default logger, tagged with request_id when ctx
// came through the router.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}

	return logger
}

// WithFields is FromContext plus fixed attributes. The import service builds
// one per import so that every line it writes names the import and its store:
//
//	logger := logging.WithFields(ctx,
//	    "import_id", importID,
//	    "workspace", ws.ID,
//	    "schema", kind.String(),
//	)
//	logger.Info("import completed", "kept", summary.Kept)
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
