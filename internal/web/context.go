package web

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/CoordImport/internal/core"
	"github.com/JonMunkholm/CoordImport/internal/logging"
)

// storeRef identifies one store addressed by a request path.
type storeRef struct {
	Workspace string
	Kind      core.SchemaKind
}

// storeFromRequest reads {id} and {kind} from the route.
func storeFromRequest(r *http.Request) (storeRef, error) {
	kind, err := core.ParseSchemaKind(chi.URLParam(r, "kind"))
	if err != nil {
		return storeRef{}, err
	}
	return storeRef{Workspace: chi.URLParam(r, "id"), Kind: kind}, nil
}

// requestLogger returns a logger carrying the request ID and route values.
func requestLogger(r *http.Request) *slog.Logger {
	logger := logging.FromContext(r.Context())
	if id := chi.URLParam(r, "id"); id != "" {
		logger = logger.With("workspace", id)
	}
	return logger
}

// clientIP returns the connection address without its port.
// TrustedRealIP has already rewritten RemoteAddr for trusted proxies.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
