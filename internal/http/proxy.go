package http

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/scimgate/internal/errors"
)

// NewProxyHandler builds a gin handler that forwards authorized requests to
// the resource backend. The backend holds the actual SCIM resource logic; the
// front door only decides whether the request may reach it.
//
// The inbound Authorization header passes through unchanged so the backend
// can do its own introspection if it wants to. An unreachable backend yields
// 502 Bad Gateway.
func NewProxyHandler(backendURL string, logger *slog.Logger) (gin.HandlerFunc, error) {
	target, err := url.Parse(backendURL)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "invalid resource backend url %q", backendURL)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "resource backend url %q needs scheme and host", backendURL)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("resource backend request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"bad_gateway","message":"The resource backend could not be reached"}`))
	}

	return func(c *gin.Context) {
		proxy.ServeHTTP(c.Writer, c.Request)
	}, nil
}
