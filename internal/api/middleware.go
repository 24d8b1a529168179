package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/larder-io/larder/internal/metrics"
	"github.com/larder-io/larder/internal/repositories"
)

// RequestLogger returns a Chi-compatible middleware that logs each request
// using the provided zap logger. Chi's middleware.RequestID is expected to run
// before this middleware so that the request ID is available in the context.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("latency", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

// Metrics records the count and latency of every request. Requests are
// labelled with the matched route pattern rather than the raw path.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveRequest(route, r.Method, strconv.Itoa(status), time.Since(start).Seconds())
		})
	}
}

// Transactional runs every request in its own repositories.Session. The
// session is finished when the handler writes the response status: a status
// below 400 commits, anything else rolls back. A failed commit replaces the
// handler's response with a 500.
func Transactional(database *gorm.DB, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := repositories.Begin(r.Context(), database)
			if err != nil {
				logger.Error("failed to begin transaction", zap.Error(err))
				ErrInternal(w)
				return
			}
			// No-op once the session has been finished.
			defer func() { _ = session.Rollback() }()

			tw := &txResponseWriter{ResponseWriter: w, session: session, logger: logger}
			next.ServeHTTP(tw, r.WithContext(repositories.WithSession(r.Context(), session)))
			if !tw.wroteHeader {
				tw.WriteHeader(http.StatusOK)
			}
		})
	}
}

type txResponseWriter struct {
	http.ResponseWriter
	session *repositories.Session
	logger  *zap.Logger

	wroteHeader bool
	discard     bool
}

func (w *txResponseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	if status >= http.StatusBadRequest {
		if err := w.session.Rollback(); err != nil {
			w.logger.Warn("rollback failed", zap.Error(err))
		}
		w.ResponseWriter.WriteHeader(status)
		return
	}

	if err := w.session.Commit(); err != nil {
		w.logger.Error("failed to commit transaction", zap.Error(err))
		w.discard = true
		w.Header().Del("Content-Length")
		ErrInternal(w.ResponseWriter)
		return
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *txResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.discard {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}
