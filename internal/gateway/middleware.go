package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CorrelationHeader carries the end-to-end request id
const CorrelationHeader = "X-Correlation-ID"

// CorrelationMiddleware reads the X-Correlation-ID header and attaches it to
// the request logger. A new ID is generated if the client doesn't send one.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(CorrelationHeader)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		// Add to response headers for client verification
		w.Header().Set(CorrelationHeader, correlationID)

		// Add to logger context for all logs in this request
		logger := log.With().Str("correlation_id", correlationID).Logger()
		ctx := logger.WithContext(r.Context())

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccessLog writes one structured line per request on the request logger
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		log.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Str("request_id", middleware.GetReqID(r.Context())).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
