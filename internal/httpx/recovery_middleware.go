package httpx

import (
	"net/http"
	"runtime/debug"

	"socialapi/internal/logging"
)

func RecoveryMiddleware(log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw, ok := w.(*responseWriter)
			if !ok {
				rw = &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			}

			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					// The request id is assigned further in; read it back from the response.
					requestID := rw.Header().Get(requestIDHeader)
					log.Error(r.Context(), "panic recovered",
						"request_id", requestID,
						"error", err,
						"stack", string(debug.Stack()),
					)
					if !rw.headerWritten {
						JSONError(rw, r.WithContext(ContextWithRequestID(r.Context(), requestID)), http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred", nil)
					}
				}
			}()
			next.ServeHTTP(rw, r)
		})
	}
}
