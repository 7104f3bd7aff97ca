package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"framekit/internal/domain"
	"framekit/internal/httputil"
)

// Recovery middleware recovers from panics and returns a 500 error. A corrupted resource
// tree has already closed its project session; the client has to reopen the project.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}

				if corrupt, ok := err.(*domain.CorruptionError); ok {
					logger.Error("resource tree corrupted",
						"error", corrupt.Error(),
						"unique_id", corrupt.UniqueID,
						"path", r.URL.Path,
						"method", r.Method,
						"request_id", httputil.GetRequestID(r),
					)
					httputil.RespondErrorWithExtras(w, http.StatusInternalServerError,
						"project state is corrupted and was closed", map[string]interface{}{
							"unique_id": corrupt.UniqueID,
						})
					return
				}

				logger.Error("panic recovered",
					"error", err,
					"path", r.URL.Path,
					"method", r.Method,
					"request_id", httputil.GetRequestID(r),
					"stack", string(debug.Stack()),
				)
				httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
