package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/warp/timesheet-recon/logging"
)

// AdminPasscodeHeader carries the static admin passcode.
const AdminPasscodeHeader = "X-Admin-Passcode"

// RequestLogger attaches a request-scoped logger carrying chi's request id
// and logs one line per request. Must run after middleware.RequestID.
func RequestLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base.With().
				Str("request_id", middleware.GetReqID(r.Context())).
				Logger()
			ctx := logging.WithLogger(r.Context(), &logger)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			event := logger.Info()
			if status >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

// RequireAdmin rejects requests without the admin passcode.
func RequireAdmin(passcode string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(AdminPasscodeHeader)
			if passcode == "" || subtle.ConstantTimeCompare([]byte(got), []byte(passcode)) != 1 {
				writeError(w, http.StatusUnauthorized, "Invalid admin passcode", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
