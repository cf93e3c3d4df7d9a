package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Recovery is a catch-all boundary that converts handler panics into a
// generic 500 response. The panic value and stack are logged server-side
// only; the client always receives the endpoint's JSON contract.
// Place it outermost so even logging-middleware panics are contained.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.LogAttrs(r.Context(), slog.LevelError, "panic recovered",
						slog.Any("panic", rec),
						slog.String("path", r.URL.Path),
						slog.String("stack", string(debug.Stack())),
					)
					w.Header().Set("Content-Type", "application/json; charset=utf-8")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"success":false,"message":"An internal server error occurred. We are already working on it."}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
