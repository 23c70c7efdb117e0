package errors

import (
	"net/http"
	"runtime/debug"
)

// RecoveryFunc is a function that handles a recovered panic.
// It receives the recovered value and returns an error.
type RecoveryFunc func(any) error

// DefaultRecoveryFunc converts a panic into a PanicError carrying the current stack.
func DefaultRecoveryFunc(p any) error {
	return NewPanic(p, debug.Stack())
}

// RecoveryMiddleware is an HTTP middleware that recovers from panics, reports
// them and answers with 500. A nil recoveryFunc means DefaultRecoveryFunc.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
//
// Install it inside the request logger so the reported error reaches the
// access record:
//
//	handler := logger.Handler(errors.RecoveryMiddleware(nil, reqlog.ReportError)(mux))
func RecoveryMiddleware(recoveryFunc RecoveryFunc, reporter Reporter) func(http.Handler) http.Handler {
	if recoveryFunc == nil {
		recoveryFunc = DefaultRecoveryFunc
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					if p == http.ErrAbortHandler {
						panic(p)
					}
					err := recoveryFunc(p)
					if reporter != nil {
						reporter(r, err)
					}
					WriteHTTPError(w, err)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
