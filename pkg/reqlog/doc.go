// Package reqlog is an HTTP middleware that emits one structured JSON access
// record per completed request without blocking request handling.
//
// The request path only extracts fields, builds the record and hands it to a
// bounded queue. A single background goroutine serializes the records and
// writes them to a sink.Sink, so a slow or broken sink costs log entries, never
// latency.
//
// A record looks like:
//
//	{"client_ip":"203.0.113.195","event_id":"9f4c...","level":"INFO","log_type":"access",
//	 "method":"GET","path":"/orders","status_code":200,"time_taken_ms":12,
//	 "timestamp":"2024-05-01T10:00:00.123456Z","user_agent":"curl/8.5.0"}
//
// Handlers attach error details through the per-request State:
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    reqlog.SetErrorInfo(r.Context(), map[string]any{"code": "ORDER_MISSING", "message": "no such order"})
//	    http.Error(w, "not found", http.StatusNotFound)
//	}
//
// With the default mapping the record then carries error_code, error_message
// and level "ERROR".
//
// Records are written in the order requests complete, not the order they
// arrive. Delivery is best-effort: records are dropped when the queue is full
// and lost when the process exits before they are drained.
//
// If an outer handler recovers a panic before this middleware sees it, any
// error details the handler meant to attach may be missing. Install
// errors.RecoveryMiddleware inside the request logger to avoid that.
package reqlog
