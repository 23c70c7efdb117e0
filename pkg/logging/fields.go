// Package logging provides the zerolog-based diagnostic logger used by reqlog
// and its host service. It is deliberately separate from the access-record
// pipeline: access records go to a sink, while this logger reports what the
// pipeline itself is doing (startup, dropped records, sink failures).
//
// Example usage:
//
//	cfg := config.LogConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stderr",
//	}
//	logger := logging.New(cfg)
//	logger.Warn().Str(logging.Sink, "redis").Msg("sink write failed")
package logging

// Standard field names for diagnostic log entries.
const (
	// ServiceName is the field name for the service generating the log.
	ServiceName = "service_name"

	// Component is the field name for the component/package generating the log.
	Component = "component"

	// EventID is the field name for the correlation id of the request being served.
	EventID = "event_id"

	// Sink is the field name for the access record destination.
	Sink = "sink"

	// Dropped is the field name for a count of discarded access records.
	Dropped = "dropped"

	// Pending is the field name for a count of queued access records.
	Pending = "pending"
)
