package reqlog

// Access record field names.
const (
	FieldTimestamp  = "timestamp"
	FieldEventID    = "event_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldClientIP   = "client_ip"
	FieldUserAgent  = "user_agent"
	FieldTimeTaken  = "time_taken_ms"
	FieldStatusCode = "status_code"
	FieldLogType    = "log_type"
	FieldLevel      = "level"
)

// Field values.
const (
	LogTypeAccess = "access"
	LevelInfo     = "INFO"
	LevelError    = "ERROR"

	// UnknownClientIP is used when neither a header nor the peer address yields a client address.
	UnknownClientIP = "unknown"

	// TimestampFormat is ISO-8601 in UTC with microsecond precision.
	TimestampFormat = "2006-01-02T15:04:05.000000Z07:00"
)
