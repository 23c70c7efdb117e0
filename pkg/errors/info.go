package errors

import (
	"strings"
)

// Keys of the mapping returned by Info.
const (
	InfoCode       = "code"
	InfoMessage    = "message"
	InfoStackTrace = "stack_trace"
)

// Info converts err into an error-info mapping:
//   - code: the CodedError code when present, otherwise the HTTP status from HTTPStatusCode
//   - message: err.Error()
//   - stack_trace: the stack lines of a PanicError, omitted otherwise
//
// Returns nil for a nil error.
func Info(err error) map[string]any {
	if err == nil {
		return nil
	}

	info := map[string]any{
		InfoCode:    HTTPStatusCode(err),
		InfoMessage: err.Error(),
	}

	var coded *CodedError
	if As(err, &coded) {
		info[InfoCode] = coded.Code()
	}

	var perr *PanicError
	if As(err, &perr) && len(perr.stack) > 0 {
		info[InfoStackTrace] = stackLines(perr.stack)
	}

	return info
}

func stackLines(stack []byte) []string {
	raw := strings.Split(strings.TrimSpace(string(stack)), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
