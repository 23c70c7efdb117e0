package reqlog

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// AccessFields are the request attributes every record carries.
type AccessFields struct {
	EventID   string
	Method    string
	Path      string
	ClientIP  string
	UserAgent string
}

// ClientIP resolves the client address. The first candidate header present
// on the request decides: its first comma-separated entry is used, and when
// that entry is empty the peer address is used instead of a lower-precedence
// header. Without any candidate header the host of remoteAddr is used, and
// "unknown" when that is empty. Values are not validated.
func ClientIP(h http.Header, remoteAddr string, candidates []string) string {
	for _, name := range candidates {
		if len(h.Values(name)) == 0 {
			continue
		}
		first, _, _ := strings.Cut(h.Get(name), ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
		break
	}

	if remoteAddr == "" {
		return UnknownClientIP
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		// no port, e.g. a unix socket peer or an already bare address
		return remoteAddr
	}
	if host == "" {
		return UnknownClientIP
	}
	return host
}

// EventID returns the value of header when it is configured and non-empty,
// otherwise a fresh id from gen.
func EventID(h http.Header, header string, gen func() string) string {
	if header != "" {
		if v := h.Get(header); v != "" {
			return v
		}
	}
	return gen()
}

// NewEventID returns a random (version 4) UUID in canonical form.
func NewEventID() string {
	return uuid.NewString()
}

// ExtractAccess pulls the access fields out of r.
func ExtractAccess(r *http.Request, eventIDHeader string, clientIPHeaders []string, gen func() string) AccessFields {
	return AccessFields{
		EventID:   EventID(r.Header, eventIDHeader, gen),
		Method:    r.Method,
		Path:      r.URL.Path,
		ClientIP:  ClientIP(r.Header, r.RemoteAddr, clientIPHeaders),
		UserAgent: r.UserAgent(),
	}
}
