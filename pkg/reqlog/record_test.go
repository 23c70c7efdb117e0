package reqlog

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"
)

var testAccess = AccessFields{
	EventID:   "evt-1",
	Method:    "GET",
	Path:      "/orders",
	ClientIP:  "203.0.113.195",
	UserAgent: "curl/8.5.0",
}

// TestBuild verifies the base fields of a record
func TestBuild(t *testing.T) {
	completed := time.Date(2024, 5, 1, 12, 30, 45, 123456789, time.FixedZone("CEST", 2*3600))
	rec := Build(testAccess, nil, nil, Timing{Completed: completed, Elapsed: 1500 * time.Microsecond}, 201)

	want := Record{
		FieldTimestamp:  "2024-05-01T10:30:45.123456Z",
		FieldEventID:    "evt-1",
		FieldMethod:     "GET",
		FieldPath:       "/orders",
		FieldClientIP:   "203.0.113.195",
		FieldUserAgent:  "curl/8.5.0",
		FieldTimeTaken:  int64(1),
		FieldStatusCode: 201,
		FieldLogType:    "access",
		FieldLevel:      "INFO",
	}

	if len(rec) != len(want) {
		t.Fatalf("Build() has %d fields, want %d: %v", len(rec), len(want), rec)
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("%s = %#v, want %#v", k, rec[k], v)
		}
	}
}

// TestBuildMergeOrder verifies error fields override extra fields override base fields
func TestBuildMergeOrder(t *testing.T) {
	extra := map[string]any{"path": "/from-extra", "tenant": "acme", "error_code": "extra"}
	errFields := map[string]any{"error_code": 500, "tenant": "from-error"}

	rec := Build(testAccess, errFields, extra, Timing{Completed: time.Now()}, 500)

	if rec["path"] != "/from-extra" {
		t.Errorf("path = %v, want extra value", rec["path"])
	}
	if rec["tenant"] != "from-error" {
		t.Errorf("tenant = %v, want error value", rec["tenant"])
	}
	if rec["error_code"] != 500 {
		t.Errorf("error_code = %v, want %v", rec["error_code"], 500)
	}
	if rec[FieldLevel] != LevelError {
		t.Errorf("level = %v, want %v", rec[FieldLevel], LevelError)
	}
}

// TestBuildLevel verifies how the level is derived
func TestBuildLevel(t *testing.T) {
	tests := []struct {
		name      string
		errFields map[string]any
		extra     map[string]any
		status    int
		want      string
	}{
		{"no error info on 500", nil, nil, 500, LevelInfo},
		{"error info on 200", map[string]any{"error_message": "x"}, nil, 200, LevelError},
		{"extra cannot hide an error", map[string]any{"error_code": 1}, map[string]any{"level": "DEBUG"}, 200, LevelError},
		{"extra level without error", nil, map[string]any{"level": "DEBUG"}, 200, "DEBUG"},
		{"mapped level wins", map[string]any{"level": "WARN"}, nil, 200, "WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Build(testAccess, tt.errFields, tt.extra, Timing{Completed: time.Now()}, tt.status)
			if rec[FieldLevel] != tt.want {
				t.Errorf("level = %v, want %v", rec[FieldLevel], tt.want)
			}
		})
	}
}

// TestBuildNegativeElapsed verifies durations are never negative
func TestBuildNegativeElapsed(t *testing.T) {
	for _, d := range []time.Duration{-time.Hour, -1, time.Duration(math.MinInt64)} {
		rec := Build(testAccess, nil, nil, Timing{Completed: time.Now(), Elapsed: d}, 200)
		if rec[FieldTimeTaken] != int64(0) {
			t.Errorf("time_taken_ms for %v = %v, want 0", d, rec[FieldTimeTaken])
		}
	}
}

// TestEncodeRoundTrip verifies a record decodes back to the same fields and values
func TestEncodeRoundTrip(t *testing.T) {
	access := testAccess
	access.UserAgent = "Mozilla/5.0 (Ελληνικά; 中文) <b>&</b> 🚀"
	rec := Build(access, map[string]any{"error_message": "ñandú failed"}, map[string]any{"tenant": "Zürich"},
		Timing{Completed: time.Now(), Elapsed: 42 * time.Millisecond}, 503)

	line, err := Encode(rec)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !bytes.HasSuffix(line, []byte("\n")) || bytes.Count(line, []byte("\n")) != 1 {
		t.Fatalf("Encode() = %q, want a single newline-terminated line", line)
	}
	if !strings.Contains(string(line), "中文") || !strings.Contains(string(line), "<b>&</b>") {
		t.Errorf("Encode() escaped characters: %s", line)
	}

	var decoded map[string]any
	if err := json.Unmarshal(line, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(decoded) != len(rec) {
		t.Fatalf("decoded %d fields, want %d", len(decoded), len(rec))
	}
	for k, v := range rec {
		got := decoded[k]
		switch want := v.(type) {
		case int:
			if got != float64(want) {
				t.Errorf("%s = %v, want %v", k, got, want)
			}
		case int64:
			if got != float64(want) {
				t.Errorf("%s = %v, want %v", k, got, want)
			}
		default:
			if got != want {
				t.Errorf("%s = %v, want %v", k, got, want)
			}
		}
	}
}

// TestEncodeUnsupportedValue verifies unserializable values are reported, not panicked on
func TestEncodeUnsupportedValue(t *testing.T) {
	rec := Record{"bad": make(chan int)}
	if _, err := Encode(rec); err == nil {
		t.Error("Encode() error = nil, want error for channel value")
	}
}
