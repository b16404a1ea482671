package obs

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLogSink_WritesOriginalMessages(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSink(NewLogger("info", &buf))

	s.Timing(TimingRecord{Method: "GET", Path: "/dummy/", Status: 200, Duration: 1500 * time.Millisecond})
	s.Activity(ActivityRecord{UserID: "1", Method: "GET", Path: "/dummy/", Status: 200})

	out := buf.String()
	if !strings.Contains(out, "PerformanceMonitor: /dummy/ took 1.500000 seconds") {
		t.Fatalf("expected timing message, got %s", out)
	}
	if !strings.Contains(out, "User 1 made a GET request to /dummy/, status=200") {
		t.Fatalf("expected activity message, got %s", out)
	}
}

func TestLogSink_FaultIsJSONWithContext(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSink(NewLogger("info", &buf))

	s.Fault(FaultRecord{Method: "GET", Path: "/error/", Fault: "Forced error for testing."})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected a JSON line, got %q: %v", buf.String(), err)
	}
	if line["level"] != "error" || line["path"] != "/error/" || line["fault"] != "Forced error for testing." {
		t.Fatalf("unexpected fault log: %v", line)
	}
}

func TestNewLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	l := NewLogger("loud", nil)
	if l.GetLevel().String() != "info" {
		t.Fatalf("expected info level, got %s", l.GetLevel())
	}
}
