package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DEBUG,
		"INFO":    INFO,
		"Warning": WARN,
		"error":   ERROR,
		"bogus":   INFO,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New("test")
	l.SetOutput(&buf)
	l.SetLevel(WARN)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("below-level messages were output: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("WARN message missing: %s", out)
	}
}

func TestPrefixAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := New("diffract")
	l.SetOutput(&buf)

	child := l.WithPrefix("e4cv").WithFields(Fields{"axis": "tth"})
	child.Infof("moved to %.1f", 42.0)

	out := buf.String()
	if !strings.Contains(out, "diffract.e4cv:") {
		t.Errorf("component prefix missing: %s", out)
	}
	if !strings.Contains(out, "axis=tth") {
		t.Errorf("persistent field missing: %s", out)
	}
	if !strings.Contains(out, "moved to 42.0") {
		t.Errorf("message missing: %s", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New("sim")
	l.SetOutput(&buf)
	l.SetFormat(FormatJSON)

	l.WarnFields("not connected", Fields{"device": "k4cv"})

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if rec["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", rec["level"])
	}
	if rec["component"] != "sim" {
		t.Errorf("component = %v, want sim", rec["component"])
	}
	if rec["device"] != "k4cv" {
		t.Errorf("device = %v, want k4cv", rec["device"])
	}
}
