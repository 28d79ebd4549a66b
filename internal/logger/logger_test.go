package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestRedactEmail(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"john@example.com": "j****n@example.com",
		"jo@example.com":   "****@example.com",
		"not-an-email":     "****",
		"a@b@example.com":  "****",
	}
	for in, want := range cases {
		if got := redactEmail(in); got != want {
			t.Errorf("redactEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProductionLoggerRedactsFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, INFO, false)

	l.Info("user logged in",
		"email", "someone@example.com",
		"user_id", 42,
		"session_id", "abcdef0123456789",
		"password", "hunter22",
		"error", errors.New("boom"))

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("Expected a JSON line, got %q: %v", buf.String(), err)
	}

	if record["msg"] != "user logged in" {
		t.Errorf("Unexpected message: %v", record["msg"])
	}
	if record["email"] != "s****e@example.com" {
		t.Errorf("Email not redacted: %v", record["email"])
	}
	if uid, _ := record["user_id"].(string); !strings.HasPrefix(uid, "user_") {
		t.Errorf("User id not hashed: %v", record["user_id"])
	}
	if record["session_id"] != "abcd****" {
		t.Errorf("Session id not truncated: %v", record["session_id"])
	}
	if record["password"] != "[REDACTED]" {
		t.Errorf("Password not redacted: %v", record["password"])
	}
	if record["error"] != "boom" {
		t.Errorf("Error text should be kept: %v", record["error"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, WARN, false)

	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("Info should be filtered at WARN level, got %q", buf.String())
	}

	l.Error("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("Error should be written at WARN level, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != DEBUG {
		t.Error("Expected DEBUG")
	}
	if ParseLevel("warning") != WARN {
		t.Error("Expected WARN")
	}
	if ParseLevel("bogus") != INFO {
		t.Error("Expected INFO fallback")
	}
}
