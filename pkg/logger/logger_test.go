package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextFieldsAreWritten(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Level: zerolog.DebugLevel, Output: &buf})

	ctx := logg.WithSessionID(context.Background(), "sess-1")
	ctx = logg.WithVendorID(ctx, 10)
	logg.Info(ctx, "checkout.submitted")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["service"] != "api" {
		t.Fatalf("expected service field, got %v", line["service"])
	}
	if line["session_id"] != "sess-1" {
		t.Fatalf("expected session_id field, got %v", line["session_id"])
	}
	if line["vendor_id"] != float64(10) {
		t.Fatalf("expected vendor_id field, got %v", line["vendor_id"])
	}
	if line["message"] != "checkout.submitted" {
		t.Fatalf("unexpected message %v", line["message"])
	}
}

func TestWarnErrOmitsStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Output: &buf})

	logg.WarnErr(context.Background(), "geolocation.fallback", errors.New("timeout"))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["level"] != "warn" {
		t.Fatalf("expected warn level, got %v", line["level"])
	}
	if _, ok := line["stack"]; ok {
		t.Fatal("did not expect stack on WarnErr")
	}
	if line["error"] != "timeout" {
		t.Fatalf("expected error field, got %v", line["error"])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":         zerolog.InfoLevel,
		"debug":    zerolog.DebugLevel,
		" WARN ":   zerolog.WarnLevel,
		"nonsense": zerolog.InfoLevel,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestSensitiveFieldsAreRedacted(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Output: &buf})

	ctx := logg.WithFields(context.Background(), map[string]any{
		"access_token": "tok-123",
		"vendor_id":    7,
	})
	ctx = logg.WithField(ctx, "order_pin", "4821")
	logg.Info(ctx, "checkout.reconciled")

	out := buf.String()
	if bytes.Contains(buf.Bytes(), []byte("tok-123")) || bytes.Contains(buf.Bytes(), []byte("4821")) {
		t.Fatalf("secret leaked into log: %s", out)
	}
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["access_token"] != redacted || line["vendor_id"] != float64(7) {
		t.Fatalf("unexpected fields %v", line)
	}
}
