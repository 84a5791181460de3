package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestCtxCarriesRequestID(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))

	ctx := WithRequestID(context.Background(), "req-1")
	Ctx(ctx).Info("summary.generate", "uid", 7)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if line["request_id"] != "req-1" || line["msg"] != "summary.generate" {
		t.Fatalf("line=%v", line)
	}

	buf.Reset()
	Ctx(context.Background()).Info("plain")
	if bytes.Contains(buf.Bytes(), []byte("request_id")) {
		t.Fatalf("unexpected request_id: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

func TestInitToWritesOnlyThere(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	InitTo(&buf, "warn")
	Info("hidden")
	Warn("recompute.skipped", "uid", 2)

	if bytes.Contains(buf.Bytes(), []byte("hidden")) {
		t.Fatalf("info logged at warn level: %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"msg":"recompute.skipped"`)) {
		t.Fatalf("out=%s", buf.String())
	}
}
