package logging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"INFO":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("chatty"); err == nil {
		t.Error("ParseLevel accepted an unknown level")
	}
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skriptls.log")
	logger, closeFn, err := New("info", path)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hidden")
	logger.Info("parse finished", zap.Int("errors", 2))
	closeFn()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written at info level: %s", out)
	}
	if !strings.Contains(out, `"msg":"parse finished"`) || !strings.Contains(out, `"errors":2`) {
		t.Fatalf("unexpected log output: %s", out)
	}
}

func TestContext(t *testing.T) {
	if L(context.Background()) == nil {
		t.Fatal("L returned nil without a logger")
	}
	l := zap.NewExample()
	if got := L(NewContext(context.Background(), l)); got != l {
		t.Fatal("L did not return the stored logger")
	}
}
