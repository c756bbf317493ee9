package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}

func TestInfo_Success_Warn_Error_NoPanic(t *testing.T) {
	out := captureStdout(t, func() {
		Info("TAG", "message")
		Success("TAG", "message")
		Warn("TAG", "message")
		Error("TAG", "message")
	})
	if !strings.Contains(out, "TAG") {
		t.Errorf("output missing tag: %q", out)
	}
}

func TestBanner_NoPanic(t *testing.T) {
	out := captureStdout(t, func() {
		Banner("v1.0.0")
		Banner("")
	})
	if !strings.Contains(out, "v1.0.0") || !strings.Contains(out, "dev") {
		t.Errorf("banner output = %q", out)
	}
}

func TestSectionAndStats_NoPanic(t *testing.T) {
	captureStdout(t, func() {
		Section("Test")
		Stats("key", 42)
	})
}

func TestSetLevel(t *testing.T) {
	defer SetLevel("info")

	if err := SetLevel("nope"); err == nil {
		t.Error("SetLevel(nope) should fail")
	}
	if err := SetLevel("error"); err != nil {
		t.Fatalf("SetLevel(error): %v", err)
	}
	out := captureStdout(t, func() {
		Info("TAG", "hidden")
	})
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at error level: %q", out)
	}
}

func TestL_SharedAcrossLevelChanges(t *testing.T) {
	defer SetLevel("info")

	before := L()
	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel(debug): %v", err)
	}
	if L() != before {
		t.Error("L() changed after SetLevel")
	}
	if !L().Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug not enabled on the shared logger")
	}
}
