package util

import (
	"strings"
	"testing"
)

func TestMaskToken(t *testing.T) {
	long := strings.Repeat("a", 30) + "tail12345678"
	masked := MaskToken(long)
	if masked != "...tail12345678" {
		t.Fatalf("MaskToken = %q", masked)
	}
	if strings.Contains(masked, strings.Repeat("a", 30)) {
		t.Fatal("masked token leaks the prefix")
	}

	// Short values pass through untouched.
	if got := MaskToken("short"); got != "short" {
		t.Fatalf("MaskToken(short) = %q", got)
	}
}

func TestTruncateLog(t *testing.T) {
	if got := TruncateLog("hello", 10); got != "hello" {
		t.Fatalf("TruncateLog = %q", got)
	}
	long := strings.Repeat("x", 100)
	got := TruncateLog(long, 10)
	if !strings.HasPrefix(got, strings.Repeat("x", 10)) {
		t.Fatalf("truncated prefix wrong: %q", got)
	}
	if !strings.Contains(got, "100 bytes total") {
		t.Fatalf("truncation marker missing: %q", got)
	}
}
