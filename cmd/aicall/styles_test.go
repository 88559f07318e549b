package main

import (
	"strings"
	"testing"
)

func TestCenterText(t *testing.T) {
	out := centerText("hello", 10)
	if !strings.HasPrefix(out, " ") || !strings.Contains(out, "hello") {
		t.Fatalf("expected padding")
	}
	if got := centerText("hello", 0); got != "hello" {
		t.Fatalf("centerText() = %q, want unchanged", got)
	}
}

func TestSeparator(t *testing.T) {
	out := separator(5)
	if out == "" {
		t.Fatalf("expected separator")
	}
}

func TestStatusBadge(t *testing.T) {
	tests := []struct {
		status string
		active bool
		want   string
	}{
		{status: "listening", active: true, want: "listening"},
		{status: "thinking", active: true, want: "thinking"},
		{status: "", active: true, want: "idle"},
		{status: "bogus", active: true, want: "bogus"},
		{status: "speaking", active: false, want: "no call"},
	}
	for _, tt := range tests {
		if got := statusBadge(tt.status, tt.active); !strings.Contains(got, tt.want) {
			t.Fatalf("statusBadge(%q, %v) = %q, want %q", tt.status, tt.active, got, tt.want)
		}
	}
}
