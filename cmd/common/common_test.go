package common

import (
	"strings"
	"testing"
	"time"
)

func TestFormatRemaining(t *testing.T) {
	now := time.UnixMilli(1_000_000)
	tests := []struct {
		name string
		ms   int64
		want string
	}{
		{"unset", 0, "-"},
		{"past", 999_000, "due"},
		{"future", 1_000_000 + 90_500, "1m30s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatRemaining(tt.ms, now); got != tt.want {
				t.Errorf("FormatRemaining() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusAndField(t *testing.T) {
	for _, s := range []string{"Focusing", "Resting", "Idle"} {
		if !strings.Contains(Status(s), s) {
			t.Errorf("Status(%q) lost the text", s)
		}
	}
	if got := Field("focus", 12); !strings.Contains(got, "focus:") || !strings.Contains(got, "12") {
		t.Errorf("Field() = %q", got)
	}
}
