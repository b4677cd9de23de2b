package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"plain", "family trip", 0, "family trip"},
		{"trims", "  dentist  ", 0, "dentist"},
		{"keeps newlines", "line one\nline two", 0, "line one\nline two"},
		{"strips control chars", "ok\x00\x07\x1b done", 0, "ok done"},
		{"cuts runes", "休假申请审批", 4, "休假申请"},
		{"under limit", "short", 10, "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeText(tt.input, tt.maxLen))
		})
	}
}
