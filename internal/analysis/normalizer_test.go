package analysis

import (
	"strings"
	"testing"

	"github.com/supportiq/backend/internal/storage/models"
)

func ts(v float64) *float64 { return &v }

func TestFormatTranscript(t *testing.T) {
	turns := []models.TranscriptTurn{
		{Role: "assistant", Content: "Thanks for calling, how can I help?", Timestamp: ts(0)},
		{Role: "user", Content: "My invoice is wrong.", Timestamp: ts(4)},
		{Role: "bot", Content: "Let me pull that up."},
	}

	got := FormatTranscript(turns, "ignored when turns exist")
	want := "AGENT [0s]: Thanks for calling, how can I help?\n" +
		"CUSTOMER [4s]: My invoice is wrong.\n" +
		"AGENT: Let me pull that up."
	if got != want {
		t.Errorf("FormatTranscript() =\n%q\nwant\n%q", got, want)
	}
}

func TestFormatTranscriptFlatPassthrough(t *testing.T) {
	flat := "AGENT: hello\nCUSTOMER: hi there, billing question"
	if got := FormatTranscript(nil, flat); got != flat {
		t.Errorf("FormatTranscript(nil, flat) = %q, want flat unchanged", got)
	}
}

func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"assistant", "AGENT"},
		{"Agent", "AGENT"},
		{"AI", "AGENT"},
		{"bot", "AGENT"},
		{"user", "CUSTOMER"},
		{"Customer", "CUSTOMER"},
		{"", "UNKNOWN"},
		{"supervisor", "SUPERVISOR"},
	}
	for _, tt := range tests {
		if got := normalizeRole(tt.in); got != tt.want {
			t.Errorf("normalizeRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTranscriptUsable(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"empty", "", false},
		{"whitespace only", "   \n\t  ", false},
		{"just under threshold", strings.Repeat("a", MinTranscriptChars-1), false},
		{"at threshold", strings.Repeat("a", MinTranscriptChars), true},
		{"padded short content", "  hi  ", false},
		{"normal transcript", "CUSTOMER: my app keeps crashing on upload", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TranscriptUsable(tt.in); got != tt.want {
				t.Errorf("TranscriptUsable(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
