package analysis

import (
	"fmt"
	"strings"

	"github.com/supportiq/backend/internal/storage/models"
)

// MinTranscriptChars is the minimum amount of content required before any
// extraction request is issued.
const MinTranscriptChars = 20

// FormatTranscript renders an ordered turn list into the role-tagged text the
// extraction prompts expect. Assistant-side roles map to AGENT, the caller to
// CUSTOMER. When no structured turns exist the flat transcript passes through
// unchanged.
func FormatTranscript(turns []models.TranscriptTurn, flat string) string {
	if len(turns) == 0 {
		return flat
	}

	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		role := normalizeRole(turn.Role)
		if turn.Timestamp != nil {
			lines = append(lines, fmt.Sprintf("%s [%.0fs]: %s", role, *turn.Timestamp, turn.Content))
		} else {
			lines = append(lines, fmt.Sprintf("%s: %s", role, turn.Content))
		}
	}

	return strings.Join(lines, "\n")
}

func normalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "assistant", "bot", "ai", "agent":
		return "AGENT"
	case "user", "customer":
		return "CUSTOMER"
	case "":
		return "UNKNOWN"
	default:
		return strings.ToUpper(strings.TrimSpace(role))
	}
}

// TranscriptUsable reports whether a formatted transcript carries enough
// content to be worth analyzing.
func TranscriptUsable(formatted string) bool {
	return len(strings.TrimSpace(formatted)) >= MinTranscriptChars
}
