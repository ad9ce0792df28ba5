package analysis

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/supportiq/backend/internal/storage/models"
)

const maxIntentTitleLen = 60

// DerivePriority maps triage signals to a ticket priority. The precedence is
// fixed: very negative + unresolved or very low predicted CSAT is critical,
// negative or unresolved-with-followups is high, positive and resolved is
// low, everything else is medium.
func DerivePriority(sentimentScore float64, resolutionStatus string, satisfactionPredicted float64, actionItemCount int) string {
	if sentimentScore < -0.5 && resolutionStatus == ResolutionUnresolved {
		return PriorityCritical
	}
	if satisfactionPredicted < 2 {
		return PriorityCritical
	}
	if sentimentScore < -0.3 || (resolutionStatus == ResolutionUnresolved && actionItemCount > 0) {
		return PriorityHigh
	}
	if sentimentScore > 0.3 && resolutionStatus == ResolutionResolved {
		return PriorityLow
	}
	return PriorityMedium
}

// DeriveTitle builds "{Category}: {intent}" when the intent is short enough,
// falling back to the first key topic and then to a generic title.
func DeriveTitle(triage *TriageResult) string {
	category := titleCaseCategory(triage.PrimaryCategory)

	if intent := strings.TrimSpace(triage.CustomerIntent); intent != "" && len(intent) < maxIntentTitleLen {
		return category + ": " + intent
	}
	if len(triage.KeyTopics) > 0 {
		return category + ": " + triage.KeyTopics[0]
	}
	return category + " Support Request"
}

// DeriveStatus picks the ticket's initial lifecycle state from the triage
// resolution.
func DeriveStatus(triage *TriageResult) string {
	switch {
	case triage.ResolutionStatus == ResolutionResolved:
		return models.TicketStatusResolved
	case triage.ResolutionStatus == ResolutionEscalated || triage.WasEscalated:
		return models.TicketStatusInProgress
	default:
		return models.TicketStatusOpen
	}
}

// BuildTicket derives a complete ticket record from a call and its validated
// triage result. The contact argument may be the zero value when the deep
// extraction was unavailable.
func BuildTicket(call *models.CallRecord, triage *TriageResult, contact ContactInfo, now time.Time) *models.Ticket {
	status := DeriveStatus(triage)

	ticket := &models.Ticket{
		ID:                    uuid.New().String(),
		CallID:                call.ID,
		TenantID:              call.TenantID,
		Title:                 DeriveTitle(triage),
		Description:           triage.CallSummary,
		Category:              triage.PrimaryCategory,
		Priority:              DerivePriority(triage.SentimentScore, triage.ResolutionStatus, triage.SatisfactionPredicted, len(triage.ActionItems)),
		Status:                status,
		Source:                "call",
		CustomerName:          contact.Name,
		CustomerEmail:         contact.Email,
		CustomerPhone:         firstNonEmpty(contact.Phone, call.CallerPhone),
		SentimentScore:        triage.SentimentScore,
		ResolutionStatus:      triage.ResolutionStatus,
		SatisfactionPredicted: triage.SatisfactionPredicted,
		ActionItems:           triage.ActionItems,
		KeyTopics:             triage.KeyTopics,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if status == models.TicketStatusResolved {
		resolvedAt := now
		ticket.ResolvedAt = &resolvedAt
	}

	return ticket
}

func titleCaseCategory(category string) string {
	words := strings.Split(strings.ReplaceAll(category, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
