package analysis

import (
	"testing"
	"time"

	"github.com/supportiq/backend/internal/storage/models"
)

func TestDerivePriority(t *testing.T) {
	tests := []struct {
		name         string
		sentiment    float64
		resolution   string
		satisfaction float64
		actionItems  int
		want         string
	}{
		{"very negative unresolved", -0.6, ResolutionUnresolved, 2.5, 0, PriorityCritical},
		{"very negative resolved", -0.6, ResolutionResolved, 2.5, 0, PriorityHigh},
		{"low satisfaction", 0.2, ResolutionResolved, 1.5, 0, PriorityCritical},
		{"negative sentiment", -0.4, ResolutionResolved, 3.5, 0, PriorityHigh},
		{"unresolved with action items", 0.0, ResolutionUnresolved, 3.0, 2, PriorityHigh},
		{"unresolved without action items", 0.0, ResolutionUnresolved, 3.0, 0, PriorityMedium},
		{"positive resolved", 0.5, ResolutionResolved, 4.5, 1, PriorityLow},
		{"positive unresolved", 0.5, ResolutionUnresolved, 4.5, 0, PriorityMedium},
		{"neutral", 0.0, ResolutionPartiallyResolved, 3.0, 0, PriorityMedium},
		{"satisfaction exactly two", -0.6, ResolutionResolved, 2.0, 0, PriorityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DerivePriority(tt.sentiment, tt.resolution, tt.satisfaction, tt.actionItems)
			if got != tt.want {
				t.Errorf("DerivePriority(%v, %q, %v, %d) = %q, want %q",
					tt.sentiment, tt.resolution, tt.satisfaction, tt.actionItems, got, tt.want)
			}
		})
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name   string
		triage TriageResult
		want   string
	}{
		{
			"short intent",
			TriageResult{PrimaryCategory: "billing", CustomerIntent: "dispute a duplicate charge"},
			"Billing: dispute a duplicate charge",
		},
		{
			"long intent falls back to topic",
			TriageResult{
				PrimaryCategory: "technical_support",
				CustomerIntent:  "the customer called because the mobile application crashes every time they attempt to upload a profile photo",
				KeyTopics:       []string{"app crash"},
			},
			"Technical Support: app crash",
		},
		{
			"no intent no topics",
			TriageResult{PrimaryCategory: "account_access"},
			"Account Access Support Request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTitle(&tt.triage); got != tt.want {
				t.Errorf("DeriveTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name   string
		triage TriageResult
		want   string
	}{
		{"resolved", TriageResult{ResolutionStatus: ResolutionResolved}, models.TicketStatusResolved},
		{"escalated status", TriageResult{ResolutionStatus: ResolutionEscalated}, models.TicketStatusInProgress},
		{"escalated flag", TriageResult{ResolutionStatus: ResolutionUnresolved, WasEscalated: true}, models.TicketStatusInProgress},
		{"unresolved", TriageResult{ResolutionStatus: ResolutionUnresolved}, models.TicketStatusOpen},
		{"follow up needed", TriageResult{ResolutionStatus: ResolutionFollowUpNeeded}, models.TicketStatusOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveStatus(&tt.triage); got != tt.want {
				t.Errorf("DeriveStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildTicket(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	call := &models.CallRecord{
		ID:          "call-1",
		TenantID:    "tenant-1",
		CallerPhone: "+15550001111",
	}
	triage := &TriageResult{
		OverallSentiment:      SentimentNegative,
		SentimentScore:        -0.4,
		PrimaryCategory:       "billing",
		ResolutionStatus:      ResolutionUnresolved,
		SatisfactionPredicted: 2.5,
		CustomerIntent:        "dispute a charge",
		CallSummary:           "Customer disputes a duplicate charge on the March invoice.",
		ActionItems:           []string{"refund duplicate charge"},
	}
	contact := ContactInfo{Name: "Dana Voss", Email: "dana@example.com"}

	ticket := BuildTicket(call, triage, contact, now)

	if ticket.ID == "" {
		t.Error("ticket ID not assigned")
	}
	if ticket.CallID != "call-1" || ticket.TenantID != "tenant-1" {
		t.Errorf("call linkage wrong: call_id=%q tenant_id=%q", ticket.CallID, ticket.TenantID)
	}
	if ticket.Priority != PriorityHigh {
		t.Errorf("Priority = %q, want %q", ticket.Priority, PriorityHigh)
	}
	if ticket.Status != models.TicketStatusOpen {
		t.Errorf("Status = %q, want %q", ticket.Status, models.TicketStatusOpen)
	}
	if ticket.CustomerPhone != "+15550001111" {
		t.Errorf("CustomerPhone = %q, want caller phone fallback", ticket.CustomerPhone)
	}
	if ticket.CustomerEmail != "dana@example.com" {
		t.Errorf("CustomerEmail = %q", ticket.CustomerEmail)
	}
	if ticket.ResolvedAt != nil {
		t.Error("ResolvedAt set on an open ticket")
	}
}

func TestBuildTicketResolvedSetsResolvedAt(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	call := &models.CallRecord{ID: "call-2", TenantID: "tenant-1"}
	triage := &TriageResult{
		PrimaryCategory:       "billing",
		ResolutionStatus:      ResolutionResolved,
		SentimentScore:        0.5,
		SatisfactionPredicted: 4.5,
	}

	ticket := BuildTicket(call, triage, ContactInfo{}, now)

	if ticket.Status != models.TicketStatusResolved {
		t.Fatalf("Status = %q, want resolved", ticket.Status)
	}
	if ticket.ResolvedAt == nil || !ticket.ResolvedAt.Equal(now) {
		t.Errorf("ResolvedAt = %v, want %v", ticket.ResolvedAt, now)
	}
	if ticket.Priority != PriorityLow {
		t.Errorf("Priority = %q, want %q", ticket.Priority, PriorityLow)
	}
}
