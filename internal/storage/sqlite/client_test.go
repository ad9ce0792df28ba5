package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/supportiq/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })

	if err := client.InitSchema(); err != nil {
		t.Fatalf("InitSchema() error = %v", err)
	}
	return client
}

func TestUpsertCallRoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ended := started.Add(5 * time.Minute)

	call := &models.CallRecord{
		ID:              "call-1",
		ProviderCallID:  "prov-abc",
		TenantID:        "tenant-1",
		CallerPhone:     "+15550001111",
		AgentType:       "support",
		Status:          models.CallStatusInProgress,
		StartedAt:       started,
	}
	if err := client.UpsertCall(ctx, call); err != nil {
		t.Fatalf("UpsertCall() error = %v", err)
	}

	// Second report for the same provider call updates status and duration
	// without creating a new row.
	call.Status = models.CallStatusCompleted
	call.EndedAt = &ended
	call.DurationSeconds = 300
	if err := client.UpsertCall(ctx, call); err != nil {
		t.Fatalf("UpsertCall() update error = %v", err)
	}

	got, err := client.GetCallByProviderID(ctx, "prov-abc")
	if err != nil {
		t.Fatalf("GetCallByProviderID() error = %v", err)
	}
	if got == nil {
		t.Fatal("call not found")
	}
	if got.Status != models.CallStatusCompleted || got.DurationSeconds != 300 {
		t.Errorf("call = %+v, upsert did not refresh fields", got)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(ended) {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, ended)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}

	missing, err := client.GetCall(ctx, "nope")
	if err != nil {
		t.Fatalf("GetCall() error = %v", err)
	}
	if missing != nil {
		t.Error("GetCall() on a missing id must return nil, nil")
	}
}

func TestTranscriptRoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	call := &models.CallRecord{ID: "call-1", ProviderCallID: "prov-1", TenantID: "tenant-1", Status: models.CallStatusCompleted, StartedAt: started}
	if err := client.UpsertCall(ctx, call); err != nil {
		t.Fatalf("UpsertCall() error = %v", err)
	}

	timestamp := 4.0
	tr := &models.Transcript{
		ID:     "tr-1",
		CallID: "call-1",
		Turns: []models.TranscriptTurn{
			{Role: "agent", Content: "hello"},
			{Role: "user", Content: "my invoice is wrong", Timestamp: &timestamp},
		},
		FullText:  "AGENT: hello\nCUSTOMER: my invoice is wrong",
		WordCount: 7,
		TurnCount: 2,
		CreatedAt: started,
	}
	if err := client.SaveTranscript(ctx, tr); err != nil {
		t.Fatalf("SaveTranscript() error = %v", err)
	}

	got, err := client.GetTranscript(ctx, "call-1")
	if err != nil {
		t.Fatalf("GetTranscript() error = %v", err)
	}
	if got == nil {
		t.Fatal("transcript not found")
	}
	if len(got.Turns) != 2 || got.Turns[1].Timestamp == nil || *got.Turns[1].Timestamp != 4.0 {
		t.Errorf("Turns = %+v, want structured turns preserved", got.Turns)
	}
}

func TestTicketRoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	ticket := &models.Ticket{
		ID:          "tick-1",
		CallID:      "call-1",
		TenantID:    "tenant-1",
		Title:       "Billing: dispute a charge",
		Priority:    "high",
		Status:      models.TicketStatusOpen,
		Source:      "call",
		ActionItems: []string{"refund duplicate charge"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := client.SaveTicket(ctx, ticket); err != nil {
		t.Fatalf("SaveTicket() error = %v", err)
	}

	resolvedAt := now.Add(time.Hour)
	ticket.Status = models.TicketStatusResolved
	ticket.ResolvedAt = &resolvedAt
	ticket.Notes = []models.TicketNote{{Content: "refund issued", AddedBy: "agent-7", AddedAt: resolvedAt}}
	ticket.UpdatedAt = resolvedAt
	if err := client.SaveTicket(ctx, ticket); err != nil {
		t.Fatalf("SaveTicket() update error = %v", err)
	}

	got, err := client.GetTicket(ctx, "tick-1")
	if err != nil {
		t.Fatalf("GetTicket() error = %v", err)
	}
	if got == nil {
		t.Fatal("ticket not found")
	}
	if got.Status != models.TicketStatusResolved {
		t.Errorf("Status = %q", got.Status)
	}
	if got.ResolvedAt == nil || !got.ResolvedAt.Equal(resolvedAt) {
		t.Errorf("ResolvedAt = %v, want %v", got.ResolvedAt, resolvedAt)
	}
	if len(got.Notes) != 1 || got.Notes[0].Content != "refund issued" {
		t.Errorf("Notes = %+v", got.Notes)
	}
	if len(got.ActionItems) != 1 {
		t.Errorf("ActionItems = %v", got.ActionItems)
	}

	tickets, err := client.ListTickets(ctx, "tenant-1", models.TicketStatusResolved, "", "", 10, 0)
	if err != nil {
		t.Fatalf("ListTickets() error = %v", err)
	}
	if len(tickets) != 1 {
		t.Errorf("ListTickets() = %d tickets, want 1", len(tickets))
	}
}

func TestProfileLookups(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	profile := &models.CustomerProfile{
		ID:         "prof-1",
		TenantID:   "tenant-1",
		Email:      "pat@example.com",
		Phone:      "+15550002222",
		AccountID:  "acct-9",
		TotalCalls: 1,
		PainPoints: []string{"confusing pricing page"},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := client.SaveProfile(ctx, profile); err != nil {
		t.Fatalf("SaveProfile() error = %v", err)
	}

	byEmail, err := client.FindProfileByEmail(ctx, "tenant-1", "pat@example.com")
	if err != nil || byEmail == nil || byEmail.ID != "prof-1" {
		t.Fatalf("FindProfileByEmail() = %v, %v", byEmail, err)
	}
	if len(byEmail.PainPoints) != 1 {
		t.Errorf("PainPoints = %v", byEmail.PainPoints)
	}

	byPhone, err := client.FindProfileByPhone(ctx, "tenant-1", "+15550002222")
	if err != nil || byPhone == nil || byPhone.ID != "prof-1" {
		t.Fatalf("FindProfileByPhone() = %v, %v", byPhone, err)
	}

	byAccount, err := client.FindProfileByAccountID(ctx, "tenant-1", "acct-9")
	if err != nil || byAccount == nil || byAccount.ID != "prof-1" {
		t.Fatalf("FindProfileByAccountID() = %v, %v", byAccount, err)
	}

	otherTenant, err := client.FindProfileByEmail(ctx, "tenant-2", "pat@example.com")
	if err != nil {
		t.Fatalf("FindProfileByEmail() error = %v", err)
	}
	if otherTenant != nil {
		t.Error("profile leaked across tenants")
	}
}

func TestFeedbackUpsertKey(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	fb := &models.FeedbackAggregate{
		ID:               "fb-1",
		TenantID:         "tenant-1",
		FeedbackType:     "pain_point",
		FeedbackText:     "confusing pricing page",
		Category:         "billing",
		OccurrenceCount:  1,
		FirstMentionedAt: now,
		LastMentionedAt:  now,
		CallIDs:          []string{"call-1"},
	}
	if err := client.SaveFeedback(ctx, fb); err != nil {
		t.Fatalf("SaveFeedback() error = %v", err)
	}

	// A save with a different id but the same key must update the existing
	// row, matching the aggregator's read-modify-write cycle.
	fb2 := *fb
	fb2.ID = "fb-2"
	fb2.OccurrenceCount = 2
	fb2.CallIDs = []string{"call-1", "call-2"}
	fb2.LastMentionedAt = now.Add(time.Hour)
	if err := client.SaveFeedback(ctx, &fb2); err != nil {
		t.Fatalf("SaveFeedback() upsert error = %v", err)
	}

	got, err := client.FindFeedback(ctx, "tenant-1", "pain_point", "confusing pricing page")
	if err != nil {
		t.Fatalf("FindFeedback() error = %v", err)
	}
	if got == nil {
		t.Fatal("feedback not found")
	}
	if got.OccurrenceCount != 2 || len(got.CallIDs) != 2 {
		t.Errorf("feedback = %+v, want updated in place", got)
	}

	list, err := client.ListFeedback(ctx, "tenant-1", "", 10)
	if err != nil {
		t.Fatalf("ListFeedback() error = %v", err)
	}
	if len(list) != 1 {
		t.Errorf("ListFeedback() = %d rows, want 1", len(list))
	}
}

func TestRollupUpsertAndRange(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	for _, date := range []string{"2026-03-09", "2026-03-10", "2026-03-11"} {
		r := &models.DailyRollup{
			ID:                "roll-" + date,
			Date:              date,
			TenantID:          "tenant-1",
			TotalCalls:        1,
			CategoryBreakdown: map[string]int{"billing": 1},
		}
		if err := client.SaveRollup(ctx, r); err != nil {
			t.Fatalf("SaveRollup(%s) error = %v", date, err)
		}
	}

	got, err := client.FindRollup(ctx, "2026-03-10", "tenant-1")
	if err != nil {
		t.Fatalf("FindRollup() error = %v", err)
	}
	if got == nil || got.CategoryBreakdown["billing"] != 1 {
		t.Fatalf("FindRollup() = %+v", got)
	}

	got.TotalCalls = 2
	got.CategoryBreakdown["billing"] = 2
	if err := client.SaveRollup(ctx, got); err != nil {
		t.Fatalf("SaveRollup() update error = %v", err)
	}

	rollups, err := client.ListRollups(ctx, "tenant-1", "2026-03-10", "2026-03-11")
	if err != nil {
		t.Fatalf("ListRollups() error = %v", err)
	}
	if len(rollups) != 2 {
		t.Fatalf("ListRollups() = %d rows, want 2", len(rollups))
	}
	if rollups[0].Date != "2026-03-10" || rollups[0].TotalCalls != 2 {
		t.Errorf("rollups[0] = %+v", rollups[0])
	}

	missing, err := client.FindRollup(ctx, "2026-03-10", "tenant-other")
	if err != nil {
		t.Fatalf("FindRollup() error = %v", err)
	}
	if missing != nil {
		t.Error("FindRollup() for an unknown tenant must return nil, nil")
	}
}

func TestListCallsWithoutAnalytics(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"call-1", "call-2", "call-3"} {
		call := &models.CallRecord{
			ID:             id,
			ProviderCallID: "prov-" + id,
			TenantID:       "tenant-1",
			Status:         models.CallStatusCompleted,
			StartedAt:      started.Add(time.Duration(i) * time.Minute),
		}
		if err := client.UpsertCall(ctx, call); err != nil {
			t.Fatalf("UpsertCall(%s) error = %v", id, err)
		}
	}

	// call-1 and call-2 have transcripts, call-3 none; call-2 is analyzed.
	for _, callID := range []string{"call-1", "call-2"} {
		tr := &models.Transcript{ID: "tr-" + callID, CallID: callID, FullText: "x", CreatedAt: started}
		if err := client.SaveTranscript(ctx, tr); err != nil {
			t.Fatalf("SaveTranscript(%s) error = %v", callID, err)
		}
	}
	analytics := &models.CallAnalytics{ID: "an-1", CallID: "call-2", CreatedAt: started}
	if err := client.SaveAnalytics(ctx, analytics); err != nil {
		t.Fatalf("SaveAnalytics() error = %v", err)
	}

	calls, err := client.ListCallsWithoutAnalytics(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListCallsWithoutAnalytics() error = %v", err)
	}
	if len(calls) != 1 || calls[0].ID != "call-1" {
		t.Errorf("ListCallsWithoutAnalytics() = %+v, want only call-1", calls)
	}
}

func TestAnalyticsRoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	call := &models.CallRecord{
		ID:             "call-1",
		ProviderCallID: "prov-1",
		TenantID:       "tenant-1",
		Status:         models.CallStatusCompleted,
		StartedAt:      started,
	}
	if err := client.UpsertCall(ctx, call); err != nil {
		t.Fatalf("UpsertCall() error = %v", err)
	}

	// A degraded run stores no agent score; the column stays NULL.
	analytics := &models.CallAnalytics{
		ID:              "an-1",
		CallID:          "call-1",
		PrimaryCategory: "billing",
		Degraded:        true,
		CreatedAt:       started,
	}
	if err := client.SaveAnalytics(ctx, analytics); err != nil {
		t.Fatalf("SaveAnalytics() error = %v", err)
	}

	got, err := client.GetAnalyticsByCallID(ctx, "call-1")
	if err != nil {
		t.Fatalf("GetAnalyticsByCallID() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetAnalyticsByCallID() = nil")
	}
	if got.AgentPerformanceScore != nil {
		t.Errorf("AgentPerformanceScore = %v, want nil for degraded snapshot", *got.AgentPerformanceScore)
	}

	score := 87.5
	analytics.Degraded = false
	analytics.AgentPerformanceScore = &score
	if err := client.SaveAnalytics(ctx, analytics); err != nil {
		t.Fatalf("SaveAnalytics() upsert error = %v", err)
	}

	got, err = client.GetAnalyticsByCallID(ctx, "call-1")
	if err != nil {
		t.Fatalf("GetAnalyticsByCallID() error = %v", err)
	}
	if got.AgentPerformanceScore == nil || *got.AgentPerformanceScore != 87.5 {
		t.Errorf("AgentPerformanceScore = %v, want 87.5", got.AgentPerformanceScore)
	}
}
