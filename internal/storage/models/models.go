package models

import "time"

// Call statuses as delivered by the voice provider.
const (
	CallStatusInProgress = "in_progress"
	CallStatusCompleted  = "completed"
	CallStatusAbandoned  = "abandoned"
	CallStatusFailed     = "failed"
)

// Ticket statuses. The lifecycle is open -> in_progress -> resolved -> closed.
const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in_progress"
	TicketStatusResolved   = "resolved"
	TicketStatusClosed     = "closed"
)

type CallRecord struct {
	ID              string     `json:"id"`
	ProviderCallID  string     `json:"provider_call_id"`
	TenantID        string     `json:"tenant_id"`
	CallerPhone     string     `json:"caller_phone"`
	AgentType       string     `json:"agent_type"`
	Status          string     `json:"status"`
	RecordingURL    string     `json:"recording_url"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	DurationSeconds int        `json:"duration_seconds"`
}

type TranscriptTurn struct {
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	Timestamp *float64 `json:"timestamp,omitempty"`
}

type Transcript struct {
	ID        string           `json:"id"`
	CallID    string           `json:"call_id"`
	Turns     []TranscriptTurn `json:"turns"`
	FullText  string           `json:"full_text"`
	WordCount int              `json:"word_count"`
	TurnCount int              `json:"turn_count"`
	CreatedAt time.Time        `json:"created_at"`
}

// CallAnalytics is the per-call snapshot of the combined triage and deep
// extraction, stored before any aggregate is touched.
type CallAnalytics struct {
	ID                    string    `json:"id"`
	CallID                string    `json:"call_id"`
	OverallSentiment      string    `json:"overall_sentiment"`
	SentimentScore        float64   `json:"sentiment_score"`
	PrimaryCategory       string    `json:"primary_category"`
	SecondaryCategories   []string  `json:"secondary_categories"`
	Tags                  []string  `json:"tags"`
	ResolutionStatus      string    `json:"resolution_status"`
	ResolutionNotes       string    `json:"resolution_notes"`
	SatisfactionPredicted float64   `json:"satisfaction_predicted"`
	// AgentPerformanceScore is nil when the deep extraction was unavailable;
	// a degraded run records no score rather than a fabricated zero.
	AgentPerformanceScore *float64  `json:"agent_performance_score"`
	CustomerIntent        string    `json:"customer_intent"`
	KeyTopics             []string  `json:"key_topics"`
	ActionItems           []string  `json:"action_items"`
	KnowledgeGaps         []string  `json:"knowledge_gaps"`
	CallSummary           string    `json:"call_summary"`
	OneLineSummary        string    `json:"one_line_summary"`
	UrgencyLevel          string    `json:"urgency_level"`
	CustomerEffortScore   float64   `json:"customer_effort_score"`
	CustomerHadToRepeat   bool      `json:"customer_had_to_repeat"`
	TransferCount         int       `json:"transfer_count"`
	WasEscalated          bool      `json:"was_escalated"`
	EscalationReason      string    `json:"escalation_reason"`
	Degraded              bool      `json:"degraded"`
	AnalysisModel         string    `json:"analysis_model"`
	AnalysisVersion       string    `json:"analysis_version"`
	CreatedAt             time.Time `json:"created_at"`
}

type TicketNote struct {
	Content string    `json:"content"`
	AddedBy string    `json:"added_by"`
	AddedAt time.Time `json:"added_at"`
}

type Ticket struct {
	ID                    string       `json:"id"`
	CallID                string       `json:"call_id"`
	TenantID              string       `json:"tenant_id"`
	Title                 string       `json:"title"`
	Description           string       `json:"description"`
	Category              string       `json:"category"`
	Priority              string       `json:"priority"`
	Status                string       `json:"status"`
	Source                string       `json:"source"`
	CustomerName          string       `json:"customer_name"`
	CustomerEmail         string       `json:"customer_email"`
	CustomerPhone         string       `json:"customer_phone"`
	SentimentScore        float64      `json:"sentiment_score"`
	ResolutionStatus      string       `json:"resolution_status"`
	SatisfactionPredicted float64      `json:"satisfaction_predicted"`
	ActionItems           []string     `json:"action_items"`
	KeyTopics             []string     `json:"key_topics"`
	Notes                 []TicketNote `json:"notes"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
	ResolvedAt            *time.Time   `json:"resolved_at"`
}

type CustomerProfile struct {
	ID                   string     `json:"id"`
	TenantID             string     `json:"tenant_id"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	Phone                string     `json:"phone"`
	AccountID            string     `json:"account_id"`
	Company              string     `json:"company"`
	CustomerType         string     `json:"customer_type"`
	CommunicationStyle   string     `json:"communication_style"`
	LanguagePreference   string     `json:"language_preference"`
	TotalCalls           int        `json:"total_calls"`
	TotalDurationSeconds int        `json:"total_duration_seconds"`
	FirstCallAt          *time.Time `json:"first_call_at"`
	LastCallAt           *time.Time `json:"last_call_at"`
	AvgSatisfaction      float64    `json:"avg_satisfaction"`
	AvgSentiment         float64    `json:"avg_sentiment"`
	ChurnRiskLevel       string     `json:"churn_risk_level"`
	ChurnRiskScore       float64    `json:"churn_risk_score"`
	ChurnRiskFactors     []string   `json:"churn_risk_factors"`
	PainPoints           []string   `json:"pain_points"`
	FeatureRequests      []string   `json:"feature_requests"`
	Complaints           []string   `json:"complaints"`
	Compliments          []string   `json:"compliments"`
	ProductsMentioned    []string   `json:"products_mentioned"`
	CompetitorMentions   []string   `json:"competitor_mentions"`
	SpecialNotes         []string   `json:"special_notes"`
	RequiresFollowUp     bool       `json:"requires_follow_up"`
	FollowUpReason       string     `json:"follow_up_reason"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

type FeedbackAggregate struct {
	ID               string    `json:"id"`
	TenantID         string    `json:"tenant_id"`
	FeedbackType     string    `json:"feedback_type"`
	FeedbackText     string    `json:"feedback_text"`
	Category         string    `json:"category"`
	OccurrenceCount  int       `json:"occurrence_count"`
	FirstMentionedAt time.Time `json:"first_mentioned_at"`
	LastMentionedAt  time.Time `json:"last_mentioned_at"`
	CallIDs          []string  `json:"call_ids"`
}

// DailyRollup is a per-day counter bucket. TenantID is empty for the global
// bucket.
type DailyRollup struct {
	ID                   string         `json:"id"`
	Date                 string         `json:"date"`
	TenantID             string         `json:"tenant_id"`
	TotalCalls           int            `json:"total_calls"`
	CompletedCalls       int            `json:"completed_calls"`
	ResolvedCalls        int            `json:"resolved_calls"`
	EscalatedCalls       int            `json:"escalated_calls"`
	TotalDurationSeconds int            `json:"total_duration_seconds"`
	AvgDurationSeconds   float64        `json:"avg_duration_seconds"`
	ResolutionRate       float64        `json:"resolution_rate"` // percentage, 0-100
	PositiveCalls        int            `json:"positive_calls"`
	NeutralCalls         int            `json:"neutral_calls"`
	NegativeCalls        int            `json:"negative_calls"`
	AvgSentimentScore    float64        `json:"avg_sentiment_score"`
	CategoryBreakdown    map[string]int `json:"category_breakdown"`
}
