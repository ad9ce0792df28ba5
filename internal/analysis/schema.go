// Package analysis implements the post-call pipeline: it turns a completed
// call transcript into a ticket, a customer profile update, feedback
// aggregates and daily rollups, using two structured LLM extractions.
package analysis

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
	SentimentMixed    = "mixed"
)

// Resolution statuses.
const (
	ResolutionResolved          = "resolved"
	ResolutionPartiallyResolved = "partially_resolved"
	ResolutionUnresolved        = "unresolved"
	ResolutionEscalated         = "escalated"
	ResolutionFollowUpNeeded    = "follow_up_needed"
)

// Ticket priorities.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

const (
	defaultCategory           = "general_inquiry"
	defaultUrgency            = "medium"
	defaultCustomerType       = "unknown"
	defaultChurnRiskLevel     = "low"
	defaultCommunicationStyle = "neutral"
	defaultEscalationLevel    = "none"
	defaultPriceSensitivity   = "none"
)

var (
	sentimentValues  = []string{SentimentPositive, SentimentNeutral, SentimentNegative, SentimentMixed}
	resolutionValues = []string{ResolutionResolved, ResolutionPartiallyResolved, ResolutionUnresolved, ResolutionEscalated, ResolutionFollowUpNeeded}
	urgencyValues    = []string{"low", "medium", "high", "critical"}
	categoryValues   = []string{
		"account_access", "billing", "technical_support", "product_inquiry",
		"complaint", "feedback", "general_inquiry", "cancellation",
		"onboarding", "upgrade",
	}
	customerTypeValues       = []string{"new", "returning", "vip", "at_risk", "unknown"}
	churnRiskLevelValues     = []string{"low", "medium", "high"}
	communicationStyleValues = []string{"formal", "casual", "technical", "emotional", "neutral"}
	escalationLevelValues    = []string{"none", "tier_1", "tier_2", "tier_3", "manager", "specialist"}
	priceSensitivityValues   = []string{"none", "low", "medium", "high"}
)

// TriageResult is the validated output of the quick-triage extraction. Every
// field is in range: the validator has already clamped numerics and
// substituted enum defaults.
type TriageResult struct {
	OverallSentiment           string
	SentimentScore             float64
	PrimaryCategory            string
	SecondaryCategories        []string
	Tags                       []string
	ResolutionStatus           string
	ResolutionNotes            string
	SatisfactionPredicted      float64
	CustomerIntent             string
	KeyTopics                  []string
	ActionItems                []string
	CallSummary                string
	OneLineSummary             string
	UrgencyLevel               string
	RequiresImmediateAttention bool
	CustomerEffortScore        float64
	CustomerHadToRepeat        bool
	TransferCount              int
	WasEscalated               bool
	EscalationReason           string
}

// DeepResult is the validated output of the deep-analysis extraction. The
// whole value may be absent from a pipeline run when the deep call failed.
type DeepResult struct {
	SentimentProgression   []SentimentPoint
	NPSPredicted           *int
	QuestionsAsked         []string
	QuestionsUnanswered    []string
	CommitmentsMade        []string
	ImprovementSuggestions []string
	KnowledgeGaps          []string

	CustomerProfile  ExtractedProfile
	AgentPerformance AgentPerformance
	ConversationFlow ConversationFlow

	HandleTime          HandleTimeBreakdown
	EscalationDetail    EscalationDetail
	ConversationQuality ConversationQuality
	CompetitiveIntel    CompetitiveIntelligence
	ProductAnalytics    ProductAnalytics
}

type SentimentPoint struct {
	Timestamp float64
	Sentiment string
	Trigger   string
}

type ContactInfo struct {
	Name      string
	Email     string
	Phone     string
	AccountID string
	Company   string
}

// HasIdentifier reports whether at least one identity key usable for profile
// resolution is present.
func (c ContactInfo) HasIdentifier() bool {
	return c.Email != "" || c.Phone != "" || c.AccountID != ""
}

type CustomerContext struct {
	CustomerType       string
	IsFrustrated       bool
	IsRepeatCaller     bool
	PreviousIssues     []string
	ProductsMentioned  []string
	CompetitorMentions []string
}

type CustomerNeeds struct {
	PrimaryNeed       string
	SecondaryNeeds    []string
	UrgencyLevel      string
	DeadlineMentioned string
}

type CustomerFeedback struct {
	PainPoints      []string
	FeatureRequests []string
	Compliments     []string
	Complaints      []string
	Suggestions     []string
}

type ChurnRisk struct {
	RiskLevel        string
	RiskScore        float64
	RiskFactors      []string
	RetentionActions []string
}

type ExtractedProfile struct {
	Contact            ContactInfo
	Context            CustomerContext
	Needs              CustomerNeeds
	Feedback           CustomerFeedback
	ChurnRisk          ChurnRisk
	CommunicationStyle string
	LanguagePreference string
	RequiresFollowUp   bool
	FollowUpReason     string
	SpecialNotes       []string
}

type AgentPerformance struct {
	OverallScore            float64
	EmpathyScore            float64
	KnowledgeScore          float64
	CommunicationScore      float64
	EfficiencyScore         float64
	Strengths               []string
	AreasForImprovement     []string
	TrainingRecommendations []string
}

type ConversationFlow struct {
	OpeningQuality            float64
	ProblemIdentificationTime *int
	ResolutionTime            *int
	ClosingQuality            float64
	DeadAirSeconds            float64
	InterruptionsCount        int
}

type HandleTimeBreakdown struct {
	TalkTimeSeconds        int
	HoldTimeSeconds        int
	SilenceTimeSeconds     int
	AgentTalkPercentage    float64
	CustomerTalkPercentage float64
}

type EscalationDetail struct {
	Level      string
	Resolved   bool
	Department string
}

type ConversationQuality struct {
	AvgAgentResponseTimeSeconds float64
	ClarityScore                float64
	JargonUsageCount            int
	EmpathyPhrasesCount         int
	WordsPerMinute              float64
}

type CompetitiveIntelligence struct {
	CompetitorsMentioned  []string
	SwitchingIntent       bool
	PriceSensitivityLevel string
	ComparisonRequests    []string
}

type ProductAnalytics struct {
	ProductsDiscussed    []string
	FeaturesRequested    []string
	FeaturesProblematic  []string
	UpsellOpportunity    bool
	CrossSellSuggestions []string
}
