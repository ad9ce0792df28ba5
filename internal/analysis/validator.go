package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Raw wire structs. Numeric fields whose documented default is non-zero are
// pointers so a missing field can be told apart from an explicit zero.

type rawTriage struct {
	OverallSentiment           string   `json:"overall_sentiment"`
	SentimentScore             *float64 `json:"sentiment_score"`
	PrimaryCategory            string   `json:"primary_category"`
	SecondaryCategories        []string `json:"secondary_categories"`
	Tags                       []string `json:"tags"`
	ResolutionStatus           string   `json:"resolution_status"`
	ResolutionNotes            string   `json:"resolution_notes"`
	SatisfactionPredicted      *float64 `json:"customer_satisfaction_predicted"`
	CustomerIntent             string   `json:"customer_intent"`
	KeyTopics                  []string `json:"key_topics"`
	ActionItems                []string `json:"action_items"`
	CallSummary                string   `json:"call_summary"`
	OneLineSummary             string   `json:"one_line_summary"`
	UrgencyLevel               string   `json:"urgency_level"`
	RequiresImmediateAttention bool     `json:"requires_immediate_attention"`
	CustomerEffortScore        *float64 `json:"customer_effort_score"`
	CustomerHadToRepeat        bool     `json:"customer_had_to_repeat"`
	TransferCount              int      `json:"transfer_count"`
	WasEscalated               bool     `json:"was_escalated"`
	EscalationReason           string   `json:"escalation_reason"`
}

type rawSentimentPoint struct {
	Timestamp float64 `json:"timestamp"`
	Sentiment string  `json:"sentiment"`
	Trigger   string  `json:"trigger"`
}

type rawContactInfo struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	AccountID string `json:"account_id"`
	Company   string `json:"company"`
}

type rawCustomerContext struct {
	CustomerType       string   `json:"customer_type"`
	IsFrustrated       bool     `json:"is_frustrated"`
	IsRepeatCaller     bool     `json:"is_repeat_caller"`
	PreviousIssues     []string `json:"previous_issues_mentioned"`
	ProductsMentioned  []string `json:"products_mentioned"`
	CompetitorMentions []string `json:"competitor_mentions"`
}

type rawCustomerNeeds struct {
	PrimaryNeed       string   `json:"primary_need"`
	SecondaryNeeds    []string `json:"secondary_needs"`
	UrgencyLevel      string   `json:"urgency_level"`
	DeadlineMentioned string   `json:"deadline_mentioned"`
}

type rawCustomerFeedback struct {
	PainPoints      []string `json:"pain_points"`
	FeatureRequests []string `json:"feature_requests"`
	Compliments     []string `json:"compliments"`
	Complaints      []string `json:"complaints"`
	Suggestions     []string `json:"suggestions"`
}

type rawChurnRisk struct {
	RiskLevel        string   `json:"risk_level"`
	RiskScore        float64  `json:"risk_score"`
	RiskFactors      []string `json:"risk_factors"`
	RetentionActions []string `json:"retention_actions"`
}

type rawExtractedProfile struct {
	ContactInfo        rawContactInfo      `json:"contact_info"`
	Context            rawCustomerContext  `json:"context"`
	Needs              rawCustomerNeeds    `json:"needs"`
	Feedback           rawCustomerFeedback `json:"feedback"`
	ChurnRisk          rawChurnRisk        `json:"churn_risk"`
	CommunicationStyle string              `json:"communication_style"`
	LanguagePreference string              `json:"language_preference"`
	RequiresFollowUp   bool                `json:"requires_follow_up"`
	FollowUpReason     string              `json:"follow_up_reason"`
	SpecialNotes       []string            `json:"special_notes"`
}

type rawAgentPerformance struct {
	OverallScore            *float64 `json:"overall_score"`
	EmpathyScore            *float64 `json:"empathy_score"`
	KnowledgeScore          *float64 `json:"knowledge_score"`
	CommunicationScore      *float64 `json:"communication_score"`
	EfficiencyScore         *float64 `json:"efficiency_score"`
	Strengths               []string `json:"strengths"`
	AreasForImprovement     []string `json:"areas_for_improvement"`
	TrainingRecommendations []string `json:"training_recommendations"`
}

type rawConversationFlow struct {
	OpeningQuality            *float64 `json:"opening_quality"`
	ProblemIdentificationTime *int     `json:"problem_identification_time"`
	ResolutionTime            *int     `json:"resolution_time"`
	ClosingQuality            *float64 `json:"closing_quality"`
	DeadAirSeconds            float64  `json:"dead_air_seconds"`
	InterruptionsCount        int      `json:"interruptions_count"`
}

type rawHandleTime struct {
	TalkTimeSeconds        int     `json:"talk_time_seconds"`
	HoldTimeSeconds        int     `json:"hold_time_seconds"`
	SilenceTimeSeconds     int     `json:"silence_time_seconds"`
	AgentTalkPercentage    float64 `json:"agent_talk_percentage"`
	CustomerTalkPercentage float64 `json:"customer_talk_percentage"`
}

type rawEscalationDetail struct {
	EscalationLevel       string `json:"escalation_level"`
	EscalationResolved    bool   `json:"escalation_resolved"`
	EscalatedToDepartment string `json:"escalated_to_department"`
}

type rawConversationQuality struct {
	AvgAgentResponseTimeSeconds float64  `json:"avg_agent_response_time_seconds"`
	ClarityScore                *float64 `json:"clarity_score"`
	JargonUsageCount            int      `json:"jargon_usage_count"`
	EmpathyPhrasesCount         int      `json:"empathy_phrases_count"`
	WordsPerMinute              float64  `json:"words_per_minute"`
}

type rawCompetitiveIntel struct {
	CompetitorsMentioned         []string `json:"competitors_mentioned"`
	SwitchingIntentDetected      bool     `json:"switching_intent_detected"`
	PriceSensitivityLevel        string   `json:"price_sensitivity_level"`
	CompetitorComparisonRequests []string `json:"competitor_comparison_requests"`
}

type rawProductAnalytics struct {
	ProductsDiscussed         []string `json:"products_discussed"`
	FeaturesRequested         []string `json:"features_requested"`
	FeaturesProblematic       []string `json:"features_problematic"`
	UpsellOpportunityDetected bool     `json:"upsell_opportunity_detected"`
	CrossSellSuggestions      []string `json:"cross_sell_suggestions"`
}

type rawDeep struct {
	SentimentProgression   []rawSentimentPoint `json:"sentiment_progression"`
	NPSPredicted           *int                `json:"nps_predicted"`
	QuestionsAsked         []string            `json:"questions_asked"`
	QuestionsUnanswered    []string            `json:"questions_unanswered"`
	CommitmentsMade        []string            `json:"commitments_made"`
	ImprovementSuggestions []string            `json:"improvement_suggestions"`
	KnowledgeGaps          []string            `json:"knowledge_gaps"`

	CustomerProfile  rawExtractedProfile `json:"customer_profile"`
	AgentPerformance rawAgentPerformance `json:"agent_performance"`
	ConversationFlow rawConversationFlow `json:"conversation_flow"`

	HandleTimeBreakdown     rawHandleTime          `json:"handle_time_breakdown"`
	EscalationDetails       rawEscalationDetail    `json:"escalation_details"`
	ConversationQuality     rawConversationQuality `json:"conversation_quality"`
	CompetitiveIntelligence rawCompetitiveIntel    `json:"competitive_intelligence"`
	ProductAnalytics        rawProductAnalytics    `json:"product_analytics"`
}

// ParseTriage parses and validates a raw triage response. The returned value
// has every numeric clamped into its declared interval and every enum either
// valid or replaced by its documented default. A non-nil error means the
// payload was not usable JSON at all.
func ParseTriage(raw string) (*TriageResult, error) {
	var rt rawTriage
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &rt); err != nil {
		return nil, fmt.Errorf("triage response is not valid JSON: %w", err)
	}

	return &TriageResult{
		OverallSentiment:           pickEnum(rt.OverallSentiment, SentimentNeutral, sentimentValues),
		SentimentScore:             clampDefault(rt.SentimentScore, -1, 1, 0),
		PrimaryCategory:            pickEnum(rt.PrimaryCategory, defaultCategory, categoryValues),
		SecondaryCategories:        cleanList(rt.SecondaryCategories),
		Tags:                       cleanList(rt.Tags),
		ResolutionStatus:           pickEnum(rt.ResolutionStatus, ResolutionUnresolved, resolutionValues),
		ResolutionNotes:            rt.ResolutionNotes,
		SatisfactionPredicted:      clampDefault(rt.SatisfactionPredicted, 1, 5, 3),
		CustomerIntent:             strings.TrimSpace(rt.CustomerIntent),
		KeyTopics:                  cleanList(rt.KeyTopics),
		ActionItems:                cleanList(rt.ActionItems),
		CallSummary:                strings.TrimSpace(rt.CallSummary),
		OneLineSummary:             strings.TrimSpace(rt.OneLineSummary),
		UrgencyLevel:               pickEnum(rt.UrgencyLevel, defaultUrgency, urgencyValues),
		RequiresImmediateAttention: rt.RequiresImmediateAttention,
		CustomerEffortScore:        clampDefault(rt.CustomerEffortScore, 1, 5, 3),
		CustomerHadToRepeat:        rt.CustomerHadToRepeat,
		TransferCount:              clampNonNegative(rt.TransferCount),
		WasEscalated:               rt.WasEscalated,
		EscalationReason:           strings.TrimSpace(rt.EscalationReason),
	}, nil
}

// ParseDeep parses and validates a raw deep-analysis response using the same
// clamp-and-default rules as ParseTriage.
func ParseDeep(raw string) (*DeepResult, error) {
	var rd rawDeep
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &rd); err != nil {
		return nil, fmt.Errorf("deep response is not valid JSON: %w", err)
	}

	progression := make([]SentimentPoint, 0, len(rd.SentimentProgression))
	for _, p := range rd.SentimentProgression {
		progression = append(progression, SentimentPoint{
			Timestamp: clamp(p.Timestamp, 0, p.Timestamp),
			Sentiment: pickEnum(p.Sentiment, SentimentNeutral, sentimentValues),
			Trigger:   p.Trigger,
		})
	}

	var nps *int
	if rd.NPSPredicted != nil {
		v := int(clamp(float64(*rd.NPSPredicted), 0, 10))
		nps = &v
	}

	cp := rd.CustomerProfile
	return &DeepResult{
		SentimentProgression:   progression,
		NPSPredicted:           nps,
		QuestionsAsked:         cleanList(rd.QuestionsAsked),
		QuestionsUnanswered:    cleanList(rd.QuestionsUnanswered),
		CommitmentsMade:        cleanList(rd.CommitmentsMade),
		ImprovementSuggestions: cleanList(rd.ImprovementSuggestions),
		KnowledgeGaps:          cleanList(rd.KnowledgeGaps),

		CustomerProfile: ExtractedProfile{
			Contact: ContactInfo{
				Name:      strings.TrimSpace(cp.ContactInfo.Name),
				Email:     strings.TrimSpace(cp.ContactInfo.Email),
				Phone:     strings.TrimSpace(cp.ContactInfo.Phone),
				AccountID: strings.TrimSpace(cp.ContactInfo.AccountID),
				Company:   strings.TrimSpace(cp.ContactInfo.Company),
			},
			Context: CustomerContext{
				CustomerType:       pickEnum(cp.Context.CustomerType, defaultCustomerType, customerTypeValues),
				IsFrustrated:       cp.Context.IsFrustrated,
				IsRepeatCaller:     cp.Context.IsRepeatCaller,
				PreviousIssues:     cleanList(cp.Context.PreviousIssues),
				ProductsMentioned:  cleanList(cp.Context.ProductsMentioned),
				CompetitorMentions: cleanList(cp.Context.CompetitorMentions),
			},
			Needs: CustomerNeeds{
				PrimaryNeed:       strings.TrimSpace(cp.Needs.PrimaryNeed),
				SecondaryNeeds:    cleanList(cp.Needs.SecondaryNeeds),
				UrgencyLevel:      pickEnum(cp.Needs.UrgencyLevel, defaultUrgency, urgencyValues),
				DeadlineMentioned: cp.Needs.DeadlineMentioned,
			},
			Feedback: CustomerFeedback{
				PainPoints:      cleanList(cp.Feedback.PainPoints),
				FeatureRequests: cleanList(cp.Feedback.FeatureRequests),
				Compliments:     cleanList(cp.Feedback.Compliments),
				Complaints:      cleanList(cp.Feedback.Complaints),
				Suggestions:     cleanList(cp.Feedback.Suggestions),
			},
			ChurnRisk: ChurnRisk{
				RiskLevel:        pickEnum(cp.ChurnRisk.RiskLevel, defaultChurnRiskLevel, churnRiskLevelValues),
				RiskScore:        clamp(cp.ChurnRisk.RiskScore, 0, 1),
				RiskFactors:      cleanList(cp.ChurnRisk.RiskFactors),
				RetentionActions: cleanList(cp.ChurnRisk.RetentionActions),
			},
			CommunicationStyle: pickEnum(cp.CommunicationStyle, defaultCommunicationStyle, communicationStyleValues),
			LanguagePreference: defaultString(cp.LanguagePreference, "en"),
			RequiresFollowUp:   cp.RequiresFollowUp,
			FollowUpReason:     strings.TrimSpace(cp.FollowUpReason),
			SpecialNotes:       cleanList(cp.SpecialNotes),
		},

		AgentPerformance: AgentPerformance{
			OverallScore:            clampDefault(rd.AgentPerformance.OverallScore, 0, 100, 50),
			EmpathyScore:            clampDefault(rd.AgentPerformance.EmpathyScore, 0, 100, 50),
			KnowledgeScore:          clampDefault(rd.AgentPerformance.KnowledgeScore, 0, 100, 50),
			CommunicationScore:      clampDefault(rd.AgentPerformance.CommunicationScore, 0, 100, 50),
			EfficiencyScore:         clampDefault(rd.AgentPerformance.EfficiencyScore, 0, 100, 50),
			Strengths:               cleanList(rd.AgentPerformance.Strengths),
			AreasForImprovement:     cleanList(rd.AgentPerformance.AreasForImprovement),
			TrainingRecommendations: cleanList(rd.AgentPerformance.TrainingRecommendations),
		},

		ConversationFlow: ConversationFlow{
			OpeningQuality:            clampDefault(rd.ConversationFlow.OpeningQuality, 0, 100, 50),
			ProblemIdentificationTime: rd.ConversationFlow.ProblemIdentificationTime,
			ResolutionTime:            rd.ConversationFlow.ResolutionTime,
			ClosingQuality:            clampDefault(rd.ConversationFlow.ClosingQuality, 0, 100, 50),
			DeadAirSeconds:            clamp(rd.ConversationFlow.DeadAirSeconds, 0, rd.ConversationFlow.DeadAirSeconds),
			InterruptionsCount:        clampNonNegative(rd.ConversationFlow.InterruptionsCount),
		},

		HandleTime: HandleTimeBreakdown{
			TalkTimeSeconds:        clampNonNegative(rd.HandleTimeBreakdown.TalkTimeSeconds),
			HoldTimeSeconds:        clampNonNegative(rd.HandleTimeBreakdown.HoldTimeSeconds),
			SilenceTimeSeconds:     clampNonNegative(rd.HandleTimeBreakdown.SilenceTimeSeconds),
			AgentTalkPercentage:    clamp(rd.HandleTimeBreakdown.AgentTalkPercentage, 0, 100),
			CustomerTalkPercentage: clamp(rd.HandleTimeBreakdown.CustomerTalkPercentage, 0, 100),
		},

		EscalationDetail: EscalationDetail{
			Level:      pickEnum(rd.EscalationDetails.EscalationLevel, defaultEscalationLevel, escalationLevelValues),
			Resolved:   rd.EscalationDetails.EscalationResolved,
			Department: strings.TrimSpace(rd.EscalationDetails.EscalatedToDepartment),
		},

		ConversationQuality: ConversationQuality{
			AvgAgentResponseTimeSeconds: clamp(rd.ConversationQuality.AvgAgentResponseTimeSeconds, 0, rd.ConversationQuality.AvgAgentResponseTimeSeconds),
			ClarityScore:                clampDefault(rd.ConversationQuality.ClarityScore, 0, 100, 50),
			JargonUsageCount:            clampNonNegative(rd.ConversationQuality.JargonUsageCount),
			EmpathyPhrasesCount:         clampNonNegative(rd.ConversationQuality.EmpathyPhrasesCount),
			WordsPerMinute:              clamp(rd.ConversationQuality.WordsPerMinute, 0, rd.ConversationQuality.WordsPerMinute),
		},

		CompetitiveIntel: CompetitiveIntelligence{
			CompetitorsMentioned:  cleanList(rd.CompetitiveIntelligence.CompetitorsMentioned),
			SwitchingIntent:       rd.CompetitiveIntelligence.SwitchingIntentDetected,
			PriceSensitivityLevel: pickEnum(rd.CompetitiveIntelligence.PriceSensitivityLevel, defaultPriceSensitivity, priceSensitivityValues),
			ComparisonRequests:    cleanList(rd.CompetitiveIntelligence.CompetitorComparisonRequests),
		},

		ProductAnalytics: ProductAnalytics{
			ProductsDiscussed:    cleanList(rd.ProductAnalytics.ProductsDiscussed),
			FeaturesRequested:    cleanList(rd.ProductAnalytics.FeaturesRequested),
			FeaturesProblematic:  cleanList(rd.ProductAnalytics.FeaturesProblematic),
			UpsellOpportunity:    rd.ProductAnalytics.UpsellOpportunityDetected,
			CrossSellSuggestions: cleanList(rd.ProductAnalytics.CrossSellSuggestions),
		},
	}, nil
}

// stripCodeFence removes markdown code-fence wrapping the model sometimes
// adds despite JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-len("```")]
	}
	return strings.TrimSpace(s)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampDefault returns def when the field was absent, the clamped value
// otherwise.
func clampDefault(p *float64, lo, hi, def float64) float64 {
	if p == nil {
		return def
	}
	return clamp(*p, lo, hi)
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// pickEnum returns v when it is one of allowed, def otherwise. Matching is
// case-insensitive; the canonical lowercase form is returned.
func pickEnum(v, def string, allowed []string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return a
		}
	}
	return def
}

func defaultString(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

// cleanList trims entries and drops empties, always returning a non-nil
// slice.
func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it != "" {
			out = append(out, it)
		}
	}
	return out
}
