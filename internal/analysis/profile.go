package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportiq/backend/internal/storage/models"
	"github.com/supportiq/backend/pkg/logger"
)

// ErrIdentityAbsent is returned when the deep extraction carries no email,
// phone or account id and no profile can be resolved.
var ErrIdentityAbsent = errors.New("no customer identifier extracted")

// ProfileStore is the persistence surface the profile aggregator needs.
// Lookups return (nil, nil) when no profile matches.
type ProfileStore interface {
	FindProfileByEmail(ctx context.Context, tenantID, email string) (*models.CustomerProfile, error)
	FindProfileByPhone(ctx context.Context, tenantID, phone string) (*models.CustomerProfile, error)
	FindProfileByAccountID(ctx context.Context, tenantID, accountID string) (*models.CustomerProfile, error)
	SaveProfile(ctx context.Context, profile *models.CustomerProfile) error
}

// ProfileAggregator folds per-call extraction results into long-lived
// customer profiles.
type ProfileAggregator struct {
	store ProfileStore
}

func NewProfileAggregator(store ProfileStore) *ProfileAggregator {
	return &ProfileAggregator{store: store}
}

// Aggregate resolves the profile for the caller and folds this call into it.
// Resolution tries email, then phone, then account id, always scoped to the
// call's tenant. The first lookup that matches wins.
func (a *ProfileAggregator) Aggregate(ctx context.Context, call *models.CallRecord, triage *TriageResult, deep *DeepResult, now time.Time) (*models.CustomerProfile, error) {
	contact := deep.CustomerProfile.Contact
	if !contact.HasIdentifier() {
		return nil, ErrIdentityAbsent
	}

	profile, err := a.resolve(ctx, call.TenantID, contact)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile: %w", err)
	}

	created := false
	if profile == nil {
		created = true
		profile = &models.CustomerProfile{
			ID:        uuid.New().String(),
			TenantID:  call.TenantID,
			CreatedAt: now,
		}
	}

	a.fold(profile, call, triage, deep, now)

	if err := a.store.SaveProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	logger.Debug("Customer profile updated",
		zap.String("profile_id", profile.ID),
		zap.String("call_id", call.ID),
		zap.Bool("created", created),
		zap.Int("total_calls", profile.TotalCalls),
	)

	return profile, nil
}

func (a *ProfileAggregator) resolve(ctx context.Context, tenantID string, contact ContactInfo) (*models.CustomerProfile, error) {
	if contact.Email != "" {
		profile, err := a.store.FindProfileByEmail(ctx, tenantID, contact.Email)
		if err != nil || profile != nil {
			return profile, err
		}
	}
	if contact.Phone != "" {
		profile, err := a.store.FindProfileByPhone(ctx, tenantID, contact.Phone)
		if err != nil || profile != nil {
			return profile, err
		}
	}
	if contact.AccountID != "" {
		profile, err := a.store.FindProfileByAccountID(ctx, tenantID, contact.AccountID)
		if err != nil || profile != nil {
			return profile, err
		}
	}
	return nil, nil
}

// fold applies one call's results to a profile in place. Identity fields are
// sticky: a value already on the profile is never overwritten, only missing
// ones are filled in. Averages use the running-mean recurrence so the stored
// value is exact regardless of how many calls preceded this one.
func (a *ProfileAggregator) fold(p *models.CustomerProfile, call *models.CallRecord, triage *TriageResult, deep *DeepResult, now time.Time) {
	contact := deep.CustomerProfile.Contact

	p.Name = firstNonEmpty(p.Name, contact.Name)
	p.Email = firstNonEmpty(p.Email, contact.Email)
	p.Phone = firstNonEmpty(p.Phone, contact.Phone, call.CallerPhone)
	p.AccountID = firstNonEmpty(p.AccountID, contact.AccountID)
	p.Company = firstNonEmpty(p.Company, contact.Company)

	p.TotalCalls++
	p.TotalDurationSeconds += call.DurationSeconds

	callTime := call.StartedAt
	if p.FirstCallAt == nil {
		first := callTime
		p.FirstCallAt = &first
	}
	last := callTime
	p.LastCallAt = &last

	n := float64(p.TotalCalls)
	p.AvgSatisfaction = (p.AvgSatisfaction*(n-1) + triage.SatisfactionPredicted) / n
	p.AvgSentiment = (p.AvgSentiment*(n-1) + triage.SentimentScore) / n

	// Point-in-time assessments reflect the latest call.
	ep := deep.CustomerProfile
	if ep.Context.CustomerType != defaultCustomerType {
		p.CustomerType = ep.Context.CustomerType
	} else if p.CustomerType == "" {
		p.CustomerType = defaultCustomerType
	}
	p.CommunicationStyle = ep.CommunicationStyle
	p.LanguagePreference = firstNonEmpty(ep.LanguagePreference, p.LanguagePreference)
	p.ChurnRiskLevel = ep.ChurnRisk.RiskLevel
	p.ChurnRiskScore = ep.ChurnRisk.RiskScore
	p.ChurnRiskFactors = unionStrings(p.ChurnRiskFactors, ep.ChurnRisk.RiskFactors)
	p.RequiresFollowUp = ep.RequiresFollowUp
	p.FollowUpReason = ep.FollowUpReason

	p.PainPoints = unionStrings(p.PainPoints, ep.Feedback.PainPoints)
	p.FeatureRequests = unionStrings(p.FeatureRequests, ep.Feedback.FeatureRequests)
	p.Complaints = unionStrings(p.Complaints, ep.Feedback.Complaints)
	p.Compliments = unionStrings(p.Compliments, ep.Feedback.Compliments)
	p.ProductsMentioned = unionStrings(p.ProductsMentioned, ep.Context.ProductsMentioned)
	p.CompetitorMentions = unionStrings(p.CompetitorMentions, ep.Context.CompetitorMentions)
	p.SpecialNotes = unionStrings(p.SpecialNotes, ep.SpecialNotes)

	p.UpdatedAt = now
}

// unionStrings appends the members of additions not already in existing,
// preserving order of first appearance.
func unionStrings(existing, additions []string) []string {
	if len(additions) == 0 {
		return existing
	}
	seen := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		seen[s] = struct{}{}
	}
	out := existing
	for _, s := range additions {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
