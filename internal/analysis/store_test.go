package analysis

import (
	"context"
	"sync"

	"github.com/supportiq/backend/internal/storage/models"
)

// memStore is an in-memory Store for pipeline and aggregator tests. Each
// fail* field, when set, makes the matching write return that error.
type memStore struct {
	mu sync.Mutex

	profiles  []*models.CustomerProfile
	feedback  []*models.FeedbackAggregate
	rollups   map[string]*models.DailyRollup
	analytics []*models.CallAnalytics
	tickets   []*models.Ticket

	failProfile   error
	failFeedback  error
	failRollup    error
	failAnalytics error
	failTicket    error
}

func newMemStore() *memStore {
	return &memStore{rollups: make(map[string]*models.DailyRollup)}
}

func (s *memStore) FindProfileByEmail(_ context.Context, tenantID, email string) (*models.CustomerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.TenantID == tenantID && p.Email == email {
			return p, nil
		}
	}
	return nil, nil
}

func (s *memStore) FindProfileByPhone(_ context.Context, tenantID, phone string) (*models.CustomerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.TenantID == tenantID && p.Phone == phone {
			return p, nil
		}
	}
	return nil, nil
}

func (s *memStore) FindProfileByAccountID(_ context.Context, tenantID, accountID string) (*models.CustomerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.TenantID == tenantID && p.AccountID == accountID {
			return p, nil
		}
	}
	return nil, nil
}

func (s *memStore) SaveProfile(_ context.Context, profile *models.CustomerProfile) error {
	if s.failProfile != nil {
		return s.failProfile
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.profiles {
		if p.ID == profile.ID {
			s.profiles[i] = profile
			return nil
		}
	}
	s.profiles = append(s.profiles, profile)
	return nil
}

func (s *memStore) FindFeedback(_ context.Context, tenantID, feedbackType, text string) (*models.FeedbackAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.feedback {
		if f.TenantID == tenantID && f.FeedbackType == feedbackType && f.FeedbackText == text {
			return f, nil
		}
	}
	return nil, nil
}

func (s *memStore) SaveFeedback(_ context.Context, fb *models.FeedbackAggregate) error {
	if s.failFeedback != nil {
		return s.failFeedback
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.feedback {
		if f.ID == fb.ID {
			s.feedback[i] = fb
			return nil
		}
	}
	s.feedback = append(s.feedback, fb)
	return nil
}

func (s *memStore) FindRollup(_ context.Context, date, tenantID string) (*models.DailyRollup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rollups[date+"|"+tenantID], nil
}

func (s *memStore) SaveRollup(_ context.Context, rollup *models.DailyRollup) error {
	if s.failRollup != nil {
		return s.failRollup
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollups[rollup.Date+"|"+rollup.TenantID] = rollup
	return nil
}

func (s *memStore) SaveAnalytics(_ context.Context, analytics *models.CallAnalytics) error {
	if s.failAnalytics != nil {
		return s.failAnalytics
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analytics = append(s.analytics, analytics)
	return nil
}

func (s *memStore) SaveTicket(_ context.Context, ticket *models.Ticket) error {
	if s.failTicket != nil {
		return s.failTicket
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets = append(s.tickets, ticket)
	return nil
}
