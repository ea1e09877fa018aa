package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/callmind/ms-go-billing/app/entity"
	"github.com/callmind/ms-go-billing/app/repository"
)

// fakeStore backs both the user and credit grant repositories so grants and
// balances stay consistent the way the SQL transaction keeps them.
type fakeStore struct {
	mu     sync.Mutex
	users  map[string]*entity.User
	grants []*entity.CreditGrant
	keys   map[string]bool

	applyErr error
}

func newFakeStore(users ...*entity.User) *fakeStore {
	store := &fakeStore{
		users: map[string]*entity.User{},
		keys:  map[string]bool{},
	}
	for _, u := range users {
		store.users[u.ID] = u
	}
	return store
}

func (s *fakeStore) FindByID(_ context.Context, id string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	copyUser := *user
	return &copyUser, nil
}

func (s *fakeStore) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, strings.TrimSpace(email)) {
			copyUser := *user
			return &copyUser, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) UpdateProviderRefs(_ context.Context, userID string, refs entity.ProviderRefs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	applyRefs(user, refs)
	return nil
}

func (s *fakeStore) Apply(_ context.Context, grant *entity.CreditGrant, refs entity.ProviderRefs) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applyErr != nil {
		return nil, s.applyErr
	}

	key := grant.Provider + "|" + grant.ProviderPaymentID
	if s.keys[key] {
		return nil, repository.ErrCreditGrantExists
	}
	user, ok := s.users[grant.UserID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	s.keys[key] = true
	grant.ID = uint64(len(s.grants) + 1)
	copyGrant := *grant
	s.grants = append(s.grants, &copyGrant)

	user.Credits += grant.Credits
	user.Plan = grant.Plan
	applyRefs(user, refs)

	copyUser := *user
	return &copyUser, nil
}

func (s *fakeStore) ListByUser(_ context.Context, userID string, limit int32) ([]*entity.CreditGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]*entity.CreditGrant, 0)
	for _, g := range s.grants {
		if g.UserID == userID {
			copyGrant := *g
			items = append(items, &copyGrant)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	if int(limit) < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (s *fakeStore) credits(userID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID].Credits
}

func (s *fakeStore) addUser(user *entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

func applyRefs(user *entity.User, refs entity.ProviderRefs) {
	if refs.FreedomPayRecurringProfileID != nil {
		user.FreedomPayRecurringProfileID = refs.FreedomPayRecurringProfileID
	}
	if refs.PaymeCardToken != nil {
		user.PaymeCardToken = refs.PaymeCardToken
	}
	if refs.PaddleCustomerID != nil {
		user.PaddleCustomerID = refs.PaddleCustomerID
	}
	if refs.PaddleSubscriptionID != nil {
		user.PaddleSubscriptionID = refs.PaddleSubscriptionID
	}
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[uint64]*entity.WebhookEvent
	nextID uint64
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: map[uint64]*entity.WebhookEvent{}, nextID: 1}
}

func (r *fakeEventRepo) Create(_ context.Context, event *entity.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.ID = r.nextID
	r.nextID++
	copyEvent := *event
	r.events[event.ID] = &copyEvent
	return nil
}

func (r *fakeEventRepo) Update(_ context.Context, event *entity.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; !ok {
		return repository.ErrWebhookEventNotFound
	}
	copyEvent := *event
	r.events[event.ID] = &copyEvent
	return nil
}

func (r *fakeEventRepo) ListDueRetry(_ context.Context, now time.Time, limit int32) ([]*entity.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*entity.WebhookEvent, 0)
	for _, e := range r.events {
		if e.Status == entity.WebhookEventUnresolved && e.NextAttemptAt != nil && !e.NextAttemptAt.After(now) {
			copyEvent := *e
			items = append(items, &copyEvent)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	if int(limit) < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (r *fakeEventRepo) get(id uint64) *entity.WebhookEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	copyEvent := *r.events[id]
	return &copyEvent
}

func (r *fakeEventRepo) countByStatus(status int32) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Status == status {
			n++
		}
	}
	return n
}
