package referral

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cashback-dashboard/internal/models"
)

type memStore struct {
	mu            sync.Mutex
	users         []models.User
	connected     map[uint]bool
	relationships []models.ReferralRelationship
	earnings      map[uint]models.ReferralEarning
	failInsert    error
	failLookup    error
	failActivate  error
}

func newMemStore() *memStore {
	return &memStore{
		connected: map[uint]bool{},
		earnings:  map[uint]models.ReferralEarning{},
	}
}

func (m *memStore) ActiveRelationship(_ context.Context, referredID uint) (*models.ReferralRelationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLookup != nil {
		return nil, m.failLookup
	}
	for _, rel := range m.relationships {
		if rel.ReferredID == referredID && rel.Status == models.RelationshipActive {
			r := rel
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memStore) InsertEarning(_ context.Context, e *models.ReferralEarning) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsert != nil {
		return false, m.failInsert
	}
	if _, ok := m.earnings[e.TradeID]; ok {
		return false, nil
	}
	e.ID = uint(len(m.earnings) + 1)
	m.earnings[e.TradeID] = *e
	return true, nil
}

func (m *memStore) ActivatePending(_ context.Context, referredID uint, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failActivate != nil {
		return 0, m.failActivate
	}
	var n int64
	for i := range m.relationships {
		rel := &m.relationships[i]
		if rel.ReferredID == referredID && rel.Status == models.RelationshipPending {
			rel.Status = models.RelationshipActive
			rel.ActivatedAt = &at
			n++
		}
	}
	return n, nil
}

func (m *memStore) UserByReferralCode(_ context.Context, code string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ReferralCode == code {
			user := u
			return &user, nil
		}
	}
	return nil, nil
}

func (m *memStore) HasConnectedAccount(_ context.Context, userID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected[userID], nil
}

func (m *memStore) CreateRelationship(_ context.Context, rel *models.ReferralRelationship) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.relationships {
		if existing.ReferredID == rel.ReferredID {
			return false, nil
		}
	}
	rel.ID = uint(len(m.relationships) + 1)
	m.relationships = append(m.relationships, *rel)
	return true, nil
}

func (m *memStore) CountRelationships(_ context.Context, referrerID uint) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var invited, active int64
	for _, rel := range m.relationships {
		if rel.ReferrerID != referrerID {
			continue
		}
		invited++
		if rel.Status == models.RelationshipActive {
			active++
		}
	}
	return invited, active, nil
}

func (m *memStore) SumCommission(_ context.Context, referrerID uint) (decimal.Decimal, decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total, pending := decimal.Zero, decimal.Zero
	for _, e := range m.earnings {
		if e.ReferrerID != referrerID {
			continue
		}
		total = total.Add(e.CommissionAmount)
		if e.Status == models.EarningPending {
			pending = pending.Add(e.CommissionAmount)
		}
	}
	return total, pending, nil
}

func (m *memStore) ListEarnings(_ context.Context, referrerID uint, period string) ([]models.ReferralEarning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ReferralEarning
	for _, e := range m.earnings {
		if e.ReferrerID == referrerID && (period == "" || e.Period == period) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) relationshipsFor(referredID uint) []models.ReferralRelationship {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ReferralRelationship
	for _, rel := range m.relationships {
		if rel.ReferredID == referredID {
			out = append(out, rel)
		}
	}
	return out
}

func (m *memStore) earningCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.earnings)
}

type memQueue struct {
	mu    sync.Mutex
	items []RetryItem
	err   error
}

func (q *memQueue) Push(_ context.Context, item RetryItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.items = append(q.items, item)
	return nil
}

var errDown = errors.New("connection refused")
