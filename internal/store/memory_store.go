package store

import (
	"sort"
	"sync"
	"time"

	"reviewlens/pkg/domain"
)

// MemoryStore keeps reviews in-process. It backs tests and local runs
// without Postgres; semantics mirror GormStore.
type MemoryStore struct {
	mu      sync.RWMutex
	reviews map[int64]domain.Review
	nextID  int64
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reviews: make(map[int64]domain.Review),
		nextID:  1,
	}
}

// CreateReview assigns the next id plus created_at and stores the record.
func (m *MemoryStore) CreateReview(draft domain.Review) (domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	draft.ID = m.nextID
	m.nextID++
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = time.Now().UTC()
	}
	if draft.KeyPoints == nil {
		draft.KeyPoints = []string{}
	}
	m.reviews[draft.ID] = draft
	return draft, nil
}

// GetReview retrieves a review by id.
func (m *MemoryStore) GetReview(id int64) (domain.Review, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reviews[id]
	return r, ok, nil
}

// ListReviews returns one page ordered newest-first plus the total count.
func (m *MemoryStore) ListReviews(filter ReviewFilter) ([]domain.Review, int64, error) {
	m.mu.RLock()
	matched := make([]domain.Review, 0, len(m.reviews))
	for _, r := range m.reviews {
		if filter.Sentiment != "" && r.Sentiment != filter.Sentiment {
			continue
		}
		matched = append(matched, r)
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return []domain.Review{}, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

// DeleteReview removes the record; ok reports whether it existed.
func (m *MemoryStore) DeleteReview(id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[id]; !ok {
		return false, nil
	}
	delete(m.reviews, id)
	return true, nil
}
