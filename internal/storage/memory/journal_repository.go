package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
)

// JournalRepository in-memory журнал отправок.
type JournalRepository struct {
	mu      sync.RWMutex
	records []domain.SubmissionRecord
}

// NewJournalRepository создаёт пустой журнал.
func NewJournalRepository() *JournalRepository {
	return &JournalRepository{}
}

// Append добавляет запись; пустые ID и время заполняются.
func (r *JournalRepository) Append(record domain.SubmissionRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	lines := make([]domain.CartLine, len(record.Lines))
	copy(lines, record.Lines)
	record.Lines = lines

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

// List возвращает до limit последних записей, новые первыми.
func (r *JournalRepository) List(limit int) ([]domain.SubmissionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	out := make([]domain.SubmissionRecord, len(r.records))
	copy(out, r.records)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteBefore удаляет до limit самых старых записей, созданных раньше before.
func (r *JournalRepository) DeleteBefore(before time.Time, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}

	expired := make([]int, 0)
	for i, rec := range r.records {
		if rec.CreatedAt.Before(before) {
			expired = append(expired, i)
		}
	}
	sort.SliceStable(expired, func(a, b int) bool {
		return r.records[expired[a]].CreatedAt.Before(r.records[expired[b]].CreatedAt)
	})
	if len(expired) > limit {
		expired = expired[:limit]
	}

	drop := make(map[int]struct{}, len(expired))
	for _, i := range expired {
		drop[i] = struct{}{}
	}
	kept := r.records[:0]
	for i, rec := range r.records {
		if _, ok := drop[i]; !ok {
			kept = append(kept, rec)
		}
	}
	r.records = kept
	return len(drop), nil
}

var _ domain.SubmissionJournal = (*JournalRepository)(nil)
