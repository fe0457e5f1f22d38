// Package stock хранит последний успешно загруженный снимок склада и обновляет его по таймеру.
package stock

import (
	"sync/atomic"
	"time"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
)

// Snapshot неизменяемый снимок склада на момент загрузки.
// Нулевой и nil снимок ведут себя как пустой склад.
type Snapshot struct {
	items     []domain.StockItem
	index     map[string]int
	fetchedAt time.Time
}

// NewSnapshot создаёт снимок из ответа API. Срез копируется.
func NewSnapshot(items []domain.StockItem, fetchedAt time.Time) *Snapshot {
	copied := make([]domain.StockItem, len(items))
	copy(copied, items)

	index := make(map[string]int, len(copied))
	for i, item := range copied {
		if !item.Selectable() {
			continue
		}
		// При дубликатах в выборе участвует первая позиция.
		if _, exists := index[item.Name]; !exists {
			index[item.Name] = i
		}
	}
	return &Snapshot{items: copied, index: index, fetchedAt: fetchedAt}
}

// Items возвращает все позиции в порядке ответа API, включая отсутствующие на складе.
func (s *Snapshot) Items() []domain.StockItem {
	if s == nil {
		return nil
	}
	out := make([]domain.StockItem, len(s.items))
	copy(out, s.items)
	return out
}

// Selectable возвращает позиции, которые можно добавить в корзину.
func (s *Snapshot) Selectable() []domain.StockItem {
	if s == nil {
		return nil
	}
	out := make([]domain.StockItem, 0, len(s.index))
	for i, item := range s.items {
		if pos, ok := s.index[item.Name]; ok && pos == i {
			out = append(out, item)
		}
	}
	return out
}

// Lookup ищет товар среди доступных для выбора.
func (s *Snapshot) Lookup(name string) (domain.StockItem, bool) {
	if s == nil {
		return domain.StockItem{}, false
	}
	pos, ok := s.index[name]
	if !ok {
		return domain.StockItem{}, false
	}
	return s.items[pos], true
}

// Available возвращает доступное количество; 0, если товара нет среди доступных.
func (s *Snapshot) Available(name string) int {
	item, ok := s.Lookup(name)
	if !ok {
		return 0
	}
	return item.QuantityAvailable
}

// FetchedAt время успешной загрузки снимка.
func (s *Snapshot) FetchedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.fetchedAt
}

// Len количество позиций в снимке.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Store держит текущий снимок; замена атомарная, последняя запись побеждает.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore создаёт хранилище с пустым снимком.
func NewStore() *Store {
	return &Store{}
}

// Current возвращает текущий снимок (может быть nil до первой загрузки).
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Replace заменяет снимок целиком.
func (s *Store) Replace(snapshot *Snapshot) {
	s.current.Store(snapshot)
}
