package storefront

import (
	"sync"
	"time"
)

const defaultNoticeCapacity = 16

// Notice фоновое сообщение, например об ошибке обновления склада.
type Notice struct {
	Kind    ResultKind
	Message string
	At      time.Time
}

// NoticeBoard копит фоновые сообщения до следующей команды пользователя.
// Старые сообщения вытесняются при переполнении.
type NoticeBoard struct {
	mu       sync.Mutex
	notices  []Notice
	capacity int
	now      func() time.Time
}

// NewNoticeBoard создаёт доску ёмкостью capacity (по умолчанию 16).
func NewNoticeBoard(capacity int) *NoticeBoard {
	if capacity <= 0 {
		capacity = defaultNoticeCapacity
	}
	return &NoticeBoard{capacity: capacity, now: time.Now}
}

// NotifyError реализует stock.Notifier.
func (b *NoticeBoard) NotifyError(message string) {
	b.post(Notice{Kind: ResultError, Message: message})
}

// NotifyInfo публикует информационное сообщение.
func (b *NoticeBoard) NotifyInfo(message string) {
	b.post(Notice{Kind: ResultInfo, Message: message})
}

func (b *NoticeBoard) post(n Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n.At = b.now()
	if len(b.notices) == b.capacity {
		b.notices = b.notices[1:]
	}
	b.notices = append(b.notices, n)
}

// Drain забирает все накопленные сообщения.
func (b *NoticeBoard) Drain() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.notices
	b.notices = nil
	return out
}

// Len количество ожидающих сообщений.
func (b *NoticeBoard) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.notices)
}
