package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
)

// TokenStore хранит токен администратора только в памяти процесса, на время сессии.
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

// NewTokenStore создаёт пустое хранилище.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

func (s *TokenStore) Get() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", domain.ErrTokenNotFound
	}
	return s.token, nil
}

func (s *TokenStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

var _ domain.TokenStore = (*TokenStore)(nil)
