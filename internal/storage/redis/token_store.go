// Package redis хранит токен сессии администратора в Redis с TTL,
// чтобы сессия переживала перезапуск терминала персонала, но не дольше срока жизни.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
)

const (
	tokenKeyPrefix = "farmstand:admin_token:"
	opTimeout      = 2 * time.Second
	defaultTTL     = 8 * time.Hour
)

// TokenStore реализует domain.TokenStore поверх Redis.
// Ключ включает имя терминала, чтобы несколько киосков не делили одну сессию.
type TokenStore struct {
	client *goredis.Client
	key    string
	ttl    time.Duration
}

// NewTokenStore создаёт хранилище для терминала terminalID.
func NewTokenStore(client *goredis.Client, terminalID string, ttl time.Duration) *TokenStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &TokenStore{client: client, key: tokenKeyPrefix + terminalID, ttl: ttl}
}

// Dial подключается к Redis и проверяет доступность.
func Dial(ctx context.Context, addr string) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

func (s *TokenStore) Get() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", domain.ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get session token: %w", err)
	}
	return token, nil
}

func (s *TokenStore) Set(token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := s.client.Set(ctx, s.key, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("set session token: %w", err)
	}
	return nil
}

func (s *TokenStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear session token: %w", err)
	}
	return nil
}

var _ domain.TokenStore = (*TokenStore)(nil)
