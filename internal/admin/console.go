// Package admin реализует операции персонала: вход по паролю с проверкой на сервере,
// управление складом и подготовку заказов.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
)

// Console сессия администратора. Токен живёт в TokenStore; любая ошибка авторизации его стирает.
type Console struct {
	api    domain.AdminAPI
	stock  domain.StockAPI
	tokens domain.TokenStore
	logger *log.Entry
}

// NewConsole создаёт консоль администратора.
func NewConsole(api domain.AdminAPI, stock domain.StockAPI, tokens domain.TokenStore, logger *log.Entry) *Console {
	if logger == nil {
		logger = log.WithField("component", "admin-console")
	}
	return &Console{api: api, stock: stock, tokens: tokens, logger: logger}
}

// Login обменивает пароль на токен. Токен без префикса admin_ отвергается.
func (c *Console) Login(ctx context.Context, password string) error {
	password = strings.TrimSpace(password)
	if password == "" {
		return domain.ErrPasswordRequired
	}

	token, err := c.api.Login(ctx, password)
	if err != nil {
		c.logger.WithError(err).Warn("admin login failed")
		return fmt.Errorf("login: %w", err)
	}
	if !strings.HasPrefix(token, domain.AdminTokenPrefix) {
		c.logger.Warn("backend returned a token without the admin prefix")
		return fmt.Errorf("login: %w: malformed token", domain.ErrUnauthorized)
	}

	if err := c.tokens.Set(token); err != nil {
		return fmt.Errorf("store session token: %w", err)
	}
	c.logger.Info("admin session opened")
	return nil
}

// LoggedIn сообщает, есть ли токен с правильным префиксом.
func (c *Console) LoggedIn() bool {
	token, err := c.tokens.Get()
	return err == nil && strings.HasPrefix(token, domain.AdminTokenPrefix)
}

// Verify проверяет сессию на сервере. Любая ошибка считается истёкшей сессией.
func (c *Console) Verify(ctx context.Context) error {
	token, err := c.token()
	if err != nil {
		return err
	}
	if err := c.api.Verify(ctx, token); err != nil {
		c.logger.WithError(err).Info("admin session is no longer valid")
		c.clearToken()
		return errors.Join(domain.ErrUnauthorized, err)
	}
	return nil
}

// Logout уведомляет сервер и всегда стирает локальный токен.
func (c *Console) Logout(ctx context.Context) error {
	token, err := c.tokens.Get()
	if err == nil && token != "" {
		if err := c.api.Logout(ctx, token); err != nil {
			c.logger.WithError(err).Warn("backend logout failed")
		}
	}
	c.clearToken()
	return nil
}

// Stock возвращает склад вместе с отсутствующими позициями.
func (c *Console) Stock(ctx context.Context) ([]domain.StockItem, error) {
	if _, err := c.token(); err != nil {
		return nil, err
	}
	return c.stock.FetchStock(ctx)
}

// AddStock проверяет форму и добавляет позицию.
func (c *Console) AddStock(ctx context.Context, item domain.StockItem) error {
	item.Name = strings.TrimSpace(item.Name)
	item.Unit = strings.TrimSpace(item.Unit)
	if errs := item.Validate(); len(errs) > 0 {
		return errors.Join(errs...)
	}
	return c.withToken(func(token string) error {
		return c.api.AddStock(ctx, token, item)
	})
}

// DeleteStock удаляет позицию склада по индексу.
func (c *Console) DeleteStock(ctx context.Context, index int) error {
	if index < 0 {
		return domain.ErrIndexInvalid
	}
	return c.withToken(func(token string) error {
		return c.api.DeleteStock(ctx, token, index)
	})
}

// OrdersToPrepare возвращает заказы, сгруппированные по клиенту.
func (c *Console) OrdersToPrepare(ctx context.Context) ([]domain.CustomerOrders, error) {
	var orders []domain.PreparationOrder
	err := c.withToken(func(token string) error {
		var err error
		orders, err = c.api.ListOrdersToPrepare(ctx, token)
		return err
	})
	if err != nil {
		return nil, err
	}
	return domain.GroupByCustomer(orders), nil
}

// MarkPrepared помечает строку заказа собранной.
func (c *Console) MarkPrepared(ctx context.Context, index int) error {
	if index < 0 {
		return domain.ErrIndexInvalid
	}
	return c.withToken(func(token string) error {
		return c.api.MarkPrepared(ctx, token, index)
	})
}

func (c *Console) withToken(fn func(token string) error) error {
	token, err := c.token()
	if err != nil {
		return err
	}
	if err := fn(token); err != nil {
		if domain.IsAuthError(err) {
			c.logger.WithError(err).Info("admin session expired")
			c.clearToken()
		}
		return err
	}
	return nil
}

func (c *Console) token() (string, error) {
	token, err := c.tokens.Get()
	if err != nil {
		return "", fmt.Errorf("admin session: %w", err)
	}
	if !strings.HasPrefix(token, domain.AdminTokenPrefix) {
		c.clearToken()
		return "", fmt.Errorf("admin session: %w: malformed token", domain.ErrUnauthorized)
	}
	return token, nil
}

func (c *Console) clearToken() {
	if err := c.tokens.Clear(); err != nil {
		c.logger.WithError(err).Warn("failed to clear session token")
	}
}
