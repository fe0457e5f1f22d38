// Package cart реализует корзину покупателя: добавление со слиянием строк,
// проверку остатков по текущему снимку склада и отправку заказа.
package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
	"github.com/vladislavdragonenkov/farmstand/internal/stock"
)

const defaultSettleDelay = time.Second

// SnapshotSource отдаёт актуальный снимок склада на момент вызова.
type SnapshotSource interface {
	Current() *stock.Snapshot
}

// Refresher планирует обновление снимка склада.
type Refresher interface {
	RefreshAfter(d time.Duration)
}

// Options задаёт параметры корзины.
type Options struct {
	Logger       *log.Entry
	SettleDelay  time.Duration
	KeyGenerator func() string
	Now          func() time.Time
}

// Option настраивает Cart.
type Option func(*Options)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithSettleDelay задаёт задержку обновления склада после успешного заказа.
func WithSettleDelay(delay time.Duration) Option {
	return func(opts *Options) {
		opts.SettleDelay = delay
	}
}

// WithKeyGenerator подменяет генератор ключей идемпотентности.
func WithKeyGenerator(gen func() string) Option {
	return func(opts *Options) {
		opts.KeyGenerator = gen
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(opts *Options) {
		opts.Now = now
	}
}

// Cart корзина одной сессии. Не потокобезопасна: владелец сериализует вызовы.
type Cart struct {
	source      SnapshotSource
	orders      domain.OrderAPI
	refresher   Refresher
	logger      *log.Entry
	settleDelay time.Duration
	newKey      func() string
	now         func() time.Time

	lines       []domain.CartLine
	key         string
	keyCustomer string
}

// New создаёт пустую корзину.
func New(source SnapshotSource, orders domain.OrderAPI, refresher Refresher, options ...Option) *Cart {
	opts := Options{SettleDelay: defaultSettleDelay}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "cart")
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	if opts.KeyGenerator == nil {
		opts.KeyGenerator = func() string { return uuid.NewString() }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Cart{
		source:      source,
		orders:      orders,
		refresher:   refresher,
		logger:      logger,
		settleDelay: opts.SettleDelay,
		newKey:      opts.KeyGenerator,
		now:         opts.Now,
	}
}

// AddItem добавляет товар или увеличивает количество существующей строки.
// Остаток берётся из текущего снимка; при ошибке корзина не меняется.
func (c *Cart) AddItem(productName string, quantity int) (domain.CartLine, error) {
	productName = strings.TrimSpace(productName)
	if productName == "" {
		return domain.CartLine{}, domain.ErrNoProductSelected
	}
	if quantity <= 0 {
		return domain.CartLine{}, domain.ErrNonPositiveQuantity
	}

	snapshot := c.current()
	available := snapshot.Available(productName)

	if pos := c.indexOf(productName); pos >= 0 {
		line := c.lines[pos]
		if quantity > available-line.Quantity {
			return domain.CartLine{}, insufficient(productName, available, line.Quantity)
		}
		c.lines[pos].Quantity += quantity
		c.resetKey()
		return c.lines[pos], nil
	}

	if quantity > available {
		return domain.CartLine{}, insufficient(productName, available, 0)
	}

	item, _ := snapshot.Lookup(productName)
	line := domain.CartLine{
		ProductName:  productName,
		Quantity:     quantity,
		PricePerUnit: item.PricePerUnit,
		Unit:         item.Unit,
	}
	c.lines = append(c.lines, line)
	c.resetKey()
	return line, nil
}

// RemoveItem удаляет строку товара. Отсутствие строки ошибкой не считается.
func (c *Cart) RemoveItem(productName string) bool {
	pos := c.indexOf(strings.TrimSpace(productName))
	if pos < 0 {
		return false
	}
	c.lines = append(c.lines[:pos], c.lines[pos+1:]...)
	c.resetKey()
	return true
}

// Clear очищает корзину безусловно.
func (c *Cart) Clear() {
	c.lines = nil
	c.resetKey()
}

// Total сумма по всем строкам; ноль для пустой корзины.
func (c *Cart) Total() decimal.Decimal {
	return domain.SumLines(c.lines)
}

// Lines возвращает копию строк в порядке добавления.
func (c *Cart) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len количество строк.
func (c *Cart) Len() int {
	return len(c.lines)
}

// IsEmpty сообщает, пуста ли корзина.
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// SubmissionKey ключ идемпотентности последней неудачной попытки; пусто, если попыток не было.
func (c *Cart) SubmissionKey() string {
	return c.key
}

// Submit отправляет заказ одним сетевым вызовом.
// Ошибки валидации возвращаются без обращения к сети. При сбое корзина сохраняется,
// склад обновляется сразу, ключ идемпотентности переиспользуется при повторе.
// При успехе корзина очищается, склад обновляется после задержки.
func (c *Cart) Submit(ctx context.Context, customerName string) (Receipt, error) {
	sub, err := domain.NewOrderSubmission(customerName, c.lines)
	if err != nil {
		return Receipt{}, err
	}

	if c.key == "" || c.keyCustomer != sub.CustomerName {
		c.key = c.newKey()
		c.keyCustomer = sub.CustomerName
	}

	logger := c.logger.WithFields(log.Fields{
		"customer":        sub.CustomerName,
		"lines":           len(sub.Lines),
		"idempotency_key": c.key,
	})

	if err := c.orders.SubmitOrder(ctx, c.key, sub); err != nil {
		logger.WithError(err).Warn("order submission failed")
		c.refresh(0)
		return Receipt{}, fmt.Errorf("submit order: %w", err)
	}

	receipt := newReceipt(c.key, sub, c.now())
	c.lines = nil
	c.resetKey()
	c.refresh(c.settleDelay)

	logger.WithField("total", receipt.Total.StringFixed(2)).Info("order submitted")
	return receipt, nil
}

func (c *Cart) current() *stock.Snapshot {
	if c.source == nil {
		return nil
	}
	return c.source.Current()
}

func (c *Cart) refresh(delay time.Duration) {
	if c.refresher == nil {
		return
	}
	c.refresher.RefreshAfter(delay)
}

func (c *Cart) indexOf(productName string) int {
	for i, line := range c.lines {
		if line.ProductName == productName {
			return i
		}
	}
	return -1
}

func (c *Cart) resetKey() {
	c.key = ""
	c.keyCustomer = ""
}

func insufficient(productName string, available, inCart int) error {
	detail := fmt.Sprintf("%s: %d available", productName, available)
	if inCart > 0 {
		detail = fmt.Sprintf("%s: %d available, %d already in cart", productName, available, inCart)
	}
	return domain.ErrInsufficientStock.WithDetail(detail)
}
