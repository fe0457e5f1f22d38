// Package storefront связывает корзину, снимок склада и журнал отправок в одного
// владельца с командным интерфейсом. Все команды выполняются последовательно.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/farmstand/internal/cart"
	"github.com/vladislavdragonenkov/farmstand/internal/domain"
	"github.com/vladislavdragonenkov/farmstand/internal/metrics"
	"github.com/vladislavdragonenkov/farmstand/internal/money"
	"github.com/vladislavdragonenkov/farmstand/internal/stock"
)

const defaultHistoryLimit = 10

// Dispatcher выполняет команды покупателя. Реализуется локальной витриной и gRPC-клиентом киоска.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd Command) Result
}

// StockRefresher немедленно перечитывает склад.
type StockRefresher interface {
	Refresh(ctx context.Context) bool
}

// SubmissionRecorder сохраняет попытки отправки, дошедшие до сети.
type SubmissionRecorder interface {
	Record(record domain.SubmissionRecord) error
	Recent(limit int) ([]domain.SubmissionRecord, error)
}

// Recorder принимает метрики команд.
type Recorder interface {
	RecordCommand(command, result string)
	RecordSubmission(outcome string, duration time.Duration)
	SetCart(lines int, total float64)
}

// Options параметры витрины.
type Options struct {
	Logger            *log.Entry
	Formatter         *money.Formatter
	Notices           *NoticeBoard
	Journal           SubmissionRecorder
	Metrics           Recorder
	LowStockThreshold int
	Now               func() time.Time
}

// Option настраивает Storefront.
type Option func(*Options)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) { opts.Logger = logger }
}

// WithFormatter задаёт форматирование сумм.
func WithFormatter(f *money.Formatter) Option {
	return func(opts *Options) { opts.Formatter = f }
}

// WithNotices задаёт доску фоновых сообщений; её же стоит передать поллеру склада.
func WithNotices(board *NoticeBoard) Option {
	return func(opts *Options) { opts.Notices = board }
}

// WithJournal включает журнал отправок.
func WithJournal(journal SubmissionRecorder) Option {
	return func(opts *Options) { opts.Journal = journal }
}

// WithMetrics задаёт сборщик метрик команд и отправок.
func WithMetrics(recorder Recorder) Option {
	return func(opts *Options) { opts.Metrics = recorder }
}

// WithLowStockThreshold задаёт порог «мало на складе».
func WithLowStockThreshold(threshold int) Option {
	return func(opts *Options) { opts.LowStockThreshold = threshold }
}

// WithClock подменяет часы, используется в тестах.
func WithClock(now func() time.Time) Option {
	return func(opts *Options) { opts.Now = now }
}

// Storefront владеет корзиной одного процесса.
type Storefront struct {
	mu        sync.Mutex
	cart      *cart.Cart
	snapshots cart.SnapshotSource
	refresher StockRefresher
	journal   SubmissionRecorder
	metrics   Recorder
	notices   *NoticeBoard
	formatter *money.Formatter
	threshold int
	logger    *log.Entry
	now       func() time.Time
}

// New создаёт витрину поверх корзины c. snapshots должен быть тем же источником, что у корзины.
func New(c *cart.Cart, snapshots cart.SnapshotSource, refresher StockRefresher, options ...Option) *Storefront {
	opts := Options{LowStockThreshold: domain.DefaultLowStockThreshold}
	for _, option := range options {
		option(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "storefront")
	}
	if opts.Formatter == nil {
		opts.Formatter = money.NewFormatter("en")
	}
	if opts.Notices == nil {
		opts.Notices = NewNoticeBoard(0)
	}
	if opts.Metrics == nil {
		opts.Metrics = nopRecorder{}
	}
	if opts.LowStockThreshold <= 0 {
		opts.LowStockThreshold = domain.DefaultLowStockThreshold
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Storefront{
		cart:      c,
		snapshots: snapshots,
		refresher: refresher,
		journal:   opts.Journal,
		metrics:   opts.Metrics,
		notices:   opts.Notices,
		formatter: opts.Formatter,
		threshold: opts.LowStockThreshold,
		logger:    opts.Logger,
		now:       opts.Now,
	}
}

// Notices возвращает доску фоновых сообщений.
func (s *Storefront) Notices() *NoticeBoard {
	return s.notices
}

// Formatter возвращает форматтер сумм витрины.
func (s *Storefront) Formatter() *money.Formatter {
	return s.formatter
}

// Dispatch выполняет команду. Отправка заказа держит витрину до ответа бэкенда.
func (s *Storefront) Dispatch(ctx context.Context, cmd Command) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result Result
	switch cmd.Kind {
	case CommandStock:
		result = s.showStock()
	case CommandAdd:
		result = s.addItem(cmd.Product, cmd.Quantity)
	case CommandRemove:
		result = s.removeItem(cmd.Product)
	case CommandCart:
		result = s.showCart()
	case CommandClear:
		result = s.clearCart()
	case CommandSubmit:
		result = s.submit(ctx, cmd.Customer)
	case CommandRefresh:
		result = s.refresh(ctx)
	case CommandHistory:
		result = s.history(cmd.Limit)
	default:
		result = failure(fmt.Sprintf("Unknown command %q", cmd.Kind), fmt.Errorf("unknown command %q", cmd.Kind))
	}

	s.metrics.RecordCommand(string(cmd.Kind), resultLabel(result))
	s.metrics.SetCart(s.cart.Len(), s.cart.Total().InexactFloat64())
	result.Notices = s.pendingNotices(result.Message)
	return result
}

func (s *Storefront) showStock() Result {
	view := newStockView(s.snapshots.Current(), s.threshold, s.formatter)
	if len(view.Rows) == 0 {
		return Result{Kind: ResultInfo, Message: "No products available", Stock: view}
	}
	return Result{Kind: ResultInfo, Stock: view}
}

func (s *Storefront) addItem(product string, quantity int) Result {
	product = strings.TrimSpace(product)
	inCart := 0
	for _, line := range s.cart.Lines() {
		if line.ProductName == product {
			inCart = line.Quantity
		}
	}

	line, err := s.cart.AddItem(product, quantity)
	if err != nil {
		entry := s.logger.WithFields(log.Fields{"product": product, "quantity": quantity})
		entry.WithError(err).Debug("add to cart rejected")
		return failure(s.addErrorMessage(product, inCart, err), err)
	}

	return Result{
		Kind:    ResultSuccess,
		Message: fmt.Sprintf("Added %d %s of %s to the cart", quantity, line.Unit, line.ProductName),
		Cart:    newCartView(s.cart.Lines()),
	}
}

func (s *Storefront) addErrorMessage(product string, inCart int, err error) string {
	switch {
	case errors.Is(err, domain.ErrNoProductSelected):
		return "Please select a product"
	case errors.Is(err, domain.ErrNonPositiveQuantity):
		return "Quantity must be greater than 0"
	case errors.Is(err, domain.ErrInsufficientStock):
		item, _ := s.snapshots.Current().Lookup(product)
		if inCart > 0 {
			return fmt.Sprintf("You already have %d %s of %s in your cart. Total stock insufficient!", inCart, item.Unit, product)
		}
		if item.Name == "" {
			return fmt.Sprintf("%s is not available", product)
		}
		return fmt.Sprintf("Insufficient stock! Only %d %s left", item.QuantityAvailable, item.Unit)
	default:
		return err.Error()
	}
}

func (s *Storefront) removeItem(product string) Result {
	product = strings.TrimSpace(product)
	if !s.cart.RemoveItem(product) {
		return Result{Kind: ResultInfo, Message: fmt.Sprintf("%s is not in the cart", product), Cart: newCartView(s.cart.Lines())}
	}
	return Result{
		Kind:    ResultSuccess,
		Message: fmt.Sprintf("%s removed from the cart", product),
		Cart:    newCartView(s.cart.Lines()),
	}
}

func (s *Storefront) showCart() Result {
	view := newCartView(s.cart.Lines())
	if view.Empty() {
		return Result{Kind: ResultInfo, Message: "The cart is empty", Cart: view}
	}
	return Result{Kind: ResultInfo, Cart: view}
}

func (s *Storefront) clearCart() Result {
	if s.cart.IsEmpty() {
		return failure("The cart is already empty", domain.ErrEmptyCart)
	}
	s.cart.Clear()
	return Result{Kind: ResultSuccess, Message: "Cart cleared", Cart: newCartView(nil)}
}

func (s *Storefront) submit(ctx context.Context, customer string) Result {
	lines := s.cart.Lines()
	started := s.now()

	receipt, err := s.cart.Submit(ctx, customer)
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		return failure("No order to submit!", err)
	case errors.Is(err, domain.ErrMissingCustomerName):
		return failure("Please enter your name!", err)
	case err != nil:
		s.metrics.RecordSubmission(string(domain.SubmissionFailed), s.now().Sub(started))
		s.record(domain.SubmissionRecord{
			IdempotencyKey: s.cart.SubmissionKey(),
			Customer:       strings.TrimSpace(customer),
			Lines:          lines,
			Total:          domain.SumLines(lines),
			Outcome:        domain.SubmissionFailed,
			Error:          err.Error(),
			CreatedAt:      s.now(),
		})

		message := "Error while submitting the order"
		if errors.Is(err, domain.ErrNetwork) {
			message = "Connection error while submitting the order"
		}
		return Result{Kind: ResultError, Message: message, Err: err, Cart: newCartView(s.cart.Lines())}
	}

	s.metrics.RecordSubmission(string(domain.SubmissionAccepted), s.now().Sub(started))
	s.record(domain.SubmissionRecord{
		IdempotencyKey: receipt.ID,
		Customer:       receipt.Customer,
		Lines:          lines,
		Total:          receipt.Total,
		Outcome:        domain.SubmissionAccepted,
		CreatedAt:      receipt.SubmittedAt,
	})

	return Result{
		Kind:    ResultSuccess,
		Message: ReceiptText(receipt, s.formatter),
		Receipt: &receipt,
		Cart:    newCartView(nil),
	}
}

func (s *Storefront) record(record domain.SubmissionRecord) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(record); err != nil {
		s.logger.WithError(err).WithField("idempotency_key", record.IdempotencyKey).Warn("submission journal write failed")
	}
}

func (s *Storefront) refresh(ctx context.Context) Result {
	if s.refresher == nil || !s.refresher.Refresh(ctx) {
		return failure(stock.RefreshErrorMessage, domain.ErrNetwork)
	}
	view := newStockView(s.snapshots.Current(), s.threshold, s.formatter)
	return Result{Kind: ResultSuccess, Message: "Stock updated", Stock: view}
}

func (s *Storefront) history(limit int) Result {
	if s.journal == nil {
		return Result{Kind: ResultInfo, Message: "Submission history is disabled"}
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	records, err := s.journal.Recent(limit)
	if err != nil {
		s.logger.WithError(err).Warn("failed to read submission history")
		return failure("Unable to read submission history", err)
	}
	if len(records) == 0 {
		return Result{Kind: ResultInfo, Message: "No submissions yet"}
	}
	return Result{Kind: ResultInfo, History: records}
}

// pendingNotices забирает фоновые сообщения, кроме совпадающего с ответом команды.
func (s *Storefront) pendingNotices(current string) []Notice {
	drained := s.notices.Drain()
	out := drained[:0]
	for _, n := range drained {
		if n.Message != current {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func failure(message string, err error) Result {
	return Result{Kind: ResultError, Message: message, Err: err}
}

func resultLabel(r Result) string {
	switch {
	case r.Err == nil:
		return metrics.ResultOK
	case domain.IsValidation(r.Err):
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordCommand(string, string)           {}
func (nopRecorder) RecordSubmission(string, time.Duration) {}
func (nopRecorder) SetCart(int, float64)                   {}

var _ Dispatcher = (*Storefront)(nil)
