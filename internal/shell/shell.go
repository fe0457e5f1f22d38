// Package shell реализует терминальную витрину: построчные команды покупателя
// и персонала поверх storefront.Dispatcher и admin.Console.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/farmstand/internal/admin"
	"github.com/vladislavdragonenkov/farmstand/internal/money"
	"github.com/vladislavdragonenkov/farmstand/internal/storefront"
)

const (
	DefaultPrompt        = "farmstand> "
	defaultWatchInterval = 30 * time.Second
)

// AdminRecorder принимает метрики действий персонала.
type AdminRecorder interface {
	RecordAdminAction(action, result string)
}

// Options параметры оболочки.
type Options struct {
	Logger        *log.Entry
	Console       *admin.Console
	Formatter     *money.Formatter
	Metrics       AdminRecorder
	WatchInterval time.Duration
	Prompt        string
}

// Option настраивает Shell.
type Option func(*Options)

func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) { opts.Logger = logger }
}

// WithConsole включает команды admin и watch.
func WithConsole(console *admin.Console) Option {
	return func(opts *Options) { opts.Console = console }
}

func WithFormatter(f *money.Formatter) Option {
	return func(opts *Options) { opts.Formatter = f }
}

func WithMetrics(recorder AdminRecorder) Option {
	return func(opts *Options) { opts.Metrics = recorder }
}

// WithWatchInterval задаёт период обновления в режиме watch.
func WithWatchInterval(interval time.Duration) Option {
	return func(opts *Options) { opts.WatchInterval = interval }
}

// WithPrompt задаёт приглашение; пустая строка отключает его.
func WithPrompt(prompt string) Option {
	return func(opts *Options) { opts.Prompt = prompt }
}

// Shell построчный интерпретатор команд.
type Shell struct {
	dispatcher    storefront.Dispatcher
	console       *admin.Console
	out           io.Writer
	formatter     *money.Formatter
	metrics       AdminRecorder
	logger        *log.Entry
	watchInterval time.Duration
	prompt        string
}

// New создаёт оболочку, которая печатает в out.
func New(dispatcher storefront.Dispatcher, out io.Writer, options ...Option) *Shell {
	opts := Options{WatchInterval: defaultWatchInterval, Prompt: DefaultPrompt}
	for _, option := range options {
		option(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "shell")
	}
	if opts.Formatter == nil {
		opts.Formatter = money.NewFormatter("en")
	}
	if opts.Metrics == nil {
		opts.Metrics = nopAdminRecorder{}
	}
	if opts.WatchInterval <= 0 {
		opts.WatchInterval = defaultWatchInterval
	}

	return &Shell{
		dispatcher:    dispatcher,
		console:       opts.Console,
		out:           out,
		formatter:     opts.Formatter,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		watchInterval: opts.WatchInterval,
		prompt:        opts.Prompt,
	}
}

// Run читает команды из in до quit, конца ввода или отмены ctx.
// Во время watch любая введённая строка останавливает наблюдение.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	s.verifySession(ctx)
	s.printHelpHint()

	for {
		s.printPrompt()

		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("read command: %w", err)
					}
				default:
				}
				return nil
			}
			line = l
		}

		if isWatch(line) {
			s.runWatch(ctx, lines)
			continue
		}
		if quit := s.Execute(ctx, line); quit {
			return nil
		}
	}
}

// Execute выполняет одну строку. Возвращает true для quit.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	args, err := splitArgs(line)
	if err != nil {
		s.printf("Error: %v\n", err)
		return false
	}
	if len(args) == 0 {
		return false
	}

	name, rest := strings.ToLower(args[0]), args[1:]
	switch name {
	case "quit", "exit":
		return true
	case "help", "?":
		s.printHelp()
	case "stock":
		s.dispatch(ctx, storefront.Command{Kind: storefront.CommandStock})
	case "add":
		s.add(ctx, rest)
	case "remove", "rm":
		if len(rest) == 0 {
			s.usage("remove <product>")
			return false
		}
		s.dispatch(ctx, storefront.Command{Kind: storefront.CommandRemove, Product: strings.Join(rest, " ")})
	case "cart":
		s.dispatch(ctx, storefront.Command{Kind: storefront.CommandCart})
	case "clear":
		s.dispatch(ctx, storefront.Command{Kind: storefront.CommandClear})
	case "submit":
		s.dispatch(ctx, storefront.Command{Kind: storefront.CommandSubmit, Customer: strings.Join(rest, " ")})
	case "refresh":
		s.dispatch(ctx, storefront.Command{Kind: storefront.CommandRefresh})
	case "history":
		s.history(ctx, rest)
	case "admin":
		s.admin(ctx, rest)
	case "watch":
		s.printf("Error: watch is only available in interactive mode\n")
	default:
		s.printf("Unknown command %q, type help for the list of commands\n", args[0])
	}
	return false
}

func (s *Shell) add(ctx context.Context, args []string) {
	product, tail, ok := splitTail(args, 1)
	if !ok {
		s.usage("add <product> <quantity>")
		return
	}
	qty, err := parseQuantity(tail[0])
	if err != nil {
		s.printf("Error: Quantity must be a number\n")
		return
	}
	s.dispatch(ctx, storefront.Command{Kind: storefront.CommandAdd, Product: product, Quantity: qty})
}

func (s *Shell) history(ctx context.Context, args []string) {
	cmd := storefront.Command{Kind: storefront.CommandHistory}
	if len(args) > 0 {
		limit, err := parseQuantity(args[0])
		if err != nil || limit <= 0 {
			s.usage("history [count]")
			return
		}
		cmd.Limit = limit
	}
	s.dispatch(ctx, cmd)
}

func (s *Shell) dispatch(ctx context.Context, cmd storefront.Command) {
	result := s.dispatcher.Dispatch(ctx, cmd)
	s.printResult(cmd.Kind, result)
}

func (s *Shell) verifySession(ctx context.Context) {
	if s.console == nil || !s.console.LoggedIn() {
		return
	}
	if err := s.console.Verify(ctx); err != nil {
		s.logger.WithError(err).Info("stored admin session rejected")
		s.printf("Admin session expired, please log in again\n")
		return
	}
	s.printf("Admin session restored\n")
}

func (s *Shell) printPrompt() {
	if s.prompt != "" {
		fmt.Fprint(s.out, s.prompt)
	}
}

func (s *Shell) printHelpHint() {
	if s.prompt != "" {
		s.printf("Type help for the list of commands\n")
	}
}

func (s *Shell) usage(form string) {
	s.printf("Usage: %s\n", form)
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func isWatch(line string) bool {
	args, err := splitArgs(line)
	return err == nil && len(args) == 1 && strings.EqualFold(args[0], "watch")
}

// runWatch показывает заказы к подготовке до следующей введённой строки.
func (s *Shell) runWatch(ctx context.Context, lines <-chan string) {
	if !s.requireConsole() {
		return
	}
	if !s.console.LoggedIn() {
		s.printf("Error: Please log in first (admin login <password>)\n")
		return
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-lines:
		case <-watchCtx.Done():
		}
		cancel()
	}()

	s.printf("Watching orders to prepare, press Enter to stop\n")
	watcher := admin.NewWatcher(s.console, s.onOrdersUpdate,
		admin.WithWatchInterval(s.watchInterval),
		admin.WithWatchLogger(s.logger.WithField("mode", "watch")),
	)
	if err := watcher.Run(watchCtx); err != nil {
		s.metrics.RecordAdminAction("watch", resultFor(err))
		s.printf("Admin session expired, please log in again\n")
		return
	}
	s.printf("Stopped watching\n")
}

type nopAdminRecorder struct{}

func (nopAdminRecorder) RecordAdminAction(string, string) {}
