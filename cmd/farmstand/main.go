// Command farmstand терминальная витрина фермерского прилавка.
// Без -kiosk витрина работает в процессе; с -kiosk команды уходят на киоск по gRPC.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/vladislavdragonenkov/farmstand/internal/admin"
	"github.com/vladislavdragonenkov/farmstand/internal/app"
	"github.com/vladislavdragonenkov/farmstand/internal/client"
	"github.com/vladislavdragonenkov/farmstand/internal/metrics"
	"github.com/vladislavdragonenkov/farmstand/internal/money"
	grpcsvc "github.com/vladislavdragonenkov/farmstand/internal/service/grpc"
	"github.com/vladislavdragonenkov/farmstand/internal/shell"
	"github.com/vladislavdragonenkov/farmstand/internal/storefront"
)

const envLogLevel = "FARMSTAND_LOG_LEVEL"

type options struct {
	kioskAddr string
	events    bool
}

// setupLogger пишет логи в stderr, чтобы не смешивать их с выводом витрины.
func setupLogger() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	level, err := log.ParseLevel(strings.TrimSpace(os.Getenv(envLogLevel)))
	if err != nil {
		level = log.WarnLevel
	}
	log.SetLevel(level)
}

func readConfig() app.Config {
	cfg, warnings := app.ConfigFromEnv(os.LookupEnv)
	for _, w := range warnings {
		log.Warn(w)
	}
	return cfg
}

func main() {
	var opts options
	flag.StringVar(&opts.kioskAddr, "kiosk", "", "gRPC address of a running kiosk (empty: run the storefront in-process)")
	flag.BoolVar(&opts.events, "events", false, "show live order events from Kafka ("+app.EnvKafkaBrokers+")")
	flag.Parse()

	setupLogger()
	cfg := readConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		_, _ = fmt.Fprintf(os.Stderr, "farmstand: %v\n", err)
		os.Exit(1)
	}
}

// frontend то, что нужно оболочке от витрины.
type frontend struct {
	dispatcher storefront.Dispatcher
	console    *admin.Console
	formatter  *money.Formatter
	metrics    *metrics.StorefrontMetrics
	closeFn    func()
}

func run(ctx context.Context, cfg app.Config, opts options, in io.Reader, out io.Writer) error {
	logger := log.WithField("component", "farmstand")
	cfg = app.LoadRemoteConfig(ctx, cfg, logger)

	var (
		front *frontend
		err   error
	)
	if opts.kioskAddr == "" {
		front, err = localFrontend(ctx, cfg, logger)
	} else {
		front, err = remoteFrontend(ctx, cfg, opts.kioskAddr, logger)
	}
	if err != nil {
		return err
	}
	defer front.closeFn()

	dispatcher := front.dispatcher
	if opts.events {
		feed, stopFeed := startEventFeed(ctx, cfg, dispatcher, logger)
		defer stopFeed()
		dispatcher = feed
	}

	sh := shell.New(dispatcher, out,
		shell.WithLogger(logger.WithField("layer", "shell")),
		shell.WithConsole(front.console),
		shell.WithFormatter(front.formatter),
		shell.WithMetrics(front.metrics),
		shell.WithWatchInterval(cfg.StockRefreshInterval),
	)
	return sh.Run(ctx, in)
}

// localFrontend собирает витрину в процессе вместе с фоновыми воркерами.
func localFrontend(ctx context.Context, cfg app.Config, logger *log.Entry) (*frontend, error) {
	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	kiosk := app.NewKiosk(cfg, deps, logger)
	// Первый экран должен уже видеть склад.
	kiosk.Poller.Refresh(ctx)
	stopWorkers := app.StartWorkers(ctx, cfg, deps, kiosk, logger)

	return &frontend{
		dispatcher: kiosk.Front,
		console:    kiosk.Console,
		formatter:  kiosk.Formatter,
		metrics:    kiosk.Metrics,
		closeFn: func() {
			stopWorkers()
			if err := deps.Close(); err != nil {
				logger.WithError(err).Warn("failed to close dependencies")
			}
		},
	}, nil
}

// remoteFrontend подключается к киоску. Команды персонала по-прежнему идут прямо в бэкенд.
func remoteFrontend(ctx context.Context, cfg app.Config, addr string, logger *log.Entry) (*frontend, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect to kiosk %s: %w", addr, err)
	}

	// Журнал и брокер принадлежат киоску; здесь нужны только сессии персонала.
	sessionCfg := cfg
	sessionCfg.StorageDriver = app.StorageDriverMemory
	sessionCfg.KafkaBrokers = ""
	deps, err := app.NewDependencies(ctx, sessionCfg, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	front := &frontend{
		dispatcher: grpcsvc.NewStorefrontClient(conn, logger.WithField("layer", "grpc-client")),
		formatter:  money.NewFormatter(cfg.Locale),
		metrics:    metrics.NewStorefrontMetrics(),
		closeFn: func() {
			_ = deps.Close()
			_ = conn.Close()
		},
	}
	if cfg.AdminEnabled {
		api := client.New(cfg.ResolvedAPIBaseURL(), client.WithTimeout(cfg.APITimeout), client.WithLogger(logger.WithField("layer", "api")))
		front.console = admin.NewConsole(api, api, deps.Tokens, logger.WithField("layer", "admin"))
	}
	return front, nil
}
