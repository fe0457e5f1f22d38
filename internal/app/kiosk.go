package app

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/farmstand/internal/admin"
	"github.com/vladislavdragonenkov/farmstand/internal/cart"
	"github.com/vladislavdragonenkov/farmstand/internal/client"
	"github.com/vladislavdragonenkov/farmstand/internal/domain"
	"github.com/vladislavdragonenkov/farmstand/internal/metrics"
	"github.com/vladislavdragonenkov/farmstand/internal/money"
	"github.com/vladislavdragonenkov/farmstand/internal/service/journal"
	"github.com/vladislavdragonenkov/farmstand/internal/stock"
	"github.com/vladislavdragonenkov/farmstand/internal/storefront"
)

const remoteConfigTimeout = 5 * time.Second

// Kiosk собранная витрина одного терминала: склад, корзина, журнал и консоль персонала.
type Kiosk struct {
	Config    Config
	API       *client.Client
	Store     *stock.Store
	Poller    *stock.Poller
	Cart      *cart.Cart
	Notices   *storefront.NoticeBoard
	Journal   *journal.Recorder
	Front     *storefront.Storefront
	Formatter *money.Formatter
	Metrics   *metrics.StorefrontMetrics
	// Console nil, если функции персонала отключены.
	Console *admin.Console
}

// LoadRemoteConfig накладывает GET /api/config на cfg, если это включено.
// Ошибка загрузки не фатальна: витрина остаётся на локальных настройках.
func LoadRemoteConfig(ctx context.Context, cfg Config, logger *log.Entry) Config {
	if !cfg.RemoteConfig {
		return cfg
	}
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	ctx, cancel := context.WithTimeout(ctx, remoteConfigTimeout)
	defer cancel()

	api := client.New(cfg.ResolvedAPIBaseURL(), client.WithTimeout(cfg.APITimeout), client.WithLogger(logger))
	remote, err := api.FetchRemoteConfig(ctx)
	if err != nil {
		logger.WithError(err).Warn("remote config unavailable, using local settings")
		return cfg
	}

	merged := cfg.ApplyRemote(remote)
	logger.WithFields(log.Fields{
		"api_base_url":  merged.ResolvedAPIBaseURL(),
		"admin_enabled": merged.AdminEnabled,
		"locale":        merged.Locale,
	}).Info("remote config applied")
	return merged
}

// NewKiosk собирает витрину. Фоновое обновление склада запускает вызывающий (Poller.Start).
func NewKiosk(cfg Config, deps *Dependencies, logger *log.Entry) *Kiosk {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	api := client.New(cfg.ResolvedAPIBaseURL(),
		client.WithTimeout(cfg.APITimeout),
		client.WithLogger(logger.WithField("layer", "api")),
	)
	notices := storefront.NewNoticeBoard(0)
	store := stock.NewStore()
	poller := stock.NewPoller(api, store,
		stock.WithInterval(cfg.StockRefreshInterval),
		stock.WithNotifier(notices),
		stock.WithLogger(logger.WithField("layer", "stock")),
	)
	c := cart.New(store, api, poller,
		cart.WithSettleDelay(cfg.SettleDelay),
		cart.WithLogger(logger.WithField("layer", "cart")),
	)

	formatter := money.NewFormatter(cfg.Locale)
	storefrontMetrics := metrics.NewStorefrontMetrics()
	// Без брокера события не копятся в outbox: их некому доставить.
	var events domain.OutboxRepository
	if deps.Publisher != nil {
		events = deps.Outbox
	}
	recorder := journal.NewRecorder(deps.Journal, events, logger.WithField("layer", "journal"))

	front := storefront.New(c, store, poller,
		storefront.WithLogger(logger.WithField("layer", "storefront")),
		storefront.WithFormatter(formatter),
		storefront.WithNotices(notices),
		storefront.WithJournal(recorder),
		storefront.WithMetrics(storefrontMetrics),
		storefront.WithLowStockThreshold(cfg.LowStockThreshold),
	)

	k := &Kiosk{
		Config:    cfg,
		API:       api,
		Store:     store,
		Poller:    poller,
		Cart:      c,
		Notices:   notices,
		Journal:   recorder,
		Front:     front,
		Formatter: formatter,
		Metrics:   storefrontMetrics,
	}
	if cfg.AdminEnabled {
		k.Console = admin.NewConsole(api, api, deps.Tokens, logger.WithField("layer", "admin"))
	}
	return k
}
