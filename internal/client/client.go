// Package client реализует HTTP-клиент бэкенда витрины: склад, заказы, административные операции.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
	"github.com/vladislavdragonenkov/farmstand/internal/version"
)

const (
	// IdempotencyHeader заголовок с ключом идемпотентности заказа.
	IdempotencyHeader = "Idempotency-Key"

	maxErrorBody = 512
)

var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farmstand_api_requests_total",
		Help: "Total number of backend API requests grouped by endpoint and result.",
	}, []string{"endpoint", "result"})
	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "farmstand_api_request_duration_seconds",
		Help:    "Backend API request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)

// Options задаёт параметры клиента.
type Options struct {
	Logger     *log.Entry
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Option настраивает Client.
type Option func(*Options)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithHTTPClient подменяет http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(opts *Options) {
		opts.HTTPClient = c
	}
}

// WithTimeout задаёт таймаут одного запроса. Ноль означает «без таймаута».
func WithTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}

// Client обращается к бэкенду по базовому URL.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Entry
}

var (
	_ domain.StockAPI = (*Client)(nil)
	_ domain.OrderAPI = (*Client)(nil)
	_ domain.AdminAPI = (*Client)(nil)
)

// New создаёт клиент.
func New(baseURL string, options ...Option) *Client {
	var opts Options
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "api-client")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// BaseURL возвращает базовый адрес бэкенда.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchStock загружает склад. Авторизация не требуется.
func (c *Client) FetchStock(ctx context.Context) ([]domain.StockItem, error) {
	var dtos []stockItemDTO
	if err := c.do(ctx, request{method: http.MethodGet, path: "/stock", endpoint: "stock_list"}, &dtos); err != nil {
		return nil, err
	}

	items := make([]domain.StockItem, 0, len(dtos))
	for _, dto := range dtos {
		item, err := toStockItem(dto)
		if err != nil {
			return nil, fmt.Errorf("decode stock: %w: %w", domain.ErrNetwork, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// SubmitOrder отправляет заказ. Успех определяется 2xx статусом.
func (c *Client) SubmitOrder(ctx context.Context, idempotencyKey string, sub domain.OrderSubmission) error {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers[IdempotencyHeader] = idempotencyKey
	}
	return c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/valider-commande",
		endpoint: "order_submit",
		body:     fromSubmission(sub),
		headers:  headers,
	}, nil)
}

// Login обменивает пароль на токен сессии.
func (c *Client) Login(ctx context.Context, password string) (string, error) {
	var resp loginResponse
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/api/admin/login",
		endpoint: "admin_login",
		body:     loginRequest{Password: password},
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Verify проверяет токен на стороне бэкенда.
func (c *Client) Verify(ctx context.Context, token string) error {
	return c.do(ctx, request{method: http.MethodGet, path: "/api/admin/verify", endpoint: "admin_verify", token: token}, nil)
}

// Logout завершает сессию на стороне бэкенда.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/api/admin/logout", endpoint: "admin_logout", token: token}, nil)
}

// AddStock добавляет позицию на склад.
func (c *Client) AddStock(ctx context.Context, token string, item domain.StockItem) error {
	return c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/stock",
		endpoint: "stock_add",
		token:    token,
		body:     fromStockItem(item),
	}, nil)
}

// DeleteStock удаляет позицию склада по индексу.
func (c *Client) DeleteStock(ctx context.Context, token string, index int) error {
	return c.do(ctx, request{
		method:   http.MethodDelete,
		path:     "/stock/" + strconv.Itoa(index),
		endpoint: "stock_delete",
		token:    token,
	}, nil)
}

// ListOrdersToPrepare загружает строки заказов для персонала.
func (c *Client) ListOrdersToPrepare(ctx context.Context, token string) ([]domain.PreparationOrder, error) {
	var dtos []orderLineDTO
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/commandes-a-preparer",
		endpoint: "orders_list",
		token:    token,
	}, &dtos)
	if err != nil {
		return nil, err
	}

	orders := make([]domain.PreparationOrder, 0, len(dtos))
	for i, dto := range dtos {
		order, err := toPreparationOrder(i, dto)
		if err != nil {
			return nil, fmt.Errorf("decode orders: %w: %w", domain.ErrNetwork, err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// MarkPrepared помечает строку заказа собранной.
func (c *Client) MarkPrepared(ctx context.Context, token string, index int) error {
	return c.do(ctx, request{
		method:   http.MethodPut,
		path:     "/commande/statut/" + strconv.Itoa(index),
		endpoint: "order_status",
		token:    token,
	}, nil)
}

type request struct {
	method   string
	path     string
	endpoint string
	token    string
	body     any
	headers  map[string]string
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	started := time.Now()
	err := c.roundTrip(ctx, r, out)
	apiRequestDuration.WithLabelValues(r.endpoint).Observe(time.Since(started).Seconds())
	apiRequestsTotal.WithLabelValues(r.endpoint, resultLabel(err)).Inc()
	if err != nil {
		c.logger.WithError(err).WithFields(log.Fields{
			"endpoint": r.endpoint,
			"method":   r.method,
			"path":     r.path,
		}).Debug("backend request failed")
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, r request, out any) error {
	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", r.endpoint, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w: %w", r.endpoint, domain.ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent(""))
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", r.token)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", r.method, r.path, domain.ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w: status %d", r.method, r.path, domain.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s %s: %w: status %d: %s", r.method, r.path, domain.ErrRejected, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w: %w", r.endpoint, domain.ErrNetwork, err)
	}
	return nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrRejected):
		return "rejected"
	default:
		return "network_error"
	}
}
