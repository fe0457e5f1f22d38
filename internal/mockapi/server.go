// Package mockapi поднимает in-memory реализацию HTTP API бэкенда витрины
// для локального запуска и тестов.
package mockapi

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
)

const idempotencyHeader = "Idempotency-Key"

// Options задаёт параметры сервера.
type Options struct {
	Logger       *log.Entry
	Password     string
	Stock        []domain.StockItem
	RemoteConfig map[string]any
}

// Option настраивает Server.
type Option func(*Options)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithPassword задаёт пароль администратора. Без него генерируется случайный.
func WithPassword(password string) Option {
	return func(opts *Options) {
		opts.Password = password
	}
}

// WithStock задаёт начальный склад.
func WithStock(items []domain.StockItem) Option {
	return func(opts *Options) {
		opts.Stock = items
	}
}

// WithRemoteConfig задаёт ответ GET /api/config.
func WithRemoteConfig(cfg map[string]any) Option {
	return func(opts *Options) {
		opts.RemoteConfig = cfg
	}
}

// DefaultStock склад по умолчанию для локального запуска.
func DefaultStock() []domain.StockItem {
	return []domain.StockItem{
		{Name: "Tomate", PricePerUnit: decimal.RequireFromString("2.50"), Unit: "kg", QuantityAvailable: 10},
		{Name: "Carotte", PricePerUnit: decimal.RequireFromString("1.20"), Unit: "kg", QuantityAvailable: 20},
		{Name: "Poireau", PricePerUnit: decimal.RequireFromString("0.90"), Unit: "kg", QuantityAvailable: 5},
		{Name: "Pomme de terre", PricePerUnit: decimal.RequireFromString("1.00"), Unit: "kg", QuantityAvailable: 0},
	}
}

type orderRecord struct {
	Product  string
	Quantity int
	Price    decimal.Decimal
	Unit     string
	Customer string
	Status   domain.OrderStatus
}

type failure struct {
	commit bool
}

// Server in-memory бэкенд.
type Server struct {
	logger       *log.Entry
	password     string
	remoteConfig map[string]any

	mu        sync.Mutex
	stock     []domain.StockItem
	orders    []orderRecord
	tokens    map[string]struct{}
	processed map[string]struct{}
	failures  []failure
	submits   int
}

// New создаёт сервер.
func New(options ...Option) *Server {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "mock-backend")
	}

	password := opts.Password
	if password == "" {
		password = uuid.NewString()
		logger.WithField("password", password).Warn("admin password not configured, generated a random one")
	}

	stock := opts.Stock
	if stock == nil {
		stock = DefaultStock()
	}
	copied := make([]domain.StockItem, len(stock))
	copy(copied, stock)

	return &Server{
		logger:       logger,
		password:     password,
		remoteConfig: opts.RemoteConfig,
		stock:        copied,
		tokens:       make(map[string]struct{}),
		processed:    make(map[string]struct{}),
	}
}

// FailNextOrders заставляет следующие n отправок заказа вернуть 500.
// При commit=true заказ применяется до ответа с ошибкой (потерянный успешный ответ).
func (s *Server) FailNextOrders(n int, commit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failures = append(s.failures, failure{commit: commit})
	}
}

// OrderCount количество сохранённых строк заказов.
func (s *Server) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// SubmitCount количество запросов на отправку заказа.
func (s *Server) SubmitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submits
}

// Stock возвращает копию склада.
func (s *Server) Stock() []domain.StockItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.StockItem, len(s.stock))
	copy(out, s.stock)
	return out
}

// Handler возвращает chi-роутер со всеми маршрутами бэкенда.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/stock", s.listStock)
	r.Post("/valider-commande", s.submitOrder)
	r.Get("/api/config", s.config)

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", s.login)
		r.With(s.requireToken).Get("/verify", s.verify)
		r.With(s.requireToken).Post("/logout", s.logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post("/stock", s.addStock)
		r.Delete("/stock/{index}", s.deleteStock)
		r.Get("/commandes-a-preparer", s.listOrders)
		r.Put("/commande/statut/{index}", s.markPrepared)
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": ww.Status(),
		}).Debug("request served")
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		s.mu.Lock()
		_, ok := s.tokens[token]
		s.mu.Unlock()
		if token == "" || !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired session"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listStock(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]stockResource, len(s.stock))
	for i, item := range s.stock {
		out[i] = toStockResource(item)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) addStock(w http.ResponseWriter, r *http.Request) {
	var res stockResource
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	item, err := res.toDomain()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if errs := item.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errors.Join(errs...).Error()})
		return
	}

	s.mu.Lock()
	s.stock = append(s.stock, item)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, toStockResource(item))
}

func (s *Server) deleteStock(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if index >= len(s.stock) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "stock item not found"})
		return
	}
	s.stock = append(s.stock[:index], s.stock[index+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) submitOrder(w http.ResponseWriter, r *http.Request) {
	var lines []orderResource
	if err := json.NewDecoder(r.Body).Decode(&lines); err != nil || len(lines) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order"})
		return
	}

	records := make([]orderRecord, 0, len(lines))
	for _, line := range lines {
		rec, err := line.toRecord()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		records = append(records, rec)
	}

	key := r.Header.Get(idempotencyHeader)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submits++

	if key != "" {
		if _, done := s.processed[key]; done {
			if s.popFailure(w) {
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "replayed": true})
			return
		}
	}

	if len(s.failures) > 0 && !s.failures[0].commit {
		s.popFailure(w)
		return
	}

	if err := s.applyOrder(records); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	if key != "" {
		s.processed[key] = struct{}{}
	}
	if s.popFailure(w) {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true})
}

// popFailure отвечает 500, если запланирован сбой. Вызывается под s.mu.
func (s *Server) popFailure(w http.ResponseWriter) bool {
	if len(s.failures) == 0 {
		return false
	}
	s.failures = s.failures[1:]
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "injected failure"})
	return true
}

// applyOrder списывает склад по всем строкам или не меняет ничего. Вызывается под s.mu.
func (s *Server) applyOrder(records []orderRecord) error {
	need := make(map[int]int)
	for _, rec := range records {
		pos := s.stockIndex(rec.Product)
		if pos < 0 {
			return errors.New("unknown product " + rec.Product)
		}
		need[pos] += rec.Quantity
		if need[pos] > s.stock[pos].QuantityAvailable {
			return errors.New("insufficient stock for " + rec.Product)
		}
	}
	for pos, qty := range need {
		s.stock[pos].QuantityAvailable -= qty
	}
	for _, rec := range records {
		rec.Status = domain.OrderStatusToPrepare
		s.orders = append(s.orders, rec)
	}
	return nil
}

func (s *Server) stockIndex(name string) int {
	for i, item := range s.stock {
		if item.Name == name {
			return i
		}
	}
	return -1
}

func (s *Server) listOrders(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]orderResource, len(s.orders))
	for i, rec := range s.orders {
		out[i] = toOrderResource(rec)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) markPrepared(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if index >= len(s.orders) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	s.orders[index].Status = domain.OrderStatusPrepared
	writeJSON(w, http.StatusOK, toOrderResource(s.orders[index]))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Password != s.password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid password"})
		return
	}

	token := domain.AdminTokenPrefix + uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = struct{}{}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) verify(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delete(s.tokens, r.Header.Get("Authorization"))
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) config(w http.ResponseWriter, _ *http.Request) {
	if s.remoteConfig == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, s.remoteConfig)
}

func parseIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid index"})
		return 0, false
	}
	return index, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type stockResource struct {
	Nom      string      `json:"nom,omitempty"`
	Produit  string      `json:"produit,omitempty"`
	Quantite json.Number `json:"quantite"`
	Prix     json.Number `json:"prix"`
	Unite    string      `json:"unite"`
}

func toStockResource(item domain.StockItem) stockResource {
	return stockResource{
		Nom:      item.Name,
		Quantite: json.Number(strconv.Itoa(item.QuantityAvailable)),
		Prix:     json.Number(item.PricePerUnit.String()),
		Unite:    item.Unit,
	}
}

func (r stockResource) toDomain() (domain.StockItem, error) {
	name := r.Nom
	if name == "" {
		name = r.Produit
	}
	qty, err := wholeNumber(r.Quantite)
	if err != nil {
		return domain.StockItem{}, err
	}
	price, err := decimal.NewFromString(string(r.Prix))
	if err != nil {
		return domain.StockItem{}, errors.New("invalid price")
	}
	return domain.StockItem{
		Name:              strings.TrimSpace(name),
		PricePerUnit:      price,
		Unit:              strings.TrimSpace(r.Unite),
		QuantityAvailable: qty,
	}, nil
}

type orderResource struct {
	Produit  string      `json:"produit"`
	Quantite json.Number `json:"quantite"`
	Prix     json.Number `json:"prix"`
	Unite    string      `json:"unite"`
	Client   string      `json:"client"`
	Statut   string      `json:"statut"`
}

func toOrderResource(rec orderRecord) orderResource {
	return orderResource{
		Produit:  rec.Product,
		Quantite: json.Number(strconv.Itoa(rec.Quantity)),
		Prix:     json.Number(rec.Price.String()),
		Unite:    rec.Unit,
		Client:   rec.Customer,
		Statut:   string(rec.Status),
	}
}

func (r orderResource) toRecord() (orderRecord, error) {
	qty, err := wholeNumber(r.Quantite)
	if err != nil {
		return orderRecord{}, err
	}
	if qty <= 0 {
		return orderRecord{}, errors.New("quantity must be positive")
	}
	if strings.TrimSpace(r.Client) == "" {
		return orderRecord{}, errors.New("client is required")
	}
	price, err := decimal.NewFromString(string(r.Prix))
	if err != nil {
		return orderRecord{}, errors.New("invalid price")
	}
	return orderRecord{
		Product:  r.Produit,
		Quantity: qty,
		Price:    price,
		Unit:     r.Unite,
		Customer: r.Client,
		Status:   domain.OrderStatus(r.Statut),
	}, nil
}

func wholeNumber(n json.Number) (int, error) {
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("invalid quantity")
	}
	return int(math.Floor(f)), nil
}
