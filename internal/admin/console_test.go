package admin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
	"github.com/vladislavdragonenkov/farmstand/internal/storage/memory"
)

type fakeAdminAPI struct {
	mu        sync.Mutex
	token     string
	loginErr  error
	verifyErr error
	callErr   error
	orders    []domain.PreparationOrder
	added     []domain.StockItem
	deleted   []int
	prepared  []int
	logouts   int
}

func (f *fakeAdminAPI) Login(_ context.Context, password string) (string, error) {
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return f.token, nil
}

func (f *fakeAdminAPI) Verify(context.Context, string) error { return f.verifyErr }

func (f *fakeAdminAPI) Logout(context.Context, string) error {
	f.logouts++
	return f.callErr
}

func (f *fakeAdminAPI) AddStock(_ context.Context, _ string, item domain.StockItem) error {
	if f.callErr != nil {
		return f.callErr
	}
	f.added = append(f.added, item)
	return nil
}

func (f *fakeAdminAPI) DeleteStock(_ context.Context, _ string, index int) error {
	if f.callErr != nil {
		return f.callErr
	}
	f.deleted = append(f.deleted, index)
	return nil
}

func (f *fakeAdminAPI) ListOrdersToPrepare(context.Context, string) ([]domain.PreparationOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.callErr != nil {
		return nil, f.callErr
	}
	return f.orders, nil
}

func (f *fakeAdminAPI) MarkPrepared(_ context.Context, _ string, index int) error {
	if f.callErr != nil {
		return f.callErr
	}
	f.prepared = append(f.prepared, index)
	return nil
}

type fakeStockAPI struct{ items []domain.StockItem }

func (f fakeStockAPI) FetchStock(context.Context) ([]domain.StockItem, error) { return f.items, nil }

func newTestConsole(api *fakeAdminAPI) (*Console, *memory.TokenStore) {
	tokens := memory.NewTokenStore()
	stockAPI := fakeStockAPI{items: []domain.StockItem{
		{Name: "Tomate", PricePerUnit: decimal.RequireFromString("2.50"), Unit: "kg", QuantityAvailable: 10},
		{Name: "Pomme de terre", PricePerUnit: decimal.RequireFromString("1.00"), Unit: "kg", QuantityAvailable: 0},
	}}
	return NewConsole(api, stockAPI, tokens, nil), tokens
}

func TestLoginStoresToken(t *testing.T) {
	console, tokens := newTestConsole(&fakeAdminAPI{token: "admin_123"})

	if err := console.Login(context.Background(), "  secret  "); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	token, err := tokens.Get()
	if err != nil || token != "admin_123" {
		t.Fatalf("unexpected stored token %q (%v)", token, err)
	}
	if !console.LoggedIn() {
		t.Fatal("expected console to be logged in")
	}
}

func TestLoginRejectsEmptyPassword(t *testing.T) {
	console, _ := newTestConsole(&fakeAdminAPI{token: "admin_1"})
	if err := console.Login(context.Background(), "   "); !errors.Is(err, domain.ErrPasswordRequired) {
		t.Fatalf("expected ErrPasswordRequired, got %v", err)
	}
}

func TestLoginRejectsTokenWithoutPrefix(t *testing.T) {
	console, tokens := newTestConsole(&fakeAdminAPI{token: "user_123"})
	if err := console.Login(context.Background(), "secret"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := tokens.Get(); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatal("malformed token must not be stored")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	console, _ := newTestConsole(&fakeAdminAPI{loginErr: domain.ErrUnauthorized})
	if err := console.Login(context.Background(), "nope"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if console.LoggedIn() {
		t.Fatal("failed login must not open a session")
	}
}

func TestVerifyFailureClearsToken(t *testing.T) {
	api := &fakeAdminAPI{token: "admin_1"}
	console, tokens := newTestConsole(api)
	_ = console.Login(context.Background(), "secret")

	api.verifyErr = domain.ErrNetwork
	err := console.Verify(context.Background())
	if !errors.Is(err, domain.ErrUnauthorized) || !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected unauthorized wrapping network error, got %v", err)
	}
	if _, err := tokens.Get(); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatal("verify failure must clear the token")
	}
}

func TestLogoutAlwaysClearsToken(t *testing.T) {
	api := &fakeAdminAPI{token: "admin_1"}
	console, tokens := newTestConsole(api)
	_ = console.Login(context.Background(), "secret")

	api.callErr = domain.ErrNetwork
	if err := console.Logout(context.Background()); err != nil {
		t.Fatalf("logout must not fail: %v", err)
	}
	if api.logouts != 1 {
		t.Fatalf("expected backend logout call, got %d", api.logouts)
	}
	if _, err := tokens.Get(); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatal("logout must clear the token")
	}
}

func TestOperationsRequireSession(t *testing.T) {
	console, _ := newTestConsole(&fakeAdminAPI{token: "admin_1"})

	if _, err := console.Stock(context.Background()); !domain.IsAuthError(err) {
		t.Fatalf("expected auth error for stock, got %v", err)
	}
	if err := console.DeleteStock(context.Background(), 0); !domain.IsAuthError(err) {
		t.Fatalf("expected auth error for delete, got %v", err)
	}
	if _, err := console.OrdersToPrepare(context.Background()); !domain.IsAuthError(err) {
		t.Fatalf("expected auth error for orders, got %v", err)
	}
}

func TestAuthErrorDuringOperationClearsToken(t *testing.T) {
	api := &fakeAdminAPI{token: "admin_1"}
	console, tokens := newTestConsole(api)
	_ = console.Login(context.Background(), "secret")

	api.callErr = domain.ErrUnauthorized
	if err := console.MarkPrepared(context.Background(), 0); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := tokens.Get(); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatal("auth error must clear the token")
	}
}

func TestNonAuthErrorKeepsToken(t *testing.T) {
	api := &fakeAdminAPI{token: "admin_1"}
	console, _ := newTestConsole(api)
	_ = console.Login(context.Background(), "secret")

	api.callErr = domain.ErrRejected
	if err := console.DeleteStock(context.Background(), 3); !errors.Is(err, domain.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if !console.LoggedIn() {
		t.Fatal("non-auth errors must keep the session")
	}
}

func TestAddStockValidatesForm(t *testing.T) {
	api := &fakeAdminAPI{token: "admin_1"}
	console, _ := newTestConsole(api)
	_ = console.Login(context.Background(), "secret")

	err := console.AddStock(context.Background(), domain.StockItem{
		Name:              " ",
		PricePerUnit:      decimal.NewFromInt(-1),
		QuantityAvailable: -2,
	})
	for _, want := range []error{
		domain.ErrStockNameRequired,
		domain.ErrStockPriceInvalid,
		domain.ErrStockQuantityInvalid,
		domain.ErrStockUnitRequired,
	} {
		if !errors.Is(err, want) {
			t.Fatalf("expected %v in %v", want, err)
		}
	}
	if len(api.added) != 0 {
		t.Fatal("invalid form must not reach the backend")
	}

	item := domain.StockItem{Name: " Radis ", PricePerUnit: decimal.RequireFromString("1.50"), Unit: "botte", QuantityAvailable: 8}
	if err := console.AddStock(context.Background(), item); err != nil {
		t.Fatalf("add stock: %v", err)
	}
	if len(api.added) != 1 || api.added[0].Name != "Radis" {
		t.Fatalf("unexpected added items %+v", api.added)
	}
}

func TestStockIncludesUnavailableItems(t *testing.T) {
	console, _ := newTestConsole(&fakeAdminAPI{token: "admin_1"})
	_ = console.Login(context.Background(), "secret")

	items, err := console.Stock(context.Background())
	if err != nil {
		t.Fatalf("stock: %v", err)
	}
	if len(items) != 2 || items[1].QuantityAvailable != 0 {
		t.Fatalf("admin stock must list out-of-stock items, got %+v", items)
	}
}

func TestIndexValidation(t *testing.T) {
	console, _ := newTestConsole(&fakeAdminAPI{token: "admin_1"})
	_ = console.Login(context.Background(), "secret")

	if err := console.DeleteStock(context.Background(), -1); !errors.Is(err, domain.ErrIndexInvalid) {
		t.Fatalf("expected ErrIndexInvalid, got %v", err)
	}
	if err := console.MarkPrepared(context.Background(), -5); !errors.Is(err, domain.ErrIndexInvalid) {
		t.Fatalf("expected ErrIndexInvalid, got %v", err)
	}
}

func TestOrdersToPrepareGroupsByCustomer(t *testing.T) {
	api := &fakeAdminAPI{token: "admin_1", orders: []domain.PreparationOrder{
		{Index: 0, Product: "Tomate", Quantity: 2, Price: decimal.RequireFromString("2.50"), Unit: "kg", Customer: "Alice", Status: domain.OrderStatusToPrepare},
		{Index: 1, Product: "Carotte", Quantity: 1, Price: decimal.RequireFromString("1.20"), Unit: "kg", Customer: "Bob", Status: domain.OrderStatusToPrepare},
		{Index: 2, Product: "Poireau", Quantity: 3, Price: decimal.RequireFromString("0.90"), Unit: "botte", Customer: "Alice", Status: domain.OrderStatusToPrepare},
	}}
	console, _ := newTestConsole(api)
	_ = console.Login(context.Background(), "secret")

	groups, err := console.OrdersToPrepare(context.Background())
	if err != nil {
		t.Fatalf("orders: %v", err)
	}
	if len(groups) != 2 || groups[0].Customer != "Alice" || len(groups[0].Orders) != 2 {
		t.Fatalf("unexpected groups %+v", groups)
	}
	if !groups[0].Total.Equal(decimal.RequireFromString("7.70")) {
		t.Fatalf("unexpected Alice total %s", groups[0].Total)
	}
}

func TestWatcherStopsOnExpiredSession(t *testing.T) {
	api := &fakeAdminAPI{token: "admin_1", orders: []domain.PreparationOrder{
		{Index: 0, Product: "Tomate", Quantity: 1, Price: decimal.NewFromInt(1), Unit: "kg", Customer: "Alice"},
	}}
	console, _ := newTestConsole(api)
	_ = console.Login(context.Background(), "secret")

	var (
		mu      sync.Mutex
		updates int
	)
	watcher := NewWatcher(console, func(groups []domain.CustomerOrders, err error) {
		mu.Lock()
		defer mu.Unlock()
		updates++
		if updates == 2 {
			api.mu.Lock()
			api.callErr = domain.ErrUnauthorized
			api.mu.Unlock()
		}
	}, WithWatchInterval(5*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := watcher.Run(ctx)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected watcher to stop on unauthorized, got %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if updates < 3 {
		t.Fatalf("expected at least 3 updates, got %d", updates)
	}
	if console.LoggedIn() {
		t.Fatal("expired session must be cleared")
	}
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	api := &fakeAdminAPI{token: "admin_1"}
	console, _ := newTestConsole(api)
	_ = console.Login(context.Background(), "secret")

	ctx, cancel := context.WithCancel(context.Background())
	watcher := NewWatcher(console, func([]domain.CustomerOrders, error) { cancel() }, WithWatchInterval(time.Hour))

	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
