package stock

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
)

func sampleItems() []domain.StockItem {
	return []domain.StockItem{
		{Name: "Tomato", PricePerUnit: decimal.RequireFromString("2.50"), Unit: "kg", QuantityAvailable: 10},
		{Name: "Potato", PricePerUnit: decimal.RequireFromString("1.00"), Unit: "kg", QuantityAvailable: 0},
		{Name: "Leek", PricePerUnit: decimal.RequireFromString("0.90"), Unit: "kg", QuantityAvailable: 5},
		{Name: "Tomato", PricePerUnit: decimal.RequireFromString("9.99"), Unit: "kg", QuantityAvailable: 99},
	}
}

func TestSnapshotSelectableExcludesOutOfStock(t *testing.T) {
	snap := NewSnapshot(sampleItems(), time.Unix(100, 0))

	if got := len(snap.Items()); got != 4 {
		t.Fatalf("display list must keep every item, got %d", got)
	}

	selectable := snap.Selectable()
	if len(selectable) != 2 {
		t.Fatalf("expected 2 selectable items, got %d", len(selectable))
	}
	for _, item := range selectable {
		if item.Name == "Potato" {
			t.Fatal("out of stock item must not be selectable")
		}
	}
}

func TestSnapshotLookupFirstWins(t *testing.T) {
	snap := NewSnapshot(sampleItems(), time.Now())

	item, ok := snap.Lookup("Tomato")
	if !ok {
		t.Fatal("expected Tomato to be found")
	}
	if !item.PricePerUnit.Equal(decimal.RequireFromString("2.50")) {
		t.Fatalf("expected first Tomato entry, got price %s", item.PricePerUnit)
	}
	if snap.Available("Tomato") != 10 {
		t.Fatalf("expected 10 available, got %d", snap.Available("Tomato"))
	}
	if snap.Available("Potato") != 0 {
		t.Fatal("out of stock item must report zero")
	}
	if snap.Available("Unknown") != 0 {
		t.Fatal("unknown item must report zero")
	}
}

func TestSnapshotIsImmutable(t *testing.T) {
	items := sampleItems()
	snap := NewSnapshot(items, time.Now())

	items[0].QuantityAvailable = 1
	if snap.Available("Tomato") != 10 {
		t.Fatal("snapshot must not share the input slice")
	}

	out := snap.Items()
	out[0].Name = "Changed"
	if _, ok := snap.Lookup("Tomato"); !ok {
		t.Fatal("Items must return a copy")
	}
}

func TestNilSnapshotBehavesAsEmpty(t *testing.T) {
	var snap *Snapshot
	if snap.Len() != 0 || snap.Items() != nil || snap.Selectable() != nil {
		t.Fatal("nil snapshot must be empty")
	}
	if snap.Available("Tomato") != 0 {
		t.Fatal("nil snapshot has no stock")
	}
	if !snap.FetchedAt().IsZero() {
		t.Fatal("nil snapshot has no fetch time")
	}
}

func TestStoreReplace(t *testing.T) {
	store := NewStore()
	if store.Current() != nil {
		t.Fatal("new store must be empty")
	}

	first := NewSnapshot(sampleItems(), time.Unix(1, 0))
	second := NewSnapshot(nil, time.Unix(2, 0))
	store.Replace(first)
	store.Replace(second)

	if store.Current() != second {
		t.Fatal("last replace must win")
	}
}
