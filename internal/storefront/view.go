package storefront

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/farmstand/internal/cart"
	"github.com/vladislavdragonenkov/farmstand/internal/domain"
	"github.com/vladislavdragonenkov/farmstand/internal/money"
	"github.com/vladislavdragonenkov/farmstand/internal/stock"
)

// StockRow строка витрины.
type StockRow struct {
	Name         string
	PricePerUnit decimal.Decimal
	Unit         string
	Quantity     int
	Level        domain.StockLevel
	Selectable   bool
	Label        string
}

// StockView склад для показа: все позиции, включая отсутствующие.
type StockView struct {
	Rows      []StockRow
	FetchedAt time.Time
}

// CartRow строка корзины с суммой.
type CartRow struct {
	Product      string
	Quantity     int
	Unit         string
	PricePerUnit decimal.Decimal
	LineTotal    decimal.Decimal
}

// CartView корзина для показа.
type CartView struct {
	Rows  []CartRow
	Total decimal.Decimal
}

// Empty сообщает, пуста ли корзина.
func (v *CartView) Empty() bool {
	return v == nil || len(v.Rows) == 0
}

func newStockView(snapshot *stock.Snapshot, threshold int, f *money.Formatter) *StockView {
	items := snapshot.Items()
	view := &StockView{Rows: make([]StockRow, 0, len(items)), FetchedAt: snapshot.FetchedAt()}
	for _, item := range items {
		view.Rows = append(view.Rows, StockRow{
			Name:         item.Name,
			PricePerUnit: item.PricePerUnit,
			Unit:         item.Unit,
			Quantity:     item.QuantityAvailable,
			Level:        item.Level(threshold),
			Selectable:   item.Selectable(),
			Label:        stockLabel(item, f),
		})
	}
	return view
}

func stockLabel(item domain.StockItem, f *money.Formatter) string {
	return fmt.Sprintf("%s - %s (Stock: %d)", item.Name, f.PerUnit(item.PricePerUnit, item.Unit), item.QuantityAvailable)
}

func newCartView(lines []domain.CartLine) *CartView {
	view := &CartView{Rows: make([]CartRow, 0, len(lines)), Total: domain.SumLines(lines)}
	for _, line := range lines {
		view.Rows = append(view.Rows, CartRow{
			Product:      line.ProductName,
			Quantity:     line.Quantity,
			Unit:         line.Unit,
			PricePerUnit: line.PricePerUnit,
			LineTotal:    line.LineTotal(),
		})
	}
	return view
}

// ReceiptText печатает чек в том виде, в каком его видит покупатель.
func ReceiptText(r cart.Receipt, f *money.Formatter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order confirmed for %s\n", r.Customer)
	for _, line := range r.Lines {
		fmt.Fprintf(&b, "%d %s of %s at %s → %s\n",
			line.Quantity, line.Unit, line.Product,
			f.PerUnit(line.PricePerUnit, line.Unit), f.Format(line.LineTotal))
	}
	fmt.Fprintf(&b, "Total: %s\n\nThank you for your order!", f.Format(r.Total))
	return b.String()
}
