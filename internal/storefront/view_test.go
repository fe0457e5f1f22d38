package storefront

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/farmstand/internal/cart"
	"github.com/vladislavdragonenkov/farmstand/internal/money"
)

func TestReceiptText(t *testing.T) {
	receipt := cart.Receipt{
		ID:       "key-1",
		Customer: "Alice",
		Lines: []cart.ReceiptLine{
			{Product: "Tomate", Quantity: 4, Unit: "kg", PricePerUnit: decimal.RequireFromString("2.5"), LineTotal: decimal.RequireFromString("10")},
			{Product: "Carotte", Quantity: 1, Unit: "kg", PricePerUnit: decimal.RequireFromString("1.2"), LineTotal: decimal.RequireFromString("1.2")},
		},
		Total:       decimal.RequireFromString("11.2"),
		SubmittedAt: time.Now(),
	}

	want := "Order confirmed for Alice\n" +
		"4 kg of Tomate at 2.50 €/kg → 10.00 €\n" +
		"1 kg of Carotte at 1.20 €/kg → 1.20 €\n" +
		"Total: 11.20 €\n\nThank you for your order!"
	require.Equal(t, want, ReceiptText(receipt, money.NewFormatter("en")))
}

func TestNewStockViewNilSnapshot(t *testing.T) {
	view := newStockView(nil, 5, money.NewFormatter("en"))
	require.Empty(t, view.Rows)
	require.True(t, view.FetchedAt.IsZero())
}

func TestCartViewEmpty(t *testing.T) {
	var view *CartView
	require.True(t, view.Empty())
	require.True(t, newCartView(nil).Empty())
	require.True(t, newCartView(nil).Total.IsZero())
}

func TestNoticeBoardEvictsOldest(t *testing.T) {
	board := NewNoticeBoard(2)
	board.NotifyError("first")
	board.NotifyInfo("second")
	board.NotifyError("third")

	require.Equal(t, 2, board.Len())
	notices := board.Drain()
	require.Equal(t, "second", notices[0].Message)
	require.Equal(t, ResultInfo, notices[0].Kind)
	require.Equal(t, "third", notices[1].Message)
	require.False(t, notices[1].At.IsZero())
	require.Zero(t, board.Len())
	require.Empty(t, board.Drain())
}
