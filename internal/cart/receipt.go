package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
)

// ReceiptLine строка чека.
type ReceiptLine struct {
	Product      string
	Quantity     int
	Unit         string
	PricePerUnit decimal.Decimal
	LineTotal    decimal.Decimal
}

// Receipt итог успешной отправки заказа.
type Receipt struct {
	ID          string
	Customer    string
	Lines       []ReceiptLine
	Total       decimal.Decimal
	SubmittedAt time.Time
}

func newReceipt(id string, sub domain.OrderSubmission, at time.Time) Receipt {
	lines := make([]ReceiptLine, len(sub.Lines))
	for i, line := range sub.Lines {
		lines[i] = ReceiptLine{
			Product:      line.ProductName,
			Quantity:     line.Quantity,
			Unit:         line.Unit,
			PricePerUnit: line.PricePerUnit,
			LineTotal:    line.LineTotal(),
		}
	}
	return Receipt{
		ID:          id,
		Customer:    sub.CustomerName,
		Lines:       lines,
		Total:       sub.Total(),
		SubmittedAt: at,
	}
}
