package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold задаёт порог, ниже которого (включительно) товар помечается как ограниченный.
const DefaultLowStockThreshold = 5

// StockLevel описывает уровень наличия товара для отображения.
type StockLevel string

const (
	StockLevelOutOfStock StockLevel = "out_of_stock"
	StockLevelLimited    StockLevel = "limited"
	StockLevelAvailable  StockLevel = "available"
)

// StockItem описывает позицию склада, полученную от внешнего API.
type StockItem struct {
	Name              string
	PricePerUnit      decimal.Decimal
	Unit              string
	QuantityAvailable int
}

// Selectable сообщает, можно ли добавить товар в корзину.
func (s StockItem) Selectable() bool {
	return s.QuantityAvailable > 0
}

// Level возвращает уровень наличия с учётом порога «мало на складе».
func (s StockItem) Level(threshold int) StockLevel {
	switch {
	case s.QuantityAvailable <= 0:
		return StockLevelOutOfStock
	case s.QuantityAvailable <= threshold:
		return StockLevelLimited
	default:
		return StockLevelAvailable
	}
}

// Validate проверяет позицию, которую администратор добавляет на склад.
func (s StockItem) Validate() []error {
	var errs []error
	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, ErrStockNameRequired)
	}
	if s.QuantityAvailable < 0 {
		errs = append(errs, ErrStockQuantityInvalid)
	}
	if s.PricePerUnit.IsNegative() {
		errs = append(errs, ErrStockPriceInvalid)
	}
	if strings.TrimSpace(s.Unit) == "" {
		errs = append(errs, ErrStockUnitRequired)
	}
	return errs
}
