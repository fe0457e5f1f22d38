package domain

import "github.com/shopspring/decimal"

// AdminTokenPrefix обязателен для токенов сессии, выданных бэкендом.
const AdminTokenPrefix = "admin_"

// PreparationOrder строка заказа из списка «к подготовке».
// Index соответствует позиции строки в ответе бэкенда и используется для смены статуса.
type PreparationOrder struct {
	Index    int
	Product  string
	Quantity int
	Price    decimal.Decimal
	Unit     string
	Customer string
	Status   OrderStatus
}

// LineTotal возвращает стоимость строки.
func (o PreparationOrder) LineTotal() decimal.Decimal {
	return o.Price.Mul(decimal.NewFromInt(int64(o.Quantity)))
}

// Prepared сообщает, собрана ли строка.
func (o PreparationOrder) Prepared() bool {
	return o.Status == OrderStatusPrepared
}

// CustomerOrders группа строк одного клиента.
type CustomerOrders struct {
	Customer string
	Orders   []PreparationOrder
	Total    decimal.Decimal
}

// Prepared возвращает true, когда собраны все строки клиента.
func (c CustomerOrders) Prepared() bool {
	for _, order := range c.Orders {
		if !order.Prepared() {
			return false
		}
	}
	return len(c.Orders) > 0
}

// PendingIndex возвращает индекс первой несобранной строки.
func (c CustomerOrders) PendingIndex() (int, bool) {
	for _, order := range c.Orders {
		if !order.Prepared() {
			return order.Index, true
		}
	}
	return 0, false
}

// GroupByCustomer группирует строки по клиенту в порядке первого появления клиента.
func GroupByCustomer(orders []PreparationOrder) []CustomerOrders {
	positions := make(map[string]int)
	var groups []CustomerOrders
	for _, order := range orders {
		pos, ok := positions[order.Customer]
		if !ok {
			pos = len(groups)
			positions[order.Customer] = pos
			groups = append(groups, CustomerOrders{Customer: order.Customer, Total: decimal.Zero})
		}
		groups[pos].Orders = append(groups[pos].Orders, order)
		groups[pos].Total = groups[pos].Total.Add(order.LineTotal())
	}
	return groups
}
