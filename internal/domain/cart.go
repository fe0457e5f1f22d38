package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// OrderStatus хранит статус строки заказа в том виде, в котором его ожидает бэкенд.
type OrderStatus string

const (
	// OrderStatusToPrepare присваивается каждой строке при отправке заказа.
	OrderStatusToPrepare OrderStatus = "à préparer"
	// OrderStatusPrepared выставляет персонал после сборки заказа.
	OrderStatusPrepared OrderStatus = "préparée"
)

// CartLine описывает одну позицию корзины. Цена и единица фиксируются при первом добавлении.
type CartLine struct {
	ProductName  string
	Quantity     int
	PricePerUnit decimal.Decimal
	Unit         string
}

// LineTotal возвращает стоимость строки: количество × цена за единицу.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.PricePerUnit.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderLine описывает строку отправляемого заказа.
type OrderLine struct {
	CartLine
	Status OrderStatus
}

// OrderSubmission неизменяемый снимок корзины, отправляемый в API заказов.
type OrderSubmission struct {
	CustomerName string
	Lines        []OrderLine
}

// NewOrderSubmission собирает заказ из строк корзины.
// Имя клиента обрезается по краям; пустое имя и пустая корзина запрещены.
func NewOrderSubmission(customer string, lines []CartLine) (OrderSubmission, error) {
	if len(lines) == 0 {
		return OrderSubmission{}, ErrEmptyCart
	}
	customer = strings.TrimSpace(customer)
	if customer == "" {
		return OrderSubmission{}, ErrMissingCustomerName
	}

	orderLines := make([]OrderLine, len(lines))
	for i, line := range lines {
		orderLines[i] = OrderLine{CartLine: line, Status: OrderStatusToPrepare}
	}
	return OrderSubmission{CustomerName: customer, Lines: orderLines}, nil
}

// Total возвращает сумму заказа.
func (s OrderSubmission) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.Lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

// SumLines возвращает сумму строк корзины; для пустого набора ноль.
func SumLines(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal())
	}
	return total
}
