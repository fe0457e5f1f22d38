package storefront

import (
	"github.com/vladislavdragonenkov/farmstand/internal/cart"
	"github.com/vladislavdragonenkov/farmstand/internal/domain"
)

// CommandKind вид команды покупателя.
type CommandKind string

const (
	CommandStock   CommandKind = "stock"
	CommandAdd     CommandKind = "add"
	CommandRemove  CommandKind = "remove"
	CommandCart    CommandKind = "cart"
	CommandClear   CommandKind = "clear"
	CommandSubmit  CommandKind = "submit"
	CommandRefresh CommandKind = "refresh"
	CommandHistory CommandKind = "history"
)

// Command одно действие покупателя. Поля, не нужные команде, игнорируются.
type Command struct {
	Kind     CommandKind
	Product  string
	Quantity int
	Customer string
	Limit    int
}

// ResultKind определяет, как показать сообщение.
type ResultKind string

const (
	ResultSuccess ResultKind = "success"
	ResultInfo    ResultKind = "info"
	ResultError   ResultKind = "error"
)

// Result ответ на команду. Err заполнен для ошибок и совместим с errors.Is.
type Result struct {
	Kind    ResultKind
	Message string
	Err     error
	Stock   *StockView
	Cart    *CartView
	Receipt *cart.Receipt
	History []domain.SubmissionRecord
	Notices []Notice
}

// OK сообщает, что команда выполнена.
func (r Result) OK() bool {
	return r.Kind != ResultError
}
