package domain

import "errors"

// ValidationError ошибка пользовательского ввода или нарушения лимита склада.
// Состояние корзины при такой ошибке не меняется.
type ValidationError struct {
	Reason string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Reason
	}
	return e.Reason + ": " + e.Detail
}

// Is сравнивает ошибки по причине, детали не учитываются.
func (e *ValidationError) Is(target error) bool {
	var other *ValidationError
	if !errors.As(target, &other) {
		return false
	}
	return e.Reason == other.Reason
}

// WithDetail возвращает копию ошибки с уточнением.
func (e *ValidationError) WithDetail(detail string) *ValidationError {
	return &ValidationError{Reason: e.Reason, Detail: detail}
}

var (
	// Ошибка: товар не выбран.
	ErrNoProductSelected = &ValidationError{Reason: "no product selected"}
	// Ошибка: количество меньше или равно нулю.
	ErrNonPositiveQuantity = &ValidationError{Reason: "non-positive quantity"}
	// Ошибка: запрошено больше, чем есть на складе.
	ErrInsufficientStock = &ValidationError{Reason: "insufficient stock"}
	// Ошибка: попытка отправить пустую корзину.
	ErrEmptyCart = &ValidationError{Reason: "empty cart"}
	// Ошибка: имя клиента пустое.
	ErrMissingCustomerName = &ValidationError{Reason: "missing customer name"}
	// Ошибка: пустое название товара в форме склада.
	ErrStockNameRequired = &ValidationError{Reason: "stock name is required"}
	// Ошибка: отрицательное количество в форме склада.
	ErrStockQuantityInvalid = &ValidationError{Reason: "stock quantity must be non-negative"}
	// Ошибка: отрицательная цена в форме склада.
	ErrStockPriceInvalid = &ValidationError{Reason: "stock price must be non-negative"}
	// Ошибка: пустая единица измерения.
	ErrStockUnitRequired = &ValidationError{Reason: "stock unit is required"}
	// Ошибка: индекс позиции вне диапазона.
	ErrIndexInvalid = &ValidationError{Reason: "index must be non-negative"}
	// Ошибка: пустой пароль администратора.
	ErrPasswordRequired = &ValidationError{Reason: "password is required"}
)

var (
	// ErrNetwork сбой транспорта или разбора ответа; можно повторить.
	ErrNetwork = errors.New("network error")
	// ErrRejected бэкенд ответил не-2xx статусом.
	ErrRejected = errors.New("rejected by server")
	// ErrUnauthorized сессия администратора истекла или токен недействителен.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTokenNotFound в хранилище нет токена сессии.
	ErrTokenNotFound = errors.New("session token not found")
	// ErrOutboxPublish ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsValidation проверяет, является ли ошибка ошибкой валидации.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsAuthError проверяет, требует ли ошибка завершения сессии администратора.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrTokenNotFound)
}
