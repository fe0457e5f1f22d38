package grpcsvc

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/farmstand/internal/cart"
	"github.com/vladislavdragonenkov/farmstand/internal/domain"
	"github.com/vladislavdragonenkov/farmstand/internal/storefront"
)

// Классы ошибок в ответе. Позволяют клиенту восстановить ошибку для errors.Is.
const (
	errorClassValidation = "validation"
	errorClassNetwork    = "network"
	errorClassRejected   = "rejected"
	errorClassInternal   = "internal"
)

func encodeResult(r storefront.Result) (*structpb.Struct, error) {
	out := map[string]any{
		"kind":    string(r.Kind),
		"message": r.Message,
	}
	if r.Err != nil {
		out["error"] = r.Err.Error()
		out["error_class"] = errorClass(r.Err)
		var v *domain.ValidationError
		if errors.As(r.Err, &v) {
			out["error_reason"] = v.Reason
		}
	}
	if r.Stock != nil {
		out["stock"] = encodeStock(r.Stock)
	}
	if r.Cart != nil {
		out["cart"] = encodeCart(r.Cart)
	}
	if r.Receipt != nil {
		out["receipt"] = encodeReceipt(*r.Receipt)
	}
	if len(r.Notices) > 0 {
		notices := make([]any, 0, len(r.Notices))
		for _, n := range r.Notices {
			notices = append(notices, map[string]any{
				"kind":    string(n.Kind),
				"message": n.Message,
				"at":      formatTime(n.At),
			})
		}
		out["notices"] = notices
	}

	s, err := structpb.NewStruct(out)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return s, nil
}

func errorClass(err error) string {
	switch {
	case domain.IsValidation(err):
		return errorClassValidation
	case errors.Is(err, domain.ErrNetwork):
		return errorClassNetwork
	case errors.Is(err, domain.ErrRejected):
		return errorClassRejected
	default:
		return errorClassInternal
	}
}

func encodeStock(v *storefront.StockView) map[string]any {
	rows := make([]any, 0, len(v.Rows))
	for _, row := range v.Rows {
		rows = append(rows, map[string]any{
			"name":       row.Name,
			"price":      row.PricePerUnit.String(),
			"unit":       row.Unit,
			"quantity":   row.Quantity,
			"level":      string(row.Level),
			"selectable": row.Selectable,
			"label":      row.Label,
		})
	}
	return map[string]any{"rows": rows, "fetched_at": formatTime(v.FetchedAt)}
}

func encodeCart(v *storefront.CartView) map[string]any {
	rows := make([]any, 0, len(v.Rows))
	for _, row := range v.Rows {
		rows = append(rows, map[string]any{
			"product":    row.Product,
			"quantity":   row.Quantity,
			"unit":       row.Unit,
			"price":      row.PricePerUnit.String(),
			"line_total": row.LineTotal.String(),
		})
	}
	return map[string]any{"rows": rows, "total": v.Total.String()}
}

func encodeReceipt(r cart.Receipt) map[string]any {
	lines := make([]any, 0, len(r.Lines))
	for _, line := range r.Lines {
		lines = append(lines, map[string]any{
			"product":    line.Product,
			"quantity":   line.Quantity,
			"unit":       line.Unit,
			"price":      line.PricePerUnit.String(),
			"line_total": line.LineTotal.String(),
		})
	}
	return map[string]any{
		"id":           r.ID,
		"customer":     r.Customer,
		"lines":        lines,
		"total":        r.Total.String(),
		"submitted_at": formatTime(r.SubmittedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// decodeResult обратная к encodeResult операция на стороне клиента.
func decodeResult(s *structpb.Struct) (storefront.Result, error) {
	m := s.AsMap()
	r := storefront.Result{
		Kind:    storefront.ResultKind(str(m, "kind")),
		Message: str(m, "message"),
	}
	if r.Kind == "" {
		return storefront.Result{}, errors.New("decode result: missing kind")
	}

	if text := str(m, "error"); text != "" {
		r.Err = decodeError(str(m, "error_class"), str(m, "error_reason"), text)
	}

	var err error
	if stock, ok := m["stock"].(map[string]any); ok {
		if r.Stock, err = decodeStock(stock); err != nil {
			return storefront.Result{}, err
		}
	}
	if c, ok := m["cart"].(map[string]any); ok {
		if r.Cart, err = decodeCart(c); err != nil {
			return storefront.Result{}, err
		}
	}
	if receipt, ok := m["receipt"].(map[string]any); ok {
		decoded, err := decodeReceipt(receipt)
		if err != nil {
			return storefront.Result{}, err
		}
		r.Receipt = &decoded
	}
	for _, raw := range list(m, "notices") {
		n, _ := raw.(map[string]any)
		r.Notices = append(r.Notices, storefront.Notice{
			Kind:    storefront.ResultKind(str(n, "kind")),
			Message: str(n, "message"),
			At:      parseTime(str(n, "at")),
		})
	}
	return r, nil
}

func decodeError(class, reason, text string) error {
	switch class {
	case errorClassValidation:
		return &domain.ValidationError{Reason: reason}
	case errorClassNetwork:
		return fmt.Errorf("%w: %s", domain.ErrNetwork, text)
	case errorClassRejected:
		return fmt.Errorf("%w: %s", domain.ErrRejected, text)
	default:
		return errors.New(text)
	}
}

func decodeStock(m map[string]any) (*storefront.StockView, error) {
	view := &storefront.StockView{FetchedAt: parseTime(str(m, "fetched_at"))}
	for _, raw := range list(m, "rows") {
		row, _ := raw.(map[string]any)
		price, err := dec(row, "price")
		if err != nil {
			return nil, err
		}
		view.Rows = append(view.Rows, storefront.StockRow{
			Name:         str(row, "name"),
			PricePerUnit: price,
			Unit:         str(row, "unit"),
			Quantity:     num(row, "quantity"),
			Level:        domain.StockLevel(str(row, "level")),
			Selectable:   row["selectable"] == true,
			Label:        str(row, "label"),
		})
	}
	return view, nil
}

func decodeCart(m map[string]any) (*storefront.CartView, error) {
	total, err := dec(m, "total")
	if err != nil {
		return nil, err
	}
	view := &storefront.CartView{Total: total}
	for _, raw := range list(m, "rows") {
		row, _ := raw.(map[string]any)
		price, err := dec(row, "price")
		if err != nil {
			return nil, err
		}
		lineTotal, err := dec(row, "line_total")
		if err != nil {
			return nil, err
		}
		view.Rows = append(view.Rows, storefront.CartRow{
			Product:      str(row, "product"),
			Quantity:     num(row, "quantity"),
			Unit:         str(row, "unit"),
			PricePerUnit: price,
			LineTotal:    lineTotal,
		})
	}
	return view, nil
}

func decodeReceipt(m map[string]any) (cart.Receipt, error) {
	total, err := dec(m, "total")
	if err != nil {
		return cart.Receipt{}, err
	}
	receipt := cart.Receipt{
		ID:          str(m, "id"),
		Customer:    str(m, "customer"),
		Total:       total,
		SubmittedAt: parseTime(str(m, "submitted_at")),
	}
	for _, raw := range list(m, "lines") {
		line, _ := raw.(map[string]any)
		price, err := dec(line, "price")
		if err != nil {
			return cart.Receipt{}, err
		}
		lineTotal, err := dec(line, "line_total")
		if err != nil {
			return cart.Receipt{}, err
		}
		receipt.Lines = append(receipt.Lines, cart.ReceiptLine{
			Product:      str(line, "product"),
			Quantity:     num(line, "quantity"),
			Unit:         str(line, "unit"),
			PricePerUnit: price,
			LineTotal:    lineTotal,
		})
	}
	return receipt, nil
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func num(m map[string]any, key string) int {
	f, _ := m[key].(float64)
	return int(f)
}

func list(m map[string]any, key string) []any {
	l, _ := m[key].([]any)
	return l
}

func dec(m map[string]any, key string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(str(m, key))
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode %s: %w", key, err)
	}
	return d, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
