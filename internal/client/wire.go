package client

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
)

// stockItemDTO позиция склада в формате бэкенда. Имя приходит в поле nom или produit.
type stockItemDTO struct {
	Nom      string      `json:"nom,omitempty"`
	Produit  string      `json:"produit,omitempty"`
	Quantite json.Number `json:"quantite"`
	Prix     json.Number `json:"prix"`
	Unite    string      `json:"unite"`
}

// orderLineDTO строка заказа: и для отправки, и для списка «к подготовке».
type orderLineDTO struct {
	Produit  string      `json:"produit"`
	Quantite json.Number `json:"quantite"`
	Prix     json.Number `json:"prix"`
	Unite    string      `json:"unite"`
	Client   string      `json:"client"`
	Statut   string      `json:"statut"`
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func toStockItem(dto stockItemDTO) (domain.StockItem, error) {
	name := dto.Nom
	if name == "" {
		name = dto.Produit
	}
	qty, err := parseQuantity(dto.Quantite)
	if err != nil {
		return domain.StockItem{}, fmt.Errorf("stock item %q: %w", name, err)
	}
	price, err := parsePrice(dto.Prix)
	if err != nil {
		return domain.StockItem{}, fmt.Errorf("stock item %q: %w", name, err)
	}
	return domain.StockItem{
		Name:              strings.TrimSpace(name),
		PricePerUnit:      price,
		Unit:              dto.Unite,
		QuantityAvailable: qty,
	}, nil
}

func fromStockItem(item domain.StockItem) stockItemDTO {
	name := strings.TrimSpace(item.Name)
	return stockItemDTO{
		Nom:      name,
		Produit:  name,
		Quantite: json.Number(fmt.Sprintf("%d", item.QuantityAvailable)),
		Prix:     json.Number(item.PricePerUnit.String()),
		Unite:    strings.TrimSpace(item.Unit),
	}
}

func fromSubmission(sub domain.OrderSubmission) []orderLineDTO {
	out := make([]orderLineDTO, len(sub.Lines))
	for i, line := range sub.Lines {
		out[i] = orderLineDTO{
			Produit:  line.ProductName,
			Quantite: json.Number(fmt.Sprintf("%d", line.Quantity)),
			Prix:     json.Number(line.PricePerUnit.String()),
			Unite:    line.Unit,
			Client:   sub.CustomerName,
			Statut:   string(line.Status),
		}
	}
	return out
}

func toPreparationOrder(index int, dto orderLineDTO) (domain.PreparationOrder, error) {
	qty, err := parseQuantity(dto.Quantite)
	if err != nil {
		return domain.PreparationOrder{}, fmt.Errorf("order %d: %w", index, err)
	}
	price, err := parsePrice(dto.Prix)
	if err != nil {
		return domain.PreparationOrder{}, fmt.Errorf("order %d: %w", index, err)
	}
	return domain.PreparationOrder{
		Index:    index,
		Product:  dto.Produit,
		Quantity: qty,
		Price:    price,
		Unit:     dto.Unite,
		Customer: dto.Client,
		Status:   domain.OrderStatus(dto.Statut),
	}, nil
}

// parseQuantity принимает и целые, и дробные значения; дробная часть отбрасывается.
func parseQuantity(n json.Number) (int, error) {
	if n == "" {
		return 0, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("parse quantity %q: %w", n, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("parse quantity %q: not a finite number", n)
	}
	return int(math.Floor(f)), nil
}

func parsePrice(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", n, err)
	}
	return d, nil
}
