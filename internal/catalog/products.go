package catalog

import (
	"github.com/YelzhanWeb/orderdesk/internal/domain"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID       int
	Name     string
	Price    decimal.Decimal
	Category string
}

var products = []Product{
	{1, "Pastel de Carne", decimal.RequireFromString("12.90"), "Pastéis Salgados"},
	{2, "Pastel de Queijo", decimal.RequireFromString("11.90"), "Pastéis Salgados"},
	{3, "Pastel de Frango", decimal.RequireFromString("12.90"), "Pastéis Salgados"},
	{4, "Pastel de Pizza", decimal.RequireFromString("13.90"), "Pastéis Salgados"},
	{5, "Pastel de Palmito", decimal.RequireFromString("13.90"), "Pastéis Salgados"},
	{6, "Pastel de Camarão", decimal.RequireFromString("16.90"), "Pastéis Salgados"},
	{7, "Pastel de Chocolate", decimal.RequireFromString("12.90"), "Pastéis Doces"},
	{8, "Pastel de Banana", decimal.RequireFromString("12.90"), "Pastéis Doces"},
	{9, "Pastel Romeu e Julieta", decimal.RequireFromString("13.90"), "Pastéis Doces"},
	{10, "Caldo de Cana 500ml", decimal.RequireFromString("8.90"), "Bebidas"},
	{11, "Caldo de Cana 1L", decimal.RequireFromString("14.90"), "Bebidas"},
	{12, "Combo 2 Pasteis + Caldo", decimal.RequireFromString("29.90"), "Combos"},
	{13, "Combo 2 Pasteis + Caldos", decimal.RequireFromString("39.90"), "Combos"},
	{14, "Combo Família", decimal.RequireFromString("64.90"), "Combos"},
	{15, "Combo Doce", decimal.RequireFromString("39.90"), "Combos"},
}

// Products returns the menu in display order.
func Products() []Product {
	return append([]Product(nil), products...)
}

func ByID(id int) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// Item snapshots a product into an order line.
func (p Product) Item(quantity int) domain.OrderItem {
	return domain.OrderItem{
		ProductID: p.ID,
		Name:      p.Name,
		Quantity:  quantity,
		Price:     p.Price,
	}
}
