package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem представляет позицию корзины, пара (user_id, product_id) уникальна
type CartItem struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// CartLine — позиция корзины, соединённая с текущими данными товара.
// Используется и при выводе корзины, и как вход оформления заказа.
type CartLine struct {
	CartItemID    int64            `json:"cart_item_id"`
	ProductID     int64            `json:"product_id"`
	ProductName   string           `json:"product_name"`
	ImageURL      string           `json:"image_url"`
	Quantity      int              `json:"quantity"`
	Price         decimal.Decimal  `json:"price"`
	SalePrice     *decimal.Decimal `json:"sale_price,omitempty"`
	StockQuantity int              `json:"stock_quantity"`
}

// EffectivePrice возвращает действующую цену позиции: sale_price, если задана, иначе price
func (l *CartLine) EffectivePrice() decimal.Decimal {
	if l.SalePrice != nil {
		return *l.SalePrice
	}
	return l.Price
}

// LineTotal — стоимость позиции по действующей цене
func (l *CartLine) LineTotal() decimal.Decimal {
	return l.EffectivePrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}
