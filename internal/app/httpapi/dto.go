package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/astrobite/storefront/internal/app/domain/cart"
	"github.com/astrobite/storefront/internal/app/domain/catalog"
	"github.com/astrobite/storefront/internal/app/domain/order"
	"github.com/astrobite/storefront/internal/app/domain/user"
	"github.com/astrobite/storefront/internal/app/services/carts"
)

// Money values are rendered as fixed two-decimal strings so clients never
// see float artifacts.

type productDTO struct {
	ID          int64  `json:"id"`
	CategoryID  int64  `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
	Image1      string `json:"image_1,omitempty"`
	Image2      string `json:"image_2,omitempty"`
}

func toProductDTO(p catalog.Product) productDTO {
	return productDTO{
		ID:          p.ID,
		CategoryID:  p.CategoryID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Image1:      p.Image1,
		Image2:      p.Image2,
	}
}

func toProductDTOs(ps []catalog.Product) []productDTO {
	out := make([]productDTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProductDTO(p))
	}
	return out
}

type stockDTO struct {
	StoreID  int64 `json:"store_id"`
	Quantity int   `json:"quantity"`
}

type productDetailDTO struct {
	productDTO
	Stock []stockDTO `json:"stock"`
}

type categoryDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type storeDTO struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	LocationCode string `json:"location_code"`
	Address      string `json:"address"`
}

type cartEntryDTO struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

type cartDTO struct {
	Items     []cartEntryDTO `json:"items"`
	Total     string         `json:"total"`
	ItemCount int            `json:"item_count"`
}

func toCartDTO(v carts.View) cartDTO {
	items := make([]cartEntryDTO, 0, len(v.Cart))
	for _, e := range v.Cart.Entries() {
		items = append(items, toCartEntryDTO(e))
	}
	return cartDTO{
		Items:     items,
		Total:     v.Total.StringFixed(2),
		ItemCount: v.ItemCount,
	}
}

func toCartEntryDTO(e cart.Entry) cartEntryDTO {
	return cartEntryDTO{
		ProductID: e.ProductID,
		Name:      e.Name,
		UnitPrice: e.UnitPrice.StringFixed(2),
		Quantity:  e.Quantity,
		LineTotal: e.UnitPrice.Mul(decimal.NewFromInt(int64(e.Quantity))).StringFixed(2),
	}
}

type orderDTO struct {
	ID         int64     `json:"id"`
	StoreID    *int64    `json:"store_id,omitempty"`
	TotalPrice string    `json:"total_price"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

func toOrderDTO(o order.Order) orderDTO {
	return orderDTO{
		ID:         o.ID,
		StoreID:    o.StoreID,
		TotalPrice: o.TotalPrice.StringFixed(2),
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt,
	}
}

type orderLineDTO struct {
	ProductID       int64  `json:"product_id"`
	ProductName     string `json:"product_name,omitempty"`
	Image           string `json:"image,omitempty"`
	Quantity        int    `json:"quantity"`
	PriceAtPurchase string `json:"price_at_purchase"`
}

type confirmationDTO struct {
	Order     orderDTO       `json:"order"`
	Lines     []orderLineDTO `json:"lines"`
	StoreName string         `json:"store_name,omitempty"`
	StoreCode string         `json:"store_code,omitempty"`
	StoreAddr string         `json:"store_address,omitempty"`
}

func toConfirmationDTO(c order.Confirmation) confirmationDTO {
	lines := make([]orderLineDTO, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, orderLineDTO{
			ProductID:       l.ProductID,
			ProductName:     l.ProductName,
			Image:           l.Image,
			Quantity:        l.Quantity,
			PriceAtPurchase: l.PriceAtPurchase.StringFixed(2),
		})
	}
	return confirmationDTO{
		Order:     toOrderDTO(c.Order),
		Lines:     lines,
		StoreName: c.StoreName,
		StoreCode: c.StoreCode,
		StoreAddr: c.StoreAddr,
	}
}

type orderSummaryDTO struct {
	orderDTO
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	StoreName     string `json:"store_name,omitempty"`
	LocationCode  string `json:"location_code,omitempty"`
}

func toOrderSummaryDTO(s order.Summary) orderSummaryDTO {
	return orderSummaryDTO{
		orderDTO:      toOrderDTO(s.Order),
		CustomerName:  s.CustomerName,
		CustomerEmail: s.CustomerEmail,
		StoreName:     s.StoreName,
		LocationCode:  s.LocationCode,
	}
}

type userDTO struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Provider string `json:"provider,omitempty"`
}

func toUserDTO(u user.User) userDTO {
	return userDTO{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
		Provider: u.Provider,
	}
}
