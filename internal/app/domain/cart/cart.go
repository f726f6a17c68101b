package cart

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Entry is one product in a cart. Name and UnitPrice are snapshots taken
// when the product was first added; later catalog price changes do not
// touch them.
type Entry struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Cart maps product id to its entry. It lives in the session store only and
// is never persisted independently of an order.
type Cart map[int64]Entry

// Totals sums unit price times quantity over all entries and counts items.
// It is pure; malformed quantities are Validate's concern.
func (c Cart) Totals() (total decimal.Decimal, itemCount int) {
	total = decimal.Zero
	for _, e := range c {
		total = total.Add(e.UnitPrice.Mul(decimal.NewFromInt(int64(e.Quantity))))
		itemCount += e.Quantity
	}
	return total, itemCount
}

// Validate rejects entries that must never reach checkout.
func (c Cart) Validate() error {
	for id, e := range c {
		if e.ProductID != id {
			return fmt.Errorf("cart entry %d keyed under %d", e.ProductID, id)
		}
		if e.Quantity <= 0 {
			return fmt.Errorf("cart entry %d has non-positive quantity %d", id, e.Quantity)
		}
		if e.UnitPrice.IsNegative() {
			return fmt.Errorf("cart entry %d has negative unit price %s", id, e.UnitPrice)
		}
	}
	return nil
}

// Entries returns the entries ordered by product id, for deterministic
// iteration when writing order lines.
func (c Cart) Entries() []Entry {
	out := make([]Entry, 0, len(c))
	for _, e := range c {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// Clone returns a deep copy so callers can mutate without aliasing session
// state.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	for id, e := range c {
		out[id] = e
	}
	return out
}
