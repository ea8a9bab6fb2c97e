package domain

// CartItem represents a single line in the cart. The variant ID is the
// identity key: two lines never share a variant.
type CartItem struct {
	VariantID   string            `json:"variant_id"`
	ProductID   string            `json:"product_id"`
	Name        string            `json:"name"`
	UnitPrice   int64             `json:"unit_price"` // céntimos, IVA-inclusive
	Quantity    int               `json:"quantity"`
	WeightGrams int64             `json:"weight_grams,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"` // color, size
}

// Cart holds the line items of a shopping cart. All mutation goes through
// AddItem, UpdateQuantity, RemoveItem, and Clear; the type does no I/O.
type Cart struct {
	Items []CartItem `json:"items"`
}

// Totals is the derived monetary breakdown of a cart. Catalog prices carry
// IVA, so the subtotal is tax-inclusive and the tax portion is extracted in
// reverse rather than added on top.
type Totals struct {
	Subtotal             int64 `json:"subtotal"`
	TaxExclusiveSubtotal int64 `json:"tax_exclusive_subtotal"`
	TaxPortion           int64 `json:"tax_portion"`
}

// FindItemIndex returns the index of the line matching the given variant ID,
// or -1 if not present.
func (c *Cart) FindItemIndex(variantID string) int {
	for i := range c.Items {
		if c.Items[i].VariantID == variantID {
			return i
		}
	}
	return -1
}

// AddItem merges the item into the cart: an existing line for the same
// variant has its quantity increased, otherwise the item is appended.
// A quantity below 1 is treated as 1.
func (c *Cart) AddItem(item CartItem, quantity int) {
	if quantity < 1 {
		quantity = 1
	}

	if i := c.FindItemIndex(item.VariantID); i >= 0 {
		c.Items[i].Quantity += quantity
		return
	}

	item.Quantity = quantity
	c.Items = append(c.Items, item)
}

// UpdateQuantity replaces the quantity of the line matching variantID.
// A quantity of zero or less removes the line. Returns false if no line
// matched.
func (c *Cart) UpdateQuantity(variantID string, quantity int) bool {
	i := c.FindItemIndex(variantID)
	if i < 0 {
		return false
	}

	if quantity <= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return true
	}

	c.Items[i].Quantity = quantity
	return true
}

// RemoveItem removes the line matching variantID. Returns false if no line
// matched.
func (c *Cart) RemoveItem(variantID string) bool {
	i := c.FindItemIndex(variantID)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return true
}

// Clear removes all lines.
func (c *Cart) Clear() {
	c.Items = nil
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ItemCount returns the total number of units across all lines.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// TotalWeight returns the approximate shipment weight in grams.
func (c *Cart) TotalWeight() int64 {
	var grams int64
	for _, item := range c.Items {
		grams += item.WeightGrams * int64(item.Quantity)
	}
	return grams
}

// Totals derives the monetary breakdown for the given tax rate in basis
// points. With rate r, taxExclusive = subtotal / (1+r) rounded half-up;
// the tax portion is the remainder so the three figures always reconcile.
func (c *Cart) Totals(taxRateBasisPoints int64) Totals {
	var subtotal int64
	for _, item := range c.Items {
		subtotal += item.UnitPrice * int64(item.Quantity)
	}

	taxExclusive := divHalfUp(subtotal*10000, 10000+taxRateBasisPoints)

	return Totals{
		Subtotal:             subtotal,
		TaxExclusiveSubtotal: taxExclusive,
		TaxPortion:           subtotal - taxExclusive,
	}
}
