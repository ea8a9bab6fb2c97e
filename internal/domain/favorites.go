package domain

import "time"

// FavoriteItem is a product variant a shopper saved for later.
type FavoriteItem struct {
	VariantID string    `json:"variant_id"`
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	UnitPrice int64     `json:"unit_price"`
	AddedAt   time.Time `json:"added_at"`
}

// Favorites is an identity-scoped list of saved items.
type Favorites struct {
	Items []FavoriteItem `json:"items"`
}

// Contains reports whether a variant is already saved.
func (f *Favorites) Contains(variantID string) bool {
	for i := range f.Items {
		if f.Items[i].VariantID == variantID {
			return true
		}
	}
	return false
}

// Add saves an item. Adding an already-saved variant is a no-op.
func (f *Favorites) Add(item FavoriteItem) bool {
	if f.Contains(item.VariantID) {
		return false
	}
	f.Items = append(f.Items, item)
	return true
}

// Remove drops a saved variant. It reports whether the variant was present.
func (f *Favorites) Remove(variantID string) bool {
	for i := range f.Items {
		if f.Items[i].VariantID == variantID {
			f.Items = append(f.Items[:i], f.Items[i+1:]...)
			return true
		}
	}
	return false
}
